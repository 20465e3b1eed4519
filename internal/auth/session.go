// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jason-s-yu/pokerbets/internal/address"
	log "github.com/sirupsen/logrus"
)

// privateKey and publicKey are used for signing and verifying JWT tokens.
var (
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// TokenExpiry is how long issued tokens live (0 => never).
	TokenExpiry time.Duration
)

const issuer = "pokerbets"

// parseTokenExpireTime reads TOKEN_EXPIRE_TIME ("72h", "never", ...).
func parseTokenExpireTime() error {
	duration := os.Getenv("TOKEN_EXPIRE_TIME")
	if duration == "never" || duration == "0" || duration == "" {
		TokenExpiry = 0
		return nil
	}
	d, err := time.ParseDuration(duration)
	if err != nil {
		return fmt.Errorf("failed to parse token expire time: %w", err)
	}
	TokenExpiry = d
	return nil
}

// Init generates a fresh ed25519 key pair at runtime and sets the token expiration.
// Tokens do not survive a restart.
func Init() {
	var err error
	publicKey, privateKey, err = ed25519.GenerateKey(nil)
	if err != nil {
		log.Fatalf("failed to generate ed25519 key pair: %v", err)
	}
	if err := parseTokenExpireTime(); err != nil {
		log.Fatal(err)
	}
}

// InitFromPath reads raw ed25519 private/public keys from file and sets the token expiration.
func InitFromPath(privatePath, publicPath string) error {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return fmt.Errorf("key files have wrong size for ed25519")
	}

	privateKey = ed25519.PrivateKey(privateKeyData)
	publicKey = ed25519.PublicKey(publicKeyData)
	return parseTokenExpireTime()
}

// CreateJWT issues a token whose "sub" is the given address.
func CreateJWT(addr address.Address) (string, error) {
	if err := address.Check(addr.String()); err != nil {
		return "", err
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:  addr.String(),
		Issuer:   issuer,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if TokenExpiry > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(TokenExpiry))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateJWT verifies a JWT string and returns the address it was issued to.
func AuthenticateJWT(tokenString string) (address.Address, error) {
	var claims jwt.RegisteredClaims
	t, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return publicKey, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return "", fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return "", fmt.Errorf("invalid token")
	}

	addr, err := address.Parse(claims.Subject)
	if err != nil {
		return "", fmt.Errorf("bad subject in jwt: %w", err)
	}
	return addr, nil
}
