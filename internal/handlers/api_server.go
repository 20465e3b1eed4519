// internal/handlers/api_server.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/jason-s-yu/pokerbets/internal/events"
	"github.com/jason-s-yu/pokerbets/internal/ledger"
	"github.com/jason-s-yu/pokerbets/internal/metrics"
	"github.com/jason-s-yu/pokerbets/internal/middleware"
	"github.com/sirupsen/logrus"
)

// APIServer holds what the HTTP handlers share.
type APIServer struct {
	Ledger  *ledger.Ledger
	Hub     *events.Hub
	Metrics *metrics.Registry
	Logger  *logrus.Logger

	// DevMode enables the faucet and dev-token endpoints.
	DevMode bool

	validate *validator.Validate
}

func NewAPIServer(l *ledger.Ledger, hub *events.Hub, m *metrics.Registry, logger *logrus.Logger, devMode bool) *APIServer {
	return &APIServer{
		Ledger:   l,
		Hub:      hub,
		Metrics:  m,
		Logger:   logger,
		DevMode:  devMode,
		validate: validator.New(),
	}
}

// Router wires every route behind request logging and CORS.
func (s *APIServer) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.LogMiddleware(s.Logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/debug/metrics", s.Metrics.Handler())

	if s.DevMode {
		r.Post("/auth/dev-token", DevTokenHandler(s))
		r.Post("/account/fund", FundHandler(s))
	}
	r.Get("/account/{address}/balance", BalanceHandler(s))

	r.Route("/lobby", func(r chi.Router) {
		r.Post("/create", CreateLobbyHandler(s))
		r.Get("/ws/{gameID}", LobbyWSHandler(s))
		r.Get("/{gameID}", GetLobbyHandler(s))
		r.Get("/{gameID}/bets", ListBetsHandler(s))
		r.Get("/{gameID}/audit", AuditHandler(s))
		r.Post("/{gameID}/status", UpdateStatusHandler(s))
		r.Post("/{gameID}/bet", PlaceBetHandler(s))
		r.Post("/{gameID}/settle", SettleHandler(s))
	})

	return r
}
