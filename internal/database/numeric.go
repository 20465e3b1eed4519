// internal/database/numeric.go
package database

import (
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

var maxUint64 = decimal.NewFromBigInt(new(big.Int).SetUint64(^uint64(0)), 0)

// toNumeric encodes a base-unit amount for a NUMERIC(20,0) column.
func toNumeric(v uint64) pgtype.Numeric {
	return pgtype.Numeric{Int: new(big.Int).SetUint64(v), Valid: true}
}

// fromNumeric decodes a NUMERIC(20,0) column; NULL reads as 0.
func fromNumeric(n pgtype.Numeric) (uint64, error) {
	if !n.Valid {
		return 0, nil
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return 0, fmt.Errorf("numeric %v is not a finite amount", n)
	}
	d := decimal.NewFromBigInt(n.Int, n.Exp)
	if d.IsNegative() || !d.Equal(d.Truncate(0)) || d.GreaterThan(maxUint64) {
		return 0, fmt.Errorf("numeric %s out of uint64 range", d)
	}
	return d.BigInt().Uint64(), nil
}
