// internal/database/balance.go
package database

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jason-s-yu/pokerbets/internal/address"
)

// Balance reads an account. In write transactions the row is created if
// missing and then locked, so concurrent credits to a new account queue up
// instead of overwriting each other.
func (t *pgTx) Balance(addr address.Address) (uint64, error) {
	if !t.readOnly {
		q := `INSERT INTO balances (address, amount) VALUES ($1, 0) ON CONFLICT (address) DO NOTHING`
		if _, err := t.tx.Exec(t.ctx, q, addr.String()); err != nil {
			return 0, err
		}
	}

	var n pgtype.Numeric
	q := `SELECT amount FROM balances WHERE address = $1` + t.lockClause()
	rows, err := t.tx.Query(t.ctx, q, addr.String())
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	if !rows.Next() {
		return 0, rows.Err()
	}
	if err := rows.Scan(&n); err != nil {
		return 0, err
	}
	return fromNumeric(n)
}

func (t *pgTx) SetBalance(addr address.Address, amount uint64) error {
	if err := t.writable(); err != nil {
		return err
	}
	q := `
	INSERT INTO balances (address, amount) VALUES ($1, $2)
	ON CONFLICT (address) DO UPDATE SET amount = EXCLUDED.amount
	`
	_, err := t.tx.Exec(t.ctx, q, addr.String(), toNumeric(amount))
	return err
}
