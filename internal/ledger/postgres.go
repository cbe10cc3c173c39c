package ledger

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const createPublishClaimsTable = `
CREATE TABLE IF NOT EXISTS publish_claims (
	mr_key     TEXT PRIMARY KEY,
	event_id   TEXT NOT NULL,
	claimed_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Postgres is a Ledger backed by a publish_claims table. The claim is a
// plain insert with a primary-key conflict: whichever event's insert
// lands first wins, across any number of service instances.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	if _, err := pool.Exec(ctx, createPublishClaimsTable); err != nil {
		return nil, fmt.Errorf("creating publish_claims table: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) ClaimPublish(ctx context.Context, mrKey, eventID string) (bool, error) {
	tag, err := p.pool.Exec(ctx,
		`INSERT INTO publish_claims (mr_key, event_id) VALUES ($1, $2)
		 ON CONFLICT (mr_key) DO NOTHING`,
		mrKey, eventID)
	if err != nil {
		return false, fmt.Errorf("claiming publish for %s: %w", mrKey, err)
	}
	return tag.RowsAffected() == 1, nil
}
