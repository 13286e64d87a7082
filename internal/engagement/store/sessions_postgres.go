package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/anime-engagement/internal/engagement/actor"
)

// PostgresSessionStore persists anonymous sessions.
type PostgresSessionStore struct {
	db *pgxpool.Pool
}

func NewPostgresSessionStore(db *pgxpool.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{db: db}
}

// UpsertVisit creates or refreshes the session row in one round trip.
// The visit bump is a field-level increment on the existing row, so
// concurrent requests with the same token never lose a visit.
func (s *PostgresSessionStore) UpsertVisit(ctx context.Context, v actor.Visit) (int64, error) {
	const q = `INSERT INTO anonymous_sessions
	             (session_token, fingerprint_hash, ip_address, country, city)
	           VALUES ($1, $2, $3, $4, $5)
	           ON CONFLICT (session_token) DO UPDATE SET
	             total_visits = anonymous_sessions.total_visits + 1,
	             last_seen_at = now()
	           RETURNING id`

	var id int64
	err := s.db.QueryRow(ctx, q,
		v.SessionToken, v.FingerprintHash, v.IPAddress, v.Country, v.City,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}
