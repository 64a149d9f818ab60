package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/friendly/backend/internal/auth"
	"github.com/friendly/backend/internal/db"
)

// PostgresSessionStore keeps refresh sessions in the sessions table. Rows are
// removed with their user through the foreign key cascade.
type PostgresSessionStore struct {
	pool db.Pool
}

// NewPostgresSessionStore constructs a session store backed by PostgreSQL.
func NewPostgresSessionStore(pool db.Pool) *PostgresSessionStore {
	return &PostgresSessionStore{pool: pool}
}

// Save stores session, replacing the expiry of an existing refresh token.
func (s *PostgresSessionStore) Save(ctx context.Context, session auth.Session) error {
	return withConn(ctx, s.pool, func(conn *pgxpool.Conn) error {
		if _, err := conn.Exec(ctx, `
            INSERT INTO sessions (refresh_token, user_id, expires_at)
            VALUES ($1, $2, $3)
            ON CONFLICT (refresh_token)
            DO UPDATE SET user_id = EXCLUDED.user_id, expires_at = EXCLUDED.expires_at
        `, session.RefreshToken, session.UserID, session.ExpiresAt.UTC()); err != nil {
			return fmt.Errorf("upsert session: %w", err)
		}
		return nil
	})
}

// Find loads the session for refreshToken.
func (s *PostgresSessionStore) Find(ctx context.Context, refreshToken string) (auth.Session, error) {
	var session auth.Session
	err := withConn(ctx, s.pool, func(conn *pgxpool.Conn) error {
		return conn.QueryRow(ctx, `
            SELECT refresh_token, user_id, expires_at
            FROM sessions
            WHERE refresh_token = $1
        `, refreshToken).Scan(&session.RefreshToken, &session.UserID, &session.ExpiresAt)
	})
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return auth.Session{}, auth.ErrSessionNotFound
	case err != nil:
		return auth.Session{}, fmt.Errorf("select session: %w", err)
	}

	session.ExpiresAt = session.ExpiresAt.UTC()
	return session, nil
}

// Delete removes the session for refreshToken, reporting ErrSessionNotFound
// when nothing was stored under it.
func (s *PostgresSessionStore) Delete(ctx context.Context, refreshToken string) error {
	return withConn(ctx, s.pool, func(conn *pgxpool.Conn) error {
		tag, err := conn.Exec(ctx, `DELETE FROM sessions WHERE refresh_token = $1`, refreshToken)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return auth.ErrSessionNotFound
		}
		return nil
	})
}

var _ auth.SessionStore = (*PostgresSessionStore)(nil)
