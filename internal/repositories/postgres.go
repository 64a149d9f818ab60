package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	crdbpgx "github.com/cockroachdb/cockroach-go/v2/crdb/crdbpgxv5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/friendly/backend/internal/db"
	"github.com/friendly/backend/internal/models"
)

const userColumns = `id, username, password_hash, friends, requests_sent, requests_inbox, created_at, updated_at`

// PostgresUserRepository provides PostgreSQL/CockroachDB-backed persistence for
// users and their relation sets.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, password_hash, friends, requests_sent, requests_inbox, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, user.ID, user.Username, user.Password,
		normalize(user.Friends), normalize(user.RequestsSent), normalize(user.RequestsInbox),
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByUsername fetches a user by their exact username.
func (r *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// FindByID fetches a user by identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, query string, arg string) (models.User, error) {
	var user models.User
	err := withConn(ctx, r.pool, func(conn *pgxpool.Conn) error {
		var err error
		user, err = scanUser(conn.QueryRow(ctx, query, arg))
		return err
	})
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return models.User{}, ErrNotFound
	case err != nil:
		return models.User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

// FindByIDs fetches every user that exists among ids.
func (r *PostgresUserRepository) FindByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	ids = normalize(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	var users []models.User
	err := withConn(ctx, r.pool, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, ids)
		if err != nil {
			return fmt.Errorf("query users by id: %w", err)
		}
		users, err = collectUsers(rows)
		return err
	})
	return users, err
}

// SearchUsername returns users whose username contains query, ignoring case.
func (r *PostgresUserRepository) SearchUsername(ctx context.Context, query string) ([]models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+userColumns+`
        FROM users
        WHERE strpos(lower(username), lower($1)) > 0
        ORDER BY username
    `, query)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return collectUsers(rows)
}

// Mutate locks the rows named by ids inside a serializable transaction, hands
// them to fn and writes back the relation sets when fn succeeds. Rows are locked
// in id order so concurrent mutations over overlapping pairs cannot deadlock,
// and serialization failures are retried by crdbpgx, which may call fn again.
func (r *PostgresUserRepository) Mutate(ctx context.Context, ids []string, fn MutateFunc) error {
	ids = normalize(ids)

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return crdbpgx.ExecuteTx(ctx, conn, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
            SELECT `+userColumns+`
            FROM users
            WHERE id = ANY($1)
            ORDER BY id
            FOR UPDATE
        `, ids)
		if err != nil {
			return fmt.Errorf("lock users: %w", err)
		}
		users, err := collectUsers(rows)
		if err != nil {
			return err
		}

		records := make(map[string]*models.User, len(users))
		for i := range users {
			records[users[i].ID] = &users[i]
		}

		if err := fn(records); err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, id := range ids {
			user, ok := records[id]
			if !ok {
				continue
			}
			if _, err := tx.Exec(ctx, `
                UPDATE users
                SET friends = $2, requests_sent = $3, requests_inbox = $4, updated_at = $5
                WHERE id = $1
            `, id, normalize(user.Friends), normalize(user.RequestsSent), normalize(user.RequestsInbox), now); err != nil {
				return fmt.Errorf("update user %s: %w", id, err)
			}
		}
		return nil
	})
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Password,
		&user.Friends,
		&user.RequestsSent,
		&user.RequestsInbox,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return models.User{}, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.UpdatedAt = user.UpdatedAt.UTC()
	return user, nil
}

func collectUsers(rows pgx.Rows) ([]models.User, error) {
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
