package meta

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/driftlabs/driftfile/internal/common"
	"github.com/driftlabs/driftfile/internal/dbx"
	"github.com/driftlabs/driftfile/internal/meta/migrations"
)

// pgUniqueViolation is the Postgres error code for duplicate keys.
const pgUniqueViolation = "23505"

// PostgresStore implements Store over database/sql with the pgx driver.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an existing connection. Used directly by tests;
// production code goes through Open.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Open connects to Postgres under dsn, applies the embedded migrations, and
// returns the store.
func Open(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	s := NewPostgresStore(db)
	if err := s.runMigrations(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return s, nil
}

func (s *PostgresStore) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.UpContext(ctx, s.db, "."); err != nil {
		return err
	}

	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Create(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO files (id, owner_token, metadata, auth_tag, nonce, download_limit, download_count, encrypted, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.OwnerToken, rec.Metadata, rec.AuthTag, rec.Nonce,
		rec.DownloadLimit, rec.DownloadCount, rec.Encrypted, rec.CreatedAt, rec.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Get returns only records that are still retrievable: unexpired and under
// their download limit.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Record, error) {
	query := `
		SELECT id, owner_token, metadata, auth_tag, nonce, download_limit, download_count, encrypted, created_at, expires_at
		FROM files
		WHERE id=$1 AND expires_at > now() AND download_count < download_limit
	`
	rec := &Record{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.OwnerToken, &rec.Metadata, &rec.AuthTag, &rec.Nonce,
		&rec.DownloadLimit, &rec.DownloadCount, &rec.Encrypted, &rec.CreatedAt, &rec.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

// ReserveDownload takes one slot in a single statement so concurrent readers
// can never exceed the limit. RETURNING evaluates against the updated row,
// so the result is the count remaining after this reservation.
func (s *PostgresStore) ReserveDownload(ctx context.Context, id string) (int, error) {
	query := `
		UPDATE files
		SET download_count = download_count + 1
		WHERE id=$1 AND download_count < download_limit AND expires_at > now()
		RETURNING download_limit - download_count
	`
	var remaining int
	err := s.db.QueryRowContext(ctx, query, id).Scan(&remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return remaining, nil
}

// DeleteOwned locks the row, compares the owner token in constant time, and
// deletes within the same transaction.
func (s *PostgresStore) DeleteOwned(ctx context.Context, id, ownerToken string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var token string
		err := tx.QueryRowContext(ctx, `SELECT owner_token FROM files WHERE id=$1 FOR UPDATE`, id).Scan(&token)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return common.ErrorNotFound
			}
			return fmt.Errorf("db error: %w", err)
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(ownerToken)) != 1 {
			return common.ErrorUnauthorized
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE id=$1`, id); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE id=$1`, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *PostgresStore) ExpiredIDs(ctx context.Context, now time.Time, limit int) ([]string, error) {
	query := `SELECT id FROM files WHERE expires_at <= $1 ORDER BY expires_at LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to select expired ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
