package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrEthical07/authcore/account"
	"github.com/MrEthical07/authcore/internal/dbx"
	"github.com/MrEthical07/authcore/permission"
	"github.com/MrEthical07/authcore/store/postgres/migrations"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// bootstrapLockKey is the advisory lock held while counting accounts and
// inserting a new one.
const bootstrapLockKey int64 = 0x61757468636f7265

const uniqueViolation = "23505"

const accountColumns = `identity, display_name, avatar, password_hash, confirmed, active, role, refresh_token, created_at, updated_at`

// Store is an account.Store backed by a *sql.DB opened with the "pgx" driver.
type Store struct {
	db *sql.DB
}

// New returns a Store using db.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens a pgx-backed *sql.DB for dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*account.Account, error) {
	var (
		a       account.Account
		role    string
		refresh sql.NullString
	)
	if err := row.Scan(&a.Identity, &a.DisplayName, &a.Avatar, &a.PasswordHash, &a.Confirmed, &a.Active, &role, &refresh, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	r, err := permission.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("account %q: %w", a.Identity, err)
	}
	a.Role = r
	a.RefreshToken = refresh.String
	return &a, nil
}

func (s *Store) GetByIdentity(ctx context.Context, identity string) (*account.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE identity = $1`
	acct, err := scanAccount(s.db.QueryRowContext(ctx, query, identity))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return acct, nil
}

// CreateAccount serializes concurrent signups with a transaction-scoped
// advisory lock so the account count seen by assign is exact.
func (s *Store) CreateAccount(ctx context.Context, in account.CreateInput, assign account.RoleAssigner) (*account.Account, error) {
	var created *account.Account
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, bootstrapLockKey); err != nil {
			return fmt.Errorf("db error: %w", err)
		}

		var existing int64
		if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM accounts`).Scan(&existing); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		role := assign(existing)

		query := `
			INSERT INTO accounts (identity, display_name, avatar, password_hash, role)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING ` + accountColumns
		acct, err := scanAccount(tx.QueryRowContext(ctx, query, in.Identity, in.DisplayName, in.Avatar, in.PasswordHash, string(role)))
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return account.ErrExists
			}
			return fmt.Errorf("db error: %w", err)
		}
		created = acct
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) SetRefreshToken(ctx context.Context, identity, token string) error {
	return s.exec(ctx, `UPDATE accounts SET refresh_token = NULLIF($2, ''), updated_at = now() WHERE identity = $1`, identity, token)
}

// SwapRefreshToken is a single conditional UPDATE. A NULL stored token never
// matches.
func (s *Store) SwapRefreshToken(ctx context.Context, identity, presented, next string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET refresh_token = $3, updated_at = now() WHERE identity = $1 AND refresh_token = $2`,
		identity, presented, next)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (s *Store) MarkConfirmed(ctx context.Context, identity string) error {
	return s.exec(ctx, `UPDATE accounts SET confirmed = TRUE, updated_at = now() WHERE identity = $1`, identity)
}

func (s *Store) UpdateRole(ctx context.Context, identity string, role permission.Role) error {
	return s.exec(ctx, `UPDATE accounts SET role = $2, updated_at = now() WHERE identity = $1`, identity, string(role))
}

func (s *Store) UpdateActive(ctx context.Context, identity string, active bool) error {
	return s.exec(ctx, `UPDATE accounts SET active = $2, updated_at = now() WHERE identity = $1`, identity, active)
}

func (s *Store) UpdateProfile(ctx context.Context, identity string, patch account.ProfilePatch) (*account.Account, error) {
	query := `
		UPDATE accounts
		SET display_name = COALESCE($2, display_name),
		    avatar = COALESCE($3, avatar),
		    updated_at = now()
		WHERE identity = $1
		RETURNING ` + accountColumns
	acct, err := scanAccount(s.db.QueryRowContext(ctx, query, identity, nullable(patch.DisplayName), nullable(patch.Avatar)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, account.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return acct, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, identity, hash string) error {
	return s.exec(ctx, `UPDATE accounts SET password_hash = $2, updated_at = now() WHERE identity = $1`, identity, hash)
}

func (s *Store) exec(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return account.ErrNotFound
	}
	return nil
}

func nullable(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
