package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	userColumns = `id, username, email, first_name, last_name, password_hash, date_joined`

	uniqueViolation       = "23505"
	usernameConstraint    = "users_username_key"
	emailLowerUniqueIndex = "users_email_lower_key"
)

// usersDB is the subset of pgxpool.Pool used by PostgresRepository.
type usersDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores users in PostgreSQL.
type PostgresRepository struct {
	db usersDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("users: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db usersDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *User) (*User, error) {
	query := `
		INSERT INTO users (username, email, first_name, last_name, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, date_joined
	`
	out := *user
	if err := r.db.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.PasswordHash,
	).Scan(&out.ID, &out.DateJoined); err != nil {
		if dup := duplicateError(err); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("users: insert failed: %w", err)
	}
	return &out, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email)
}

func (r *PostgresRepository) UsernameTaken(ctx context.Context, username string, excludeID int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 AND id <> $2)`, username, excludeID)
}

func (r *PostgresRepository) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE LOWER(email) = LOWER($1) AND id <> $2)`, email, excludeID)
}

// Update writes the profile fields of user.
func (r *PostgresRepository) Update(ctx context.Context, user *User) (*User, error) {
	query := `
		UPDATE users
		SET username = $1, email = $2, first_name = $3, last_name = $4
		WHERE id = $5
		RETURNING ` + userColumns
	out, err := scanUser(r.db.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.FirstName,
		user.LastName,
		user.ID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		if dup := duplicateError(err); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("users: update failed: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, hash, id)
	if err != nil {
		return fmt.Errorf("users: update password failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("users: select failed: %w", err)
	}
	return u, nil
}

func (r *PostgresRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var ok bool
	if err := r.db.QueryRow(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("users: exists query failed: %w", err)
	}
	return ok, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.DateJoined); err != nil {
		return nil, err
	}
	return &u, nil
}

// duplicateError maps a unique violation to the matching sentinel, or nil.
func duplicateError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return nil
	}
	switch pgErr.ConstraintName {
	case usernameConstraint:
		return ErrDuplicateUsername
	case emailLowerUniqueIndex:
		return ErrDuplicateEmail
	}
	return fmt.Errorf("users: unique violation on %s: %w", pgErr.ConstraintName, err)
}
