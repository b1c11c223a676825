package leads

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadColumns = `id, name, phone, email, lead_source, status, notes, created_by, created_at, updated_at`

// leadsDB is the subset of pgxpool.Pool used by PostgresRepository.
type leadsDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	db leadsDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db leadsDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, lead *Lead) (*Lead, error) {
	query := `
		INSERT INTO leads (name, phone, email, lead_source, status, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	out := *lead
	if err := r.db.QueryRow(ctx, query,
		lead.Name,
		lead.Phone,
		lead.Email,
		string(lead.Source),
		string(lead.Status),
		lead.Notes,
		lead.CreatedBy,
	).Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt); err != nil {
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}
	return &out, nil
}

// GetByID fetches a lead scoped to the owner.
func (r *PostgresRepository) GetByID(ctx context.Context, ownerID, id int64) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1 AND created_by = $2`
	lead, err := scanLead(r.db.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return lead, nil
}

// List returns the owner's leads newest first, optionally filtered by exact
// status and a case-insensitive search across name, email and phone.
func (r *PostgresRepository) List(ctx context.Context, ownerID int64, filter ListLeadsFilter) ([]*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE created_by = $1`
	args := []any{ownerID}
	argNum := 2

	if filter.Status != "" {
		query += " AND status = $" + strconv.Itoa(argNum)
		args = append(args, string(filter.Status))
		argNum++
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		p := "$" + strconv.Itoa(argNum)
		query += " AND (name ILIKE " + p + " OR email ILIKE " + p + " OR phone ILIKE " + p + ")"
		args = append(args, "%"+escapeLike(search)+"%")
	}

	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	out := make([]*Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		out = append(out, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	return out, nil
}

// Update replaces the writable fields of an owned lead.
func (r *PostgresRepository) Update(ctx context.Context, lead *Lead) (*Lead, error) {
	query := `
		UPDATE leads
		SET name = $1, phone = $2, email = $3, lead_source = $4, status = $5, notes = $6, updated_at = NOW()
		WHERE id = $7 AND created_by = $8
		RETURNING ` + leadColumns
	updated, err := scanLead(r.db.QueryRow(ctx, query,
		lead.Name,
		lead.Phone,
		lead.Email,
		string(lead.Source),
		string(lead.Status),
		lead.Notes,
		lead.ID,
		lead.CreatedBy,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: update failed: %w", err)
	}
	return updated, nil
}

// UpdateStatus persists only the status column.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, ownerID, id int64, status Status) (*Lead, error) {
	query := `
		UPDATE leads SET status = $1, updated_at = NOW()
		WHERE id = $2 AND created_by = $3
		RETURNING ` + leadColumns
	updated, err := scanLead(r.db.QueryRow(ctx, query, string(status), id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: update status failed: %w", err)
	}
	return updated, nil
}

// Delete removes an owned lead.
func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM leads WHERE id = $1 AND created_by = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("leads: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// CountByStatus counts the owner's leads per status.
func (r *PostgresRepository) CountByStatus(ctx context.Context, ownerID int64) (map[Status]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT status, COUNT(*) FROM leads WHERE created_by = $1 GROUP BY status`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("leads: count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int64, len(Statuses))
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("leads: count by status: %w", err)
		}
		counts[Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: count by status: %w", err)
	}
	return counts, nil
}

// EmailExists reports whether any lead other than excludeID uses email.
func (r *PostgresRepository) EmailExists(ctx context.Context, email string, excludeID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM leads WHERE LOWER(email) = LOWER($1) AND id <> $2)`
	if err := r.db.QueryRow(ctx, query, email, excludeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("leads: email lookup failed: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*Lead, error) {
	var (
		lead           Lead
		source, status string
		createdAt      time.Time
		updatedAt      time.Time
	)
	if err := row.Scan(
		&lead.ID,
		&lead.Name,
		&lead.Phone,
		&lead.Email,
		&source,
		&status,
		&lead.Notes,
		&lead.CreatedBy,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	lead.Source = Source(source)
	lead.Status = Status(status)
	lead.CreatedAt = createdAt
	lead.UpdatedAt = updatedAt
	return &lead, nil
}

// escapeLike escapes LIKE wildcards so search terms match literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
