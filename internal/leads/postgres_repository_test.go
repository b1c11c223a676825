package leads

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
)

var leadRowColumns = []string{"id", "name", "phone", "email", "lead_source", "status", "notes", "created_by", "created_at", "updated_at"}

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *PostgresRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, NewPostgresRepositoryWithDB(mock)
}

func TestPostgresRepository_Create(t *testing.T) {
	mock, repo := newMockRepo(t)
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	notes := "hot lead"

	mock.ExpectQuery(`INSERT INTO leads`).
		WithArgs("A", "+12345678901", "a@x.com", "website", "new_lead", &notes, int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(11), created, created))

	lead, err := repo.Create(context.Background(), &Lead{
		Name: "A", Phone: "+12345678901", Email: "a@x.com",
		Source: SourceWebsite, Status: StatusNewLead, Notes: &notes, CreatedBy: 7,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if lead.ID != 11 || !lead.CreatedAt.Equal(created) || lead.CreatedBy != 7 {
		t.Fatalf("unexpected lead %+v", lead)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_GetByID_NotFound(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM leads WHERE id = $1 AND created_by = $2`)).
		WithArgs(int64(5), int64(1)).
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), 1, 5); !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_ListWithFilters(t *testing.T) {
	mock, repo := newMockRepo(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(
		`FROM leads WHERE created_by = $1 AND status = $2 AND (name ILIKE $3 OR email ILIKE $3 OR phone ILIKE $3) ORDER BY created_at DESC, id DESC`)).
		WithArgs(int64(1), "new_lead", `%50\%\_off%`).
		WillReturnRows(pgxmock.NewRows(leadRowColumns).
			AddRow(int64(2), "Acme", "123456789", "a@acme.com", "referral", "new_lead", (*string)(nil), int64(1), now, now))

	leads, err := repo.List(context.Background(), 1, ListLeadsFilter{Status: StatusNewLead, Search: "50%_off"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(leads) != 1 || leads[0].Source != SourceReferral || leads[0].Status != StatusNewLead || leads[0].Notes != nil {
		t.Fatalf("unexpected leads %+v", leads)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_ListWithoutFilters(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM leads WHERE created_by = $1 ORDER BY created_at DESC, id DESC`)).
		WithArgs(int64(3)).
		WillReturnRows(pgxmock.NewRows(leadRowColumns))

	leads, err := repo.List(context.Background(), 3, ListLeadsFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if leads == nil || len(leads) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", leads)
	}
}

func TestPostgresRepository_UpdateStatus(t *testing.T) {
	mock, repo := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE leads SET status = $1, updated_at = NOW()`)).
		WithArgs("deal_done", int64(4), int64(1)).
		WillReturnRows(pgxmock.NewRows(leadRowColumns).
			AddRow(int64(4), "A", "123456789", "a@x.com", "website", "deal_done", (*string)(nil), int64(1), now, now))

	lead, err := repo.UpdateStatus(context.Background(), 1, 4, StatusDealDone)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if lead.Status != StatusDealDone {
		t.Fatalf("expected deal_done, got %s", lead.Status)
	}

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE leads SET status = $1, updated_at = NOW()`)).
		WithArgs("deal_done", int64(4), int64(2)).
		WillReturnError(pgx.ErrNoRows)
	if _, err := repo.UpdateStatus(context.Background(), 2, 4, StatusDealDone); !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_Delete(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectExec(`DELETE FROM leads`).
		WithArgs(int64(9), int64(1)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM leads`).
		WithArgs(int64(9), int64(2)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.Delete(context.Background(), 1, 9); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := repo.Delete(context.Background(), 2, 9); !errors.Is(err, ErrLeadNotFound) {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresRepository_CountByStatus(t *testing.T) {
	mock, repo := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status, COUNT(*) FROM leads WHERE created_by = $1 GROUP BY status`)).
		WithArgs(int64(1)).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow("new_lead", int64(3)).
			AddRow("deal_done", int64(1)))

	counts, err := repo.CountByStatus(context.Background(), 1)
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if counts[StatusNewLead] != 3 || counts[StatusDealDone] != 1 || counts[StatusLeadSent] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`a%b_c\d`); got != `a\%b\_c\\d` {
		t.Fatalf("escapeLike = %q", got)
	}
}
