package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/vmoraes/debtflow/internal/core/domain"
)

func newImportRepoWithMock(t *testing.T) (*ImportRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ImportRepository{db: db}, mock, func() { _ = db.Close() }
}

func stagedImport() *domain.Import {
	return &domain.Import{
		ID:           "import-1",
		CompanyID:    "company-1",
		FileName:     "contacts.csv",
		FileType:     "csv",
		TotalRecords: 3,
		Status:       domain.ImportStatusProcessing,
		CreatedAt:    time.Now().UTC(),
	}
}

func stagedContacts(importID string, n int) []domain.Contact {
	contacts := make([]domain.Contact, n)
	for i := range contacts {
		contacts[i] = domain.Contact{
			ID:        "contact-" + string(rune('a'+i)),
			CompanyID: "company-1",
			ImportID:  importID,
			RawData:   map[string]any{"cpf": "11111111111"},
			Status:    domain.ContactStatusPending,
			CreatedAt: time.Now().UTC(),
		}
	}
	return contacts
}

func TestStageCommitsHeaderAndChunksInOneTx(t *testing.T) {
	repo, mock, done := newImportRepoWithMock(t)
	defer done()

	imp := stagedImport()
	contacts := stagedContacts(imp.ID, 3)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO imports").
		WithArgs(imp.ID, imp.CompanyID, imp.FileName, imp.FileType, imp.TotalRecords, string(imp.Status), imp.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO contacts").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO contacts").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Stage(context.Background(), imp, contacts, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestStageRollsBackWhenChunkFails(t *testing.T) {
	repo, mock, done := newImportRepoWithMock(t)
	defer done()

	imp := stagedImport()
	contacts := stagedContacts(imp.ID, 2)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO imports").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO contacts").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	if err := repo.Stage(context.Background(), imp, contacts, 100); err == nil {
		t.Fatal("expected staging error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetImportReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newImportRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, company_id, file_name").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetImport(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetImportDecodesErrorLog(t *testing.T) {
	repo, mock, done := newImportRepoWithMock(t)
	defer done()

	created := time.Now().UTC()
	completed := created.Add(time.Minute)
	errorLog, _ := json.Marshal([]domain.RowError{{ContactID: "contact-a", Message: "cpf is required"}})

	rows := sqlmock.NewRows([]string{
		"id", "company_id", "file_name", "file_type", "total_records",
		"valid_records", "invalid_records", "status", "error_log", "created_at", "completed_at",
	}).AddRow("import-1", "company-1", "contacts.csv", "csv", 3, 2, 1, "completed", errorLog, created, completed)

	mock.ExpectQuery("SELECT id, company_id, file_name").
		WithArgs("import-1").
		WillReturnRows(rows)

	imp, err := repo.GetImport(context.Background(), "import-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if imp.Status != domain.ImportStatusCompleted {
		t.Fatalf("expected completed status, got %q", imp.Status)
	}
	if len(imp.ErrorLog) != 1 || imp.ErrorLog[0].ContactID != "contact-a" {
		t.Fatalf("unexpected error log: %+v", imp.ErrorLog)
	}
	if imp.CompletedAt == nil || !imp.CompletedAt.Equal(completed) {
		t.Fatalf("unexpected completed at: %v", imp.CompletedAt)
	}
}

func TestListPendingContactsKeepsNumericDigits(t *testing.T) {
	repo, mock, done := newImportRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{
		"id", "company_id", "import_id", "raw_data", "status", "error_message", "created_at", "processed_at",
	}).AddRow("contact-a", "company-1", "import-1", []byte(`{"cpf":12345678901}`), "pending", nil, time.Now().UTC(), nil)

	mock.ExpectQuery("FROM contacts").
		WithArgs("import-1", "pending").
		WillReturnRows(rows)

	contacts, err := repo.ListPendingContacts(context.Background(), "import-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contacts) != 1 {
		t.Fatalf("expected one contact, got %d", len(contacts))
	}
	cpf, ok := contacts[0].RawData["cpf"].(json.Number)
	if !ok || cpf.String() != "12345678901" {
		t.Fatalf("expected numeric cpf to keep digits, got %#v", contacts[0].RawData["cpf"])
	}
}

func TestMarkContactProcessedOnlyTouchesPendingRows(t *testing.T) {
	repo, mock, done := newImportRepoWithMock(t)
	defer done()

	processedAt := time.Now().UTC()
	mock.ExpectExec("UPDATE contacts").
		WithArgs("contact-a", "processed", processedAt, "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkContactProcessed(context.Background(), "contact-a", processedAt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkContactFailedStoresMessage(t *testing.T) {
	repo, mock, done := newImportRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE contacts").
		WithArgs("contact-a", "failed", "cpf is required", "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkContactFailed(context.Background(), "contact-a", "cpf is required"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCountContactsByStatus(t *testing.T) {
	repo, mock, done := newImportRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"status", "count"}).
		AddRow("processed", 7).
		AddRow("failed", 2)

	mock.ExpectQuery("GROUP BY status").
		WithArgs("import-1").
		WillReturnRows(rows)

	counts, err := repo.CountContactsByStatus(context.Background(), "import-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts[domain.ContactStatusProcessed] != 7 || counts[domain.ContactStatusFailed] != 2 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestFinalizePassesNilLedgerAsNull(t *testing.T) {
	repo, mock, done := newImportRepoWithMock(t)
	defer done()

	completedAt := time.Now().UTC()
	mock.ExpectExec("UPDATE imports").
		WithArgs("import-1", 5, 0, "completed", nil, completedAt, "processing").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Finalize(context.Background(), "import-1", 5, 0, domain.ImportStatusCompleted, nil, completedAt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListStuckImports(t *testing.T) {
	repo, mock, done := newImportRepoWithMock(t)
	defer done()

	cutoff := time.Now().UTC().Add(-30 * time.Minute)
	rows := sqlmock.NewRows([]string{"id"}).AddRow("import-1").AddRow("import-2")

	mock.ExpectQuery("FROM imports").
		WithArgs("processing", cutoff).
		WillReturnRows(rows)

	ids, err := repo.ListStuckImports(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "import-1" || ids[1] != "import-2" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}
