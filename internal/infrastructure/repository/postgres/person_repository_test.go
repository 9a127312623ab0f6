package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/vmoraes/debtflow/internal/core/domain"
)

func newPersonRepoWithMock(t *testing.T) (*PersonRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &PersonRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestUpsertPersonReturnsSurvivingRow(t *testing.T) {
	repo, mock, done := newPersonRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	incoming := &domain.Person{
		ID:        "new-id",
		CompanyID: "company-1",
		CPF:       "11111111111",
		Name:      "Maria Silva",
		CreatedAt: now,
		UpdatedAt: now,
	}

	rows := sqlmock.NewRows([]string{
		"id", "company_id", "cpf", "name", "email", "birth_date", "created_at", "updated_at",
	}).AddRow("existing-id", "company-1", "11111111111", "Maria Silva", "maria@example.com", nil, now.Add(-time.Hour), now)

	mock.ExpectQuery("INSERT INTO people").
		WithArgs("new-id", "company-1", "11111111111", "Maria Silva", "", nil, now, now).
		WillReturnRows(rows)

	out, err := repo.UpsertPerson(context.Background(), incoming)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ID != "existing-id" {
		t.Fatalf("expected the stored row id to survive, got %q", out.ID)
	}
	if out.Email != "maria@example.com" {
		t.Fatalf("expected stored email to survive an empty incoming email, got %q", out.Email)
	}
	if out.BirthDate != nil {
		t.Fatalf("expected nil birth date, got %v", out.BirthDate)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertPhoneReturnsExistingRow(t *testing.T) {
	repo, mock, done := newPersonRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "company_id", "phone_number"}).
		AddRow("existing-phone", "company-1", "11988887777")

	mock.ExpectQuery("INSERT INTO phones").
		WithArgs("new-phone", "company-1", "11988887777").
		WillReturnRows(rows)

	out, err := repo.UpsertPhone(context.Background(), &domain.Phone{
		ID:        "new-phone",
		CompanyID: "company-1",
		Number:    "11988887777",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ID != "existing-phone" {
		t.Fatalf("expected the stored phone id to survive, got %q", out.ID)
	}
}

func TestUpsertPersonPhoneOverwritesPrimaryFlag(t *testing.T) {
	repo, mock, done := newPersonRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO people_phones").
		WithArgs("person-1", "phone-1", true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpsertPersonPhone(context.Background(), domain.PersonPhone{
		PersonID:  "person-1",
		PhoneID:   "phone-1",
		IsPrimary: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
