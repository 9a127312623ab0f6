package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vmoraes/debtflow/internal/core/domain"
)

type PersonRepository struct {
	db *sql.DB
}

func NewPersonRepository(db *sql.DB) *PersonRepository {
	return &PersonRepository{db: db}
}

// UpsertPerson inserts or merges a person keyed by (company_id, cpf) in one
// statement. The merge is non-destructive: an empty incoming name/email or a
// nil birth date keeps the stored value. The generated id is only used when
// the row is new; RETURNING always yields the surviving row.
func (r *PersonRepository) UpsertPerson(ctx context.Context, person *domain.Person) (*domain.Person, error) {
	row := r.db.QueryRowContext(ctx, `
INSERT INTO people (id, company_id, cpf, name, email, birth_date, created_at, updated_at)
VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)
ON CONFLICT (company_id, cpf) DO UPDATE SET
	name = COALESCE(NULLIF(EXCLUDED.name, ''), people.name),
	email = COALESCE(NULLIF(EXCLUDED.email, ''), people.email),
	birth_date = COALESCE(EXCLUDED.birth_date, people.birth_date),
	updated_at = EXCLUDED.updated_at
RETURNING id, company_id, cpf, COALESCE(name, ''), COALESCE(email, ''), birth_date, created_at, updated_at
`,
		person.ID, person.CompanyID, person.CPF, person.Name, person.Email,
		nullableTime(person.BirthDate), person.CreatedAt, person.UpdatedAt,
	)

	var out domain.Person
	var birthDate sql.NullTime
	err := row.Scan(
		&out.ID, &out.CompanyID, &out.CPF, &out.Name, &out.Email,
		&birthDate, &out.CreatedAt, &out.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert person: %w", err)
	}
	if birthDate.Valid {
		t := birthDate.Time
		out.BirthDate = &t
	}
	return &out, nil
}

// UpsertPhone finds-or-creates a phone keyed by (company_id, phone_number).
// The conflict branch is a no-op touch so RETURNING yields the existing row.
func (r *PersonRepository) UpsertPhone(ctx context.Context, phone *domain.Phone) (*domain.Phone, error) {
	row := r.db.QueryRowContext(ctx, `
INSERT INTO phones (id, company_id, phone_number)
VALUES ($1, $2, $3)
ON CONFLICT (company_id, phone_number) DO UPDATE SET phone_number = EXCLUDED.phone_number
RETURNING id, company_id, phone_number
`, phone.ID, phone.CompanyID, phone.Number)

	var out domain.Phone
	if err := row.Scan(&out.ID, &out.CompanyID, &out.Number); err != nil {
		return nil, fmt.Errorf("upsert phone: %w", err)
	}
	return &out, nil
}

// UpsertPersonPhone links a person to a phone; is_primary is overwritten on
// every re-link.
func (r *PersonRepository) UpsertPersonPhone(ctx context.Context, link domain.PersonPhone) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO people_phones (person_id, phone_id, is_primary)
VALUES ($1, $2, $3)
ON CONFLICT (person_id, phone_id) DO UPDATE SET is_primary = EXCLUDED.is_primary
`, link.PersonID, link.PhoneID, link.IsPrimary)
	if err != nil {
		return fmt.Errorf("upsert person phone: %w", err)
	}
	return nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
