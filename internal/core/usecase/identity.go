package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vmoraes/debtflow/internal/core/domain"
	"github.com/vmoraes/debtflow/internal/core/normalize"
	"github.com/vmoraes/debtflow/internal/core/ports"
)

// IdentityResolver finds-or-creates the person behind a normalized row and
// idempotently links its phone number. All find-or-create steps are single
// atomic upserts in the repository; two rows carrying the same CPF may be
// resolved concurrently without creating duplicates.
type IdentityResolver struct {
	people ports.PersonRepository
}

func NewIdentityResolver(people ports.PersonRepository) *IdentityResolver {
	return &IdentityResolver{people: people}
}

func (r *IdentityResolver) Resolve(ctx context.Context, companyID string, row normalize.Row) (*domain.Person, error) {
	now := time.Now().UTC()

	person, err := r.people.UpsertPerson(ctx, &domain.Person{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		CPF:       row.CPF,
		Name:      row.Name,
		Email:     row.Email,
		BirthDate: row.BirthDate,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert person: %w", err)
	}

	if row.PhoneNumber == "" {
		return person, nil
	}

	phone, err := r.people.UpsertPhone(ctx, &domain.Phone{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		Number:    row.PhoneNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("upsert phone: %w", err)
	}

	link := domain.PersonPhone{
		PersonID:  person.ID,
		PhoneID:   phone.ID,
		IsPrimary: row.IsPrimaryPhone,
	}
	if err := r.people.UpsertPersonPhone(ctx, link); err != nil {
		return nil, fmt.Errorf("link person phone: %w", err)
	}

	return person, nil
}
