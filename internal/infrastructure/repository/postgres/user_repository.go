package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vmoraes/debtflow/internal/core/domain"
)

// UserRepository resolves the company owning a submission. Users are managed
// elsewhere; this subsystem only reads them.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CompanyIDForUser(ctx context.Context, userID string) (string, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT company_id
FROM users
WHERE id = $1
`, userID)

	var companyID sql.NullString
	if err := row.Scan(&companyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.WrapError(domain.ErrNotFound, "resolve company", fmt.Errorf("user %s", userID))
		}
		return "", fmt.Errorf("scan user company: %w", err)
	}
	if !companyID.Valid || companyID.String == "" {
		return "", domain.WrapError(domain.ErrNotFound, "resolve company", errors.New("user has no company assigned"))
	}
	return companyID.String, nil
}
