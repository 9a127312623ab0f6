package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/vmoraes/debtflow/internal/core/domain"
)

type DebtRepository struct {
	db *sql.DB
}

func NewDebtRepository(db *sql.DB) *DebtRepository {
	return &DebtRepository{db: db}
}

// Create appends a debt keyed by its staged row. A redelivered row conflicts
// on contact_id and inserts nothing; resubmitted batches carry fresh row ids
// and append again.
func (r *DebtRepository) Create(ctx context.Context, debt *domain.Debt) error {
	metadata, err := json.Marshal(debt.Metadata)
	if err != nil {
		return fmt.Errorf("marshal debt metadata: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO debts (
	id, company_id, person_id, contact_id, contract_number, original_amount, current_amount, due_date, status, metadata, created_at
) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11)
ON CONFLICT (contact_id) DO NOTHING
`,
		debt.ID, debt.CompanyID, debt.PersonID, debt.ContactID, debt.ContractNumber,
		debt.OriginalAmount, debt.CurrentAmount, nullableTime(debt.DueDate),
		debt.Status, metadata, debt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert debt: %w", err)
	}
	return nil
}
