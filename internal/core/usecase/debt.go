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

// DebtRecorder appends a debt for rows that carried financial columns. Each
// staged row yields at most one debt; resubmitted batches stage new rows and
// append again.
type DebtRecorder struct {
	debts ports.DebtRepository
}

func NewDebtRecorder(debts ports.DebtRepository) *DebtRecorder {
	return &DebtRecorder{debts: debts}
}

// Record inserts a debt when the raw row had an amount column, even one
// that normalized to zero. Rows without financial columns are skipped and
// return (nil, nil). contactID keys the insert so a redelivered row never
// produces a second debt.
func (r *DebtRecorder) Record(ctx context.Context, companyID, contactID string, person *domain.Person, row normalize.Row) (*domain.Debt, error) {
	if !row.HasFinancials {
		return nil, nil
	}

	debt := &domain.Debt{
		ID:             uuid.NewString(),
		CompanyID:      companyID,
		PersonID:       person.ID,
		ContactID:      contactID,
		ContractNumber: row.ContractNumber,
		OriginalAmount: row.OriginalAmount,
		CurrentAmount:  row.CurrentAmount,
		DueDate:        row.DueDate,
		Status:         row.DebtStatus,
		Metadata:       row.Metadata,
		CreatedAt:      time.Now().UTC(),
	}
	if err := r.debts.Create(ctx, debt); err != nil {
		return nil, fmt.Errorf("create debt: %w", err)
	}
	return debt, nil
}
