package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/vmoraes/debtflow/internal/core/domain"
	"github.com/vmoraes/debtflow/internal/core/normalize"
	"github.com/vmoraes/debtflow/internal/core/ports"
)

// ProcessImportUseCase drains the pending rows of one import. Rows are
// processed sequentially in staged order; each row fails or succeeds on its
// own and one bad row never aborts the batch. Re-running a drained import is
// a no-op, which is the sole crash-recovery path.
type ProcessImportUseCase struct {
	imports  ports.ImportRepository
	identity *IdentityResolver
	debts    *DebtRecorder
	aliases  normalize.AliasTable
	observer ports.PipelineObserver
}

func NewProcessImportUseCase(
	imports ports.ImportRepository,
	identity *IdentityResolver,
	debts *DebtRecorder,
	aliases normalize.AliasTable,
	observer ports.PipelineObserver,
) *ProcessImportUseCase {
	return &ProcessImportUseCase{
		imports:  imports,
		identity: identity,
		debts:    debts,
		aliases:  aliases,
		observer: observer,
	}
}

func (uc *ProcessImportUseCase) ProcessByID(ctx context.Context, importID string) error {
	imp, err := uc.imports.GetImport(ctx, importID)
	if err != nil {
		return fmt.Errorf("fetch import by id: %w", err)
	}

	pending, err := uc.imports.ListPendingContacts(ctx, importID)
	if err != nil {
		return fmt.Errorf("list pending contacts: %w", err)
	}

	// Nothing pending means a prior run already drained this import.
	// Leave the header untouched.
	if len(pending) == 0 {
		return nil
	}

	for _, contact := range pending {
		if err := uc.processContact(ctx, imp.CompanyID, contact); err != nil {
			if markErr := uc.imports.MarkContactFailed(ctx, contact.ID, err.Error()); markErr != nil {
				return fmt.Errorf("mark contact failed: %w", markErr)
			}
			uc.observeRow(domain.ContactStatusFailed)
			continue
		}
		if markErr := uc.imports.MarkContactProcessed(ctx, contact.ID, time.Now().UTC()); markErr != nil {
			return fmt.Errorf("mark contact processed: %w", markErr)
		}
		uc.observeRow(domain.ContactStatusProcessed)
	}

	return uc.finalize(ctx, importID)
}

func (uc *ProcessImportUseCase) processContact(ctx context.Context, companyID string, contact domain.Contact) error {
	row, err := normalize.Normalize(contact.RawData, uc.aliases)
	if err != nil {
		return err
	}

	person, err := uc.identity.Resolve(ctx, companyID, row)
	if err != nil {
		return err
	}

	if _, err := uc.debts.Record(ctx, companyID, contact.ID, person, row); err != nil {
		return err
	}
	return nil
}

// finalize recounts terminal rows across the whole import so a resumed
// batch reports whole-batch totals, and rebuilds the ledger from storage
// for the same reason.
func (uc *ProcessImportUseCase) finalize(ctx context.Context, importID string) error {
	counts, err := uc.imports.CountContactsByStatus(ctx, importID)
	if err != nil {
		return fmt.Errorf("count contacts: %w", err)
	}
	valid := counts[domain.ContactStatusProcessed]
	invalid := counts[domain.ContactStatusFailed]

	// Failed means every terminal row failed; the no-pending guard above
	// ensures at least one row is terminal by the time finalize runs.
	status := domain.ImportStatusCompleted
	if valid == 0 && invalid > 0 {
		status = domain.ImportStatusFailed
	}

	var ledger []domain.RowError
	if invalid > 0 {
		ledger, err = uc.imports.ListFailedContactErrors(ctx, importID)
		if err != nil {
			return fmt.Errorf("list failed contacts: %w", err)
		}
	}

	if err := uc.imports.Finalize(ctx, importID, valid, invalid, status, ledger, time.Now().UTC()); err != nil {
		return fmt.Errorf("finalize import: %w", err)
	}
	if uc.observer != nil {
		uc.observer.ImportFinalized(status, valid, invalid)
	}
	return nil
}

func (uc *ProcessImportUseCase) observeRow(status domain.ContactStatus) {
	if uc.observer != nil {
		uc.observer.RowProcessed(status)
	}
}
