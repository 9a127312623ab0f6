package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/vmoraes/debtflow/internal/core/ports"
)

// SuperviseImportsUseCase re-dispatches imports stuck in processing. A crash
// mid-processing leaves pending rows behind and the header stuck; because
// processing is resumable, republishing the id is always safe.
type SuperviseImportsUseCase struct {
	imports    ports.ImportRepository
	queue      ports.ImportQueue
	stuckAfter time.Duration
}

func NewSuperviseImportsUseCase(
	imports ports.ImportRepository,
	queue ports.ImportQueue,
	stuckAfter time.Duration,
) *SuperviseImportsUseCase {
	return &SuperviseImportsUseCase{
		imports:    imports,
		queue:      queue,
		stuckAfter: stuckAfter,
	}
}

// Reconcile republishes every import older than the stuck threshold that is
// still in processing. It returns how many were re-dispatched.
func (uc *SuperviseImportsUseCase) Reconcile(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-uc.stuckAfter)

	ids, err := uc.imports.ListStuckImports(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("list stuck imports: %w", err)
	}

	dispatched := 0
	for _, id := range ids {
		if err := uc.queue.PublishImportStaged(ctx, id); err != nil {
			return dispatched, fmt.Errorf("republish import %s: %w", id, err)
		}
		dispatched++
	}
	return dispatched, nil
}
