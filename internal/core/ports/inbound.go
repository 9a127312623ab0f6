package ports

import (
	"context"

	"github.com/vmoraes/debtflow/internal/core/domain"
)

// ImportSubmitter is the inbound contract for batch submission. It returns
// as soon as the rows are staged; processing happens asynchronously.
type ImportSubmitter interface {
	Submit(ctx context.Context, userID, fileName, fileType string, rows []map[string]any) (*domain.Import, error)
}

// ImportProcessor drains one staged import to completion.
type ImportProcessor interface {
	ProcessByID(ctx context.Context, importID string) error
}

// ImportSupervisor re-dispatches imports stuck in processing.
type ImportSupervisor interface {
	Reconcile(ctx context.Context) (int, error)
}
