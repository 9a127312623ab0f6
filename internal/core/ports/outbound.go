package ports

import (
	"context"
	"time"

	"github.com/vmoraes/debtflow/internal/core/domain"
)

// ImportRepository persists import headers and staged contact rows.
type ImportRepository interface {
	// Stage writes the header and every contact inside one transaction,
	// inserting contacts in chunks of at most chunkSize rows. A failed chunk
	// rolls back the whole submission.
	Stage(ctx context.Context, imp *domain.Import, contacts []domain.Contact, chunkSize int) error
	GetImport(ctx context.Context, id string) (*domain.Import, error)
	ListPendingContacts(ctx context.Context, importID string) ([]domain.Contact, error)
	MarkContactProcessed(ctx context.Context, contactID string, processedAt time.Time) error
	MarkContactFailed(ctx context.Context, contactID, errMessage string) error
	// CountContactsByStatus reports terminal counts across the whole import,
	// prior partial runs included.
	CountContactsByStatus(ctx context.Context, importID string) (map[domain.ContactStatus]int, error)
	ListFailedContactErrors(ctx context.Context, importID string) ([]domain.RowError, error)
	Finalize(ctx context.Context, importID string, valid, invalid int, status domain.ImportStatus, ledger []domain.RowError, completedAt time.Time) error
	// ListStuckImports returns ids of imports still in processing whose
	// staging predates the cutoff.
	ListStuckImports(ctx context.Context, cutoff time.Time) ([]string, error)
}

// PersonRepository resolves identity records with atomic upserts. Every
// method must be safe under concurrent invocation for the same keys; the
// uniqueness constraints live in storage, not in the caller.
type PersonRepository interface {
	UpsertPerson(ctx context.Context, person *domain.Person) (*domain.Person, error)
	UpsertPhone(ctx context.Context, phone *domain.Phone) (*domain.Phone, error)
	UpsertPersonPhone(ctx context.Context, link domain.PersonPhone) error
}

// DebtRepository appends debt records. No deduplication.
type DebtRepository interface {
	Create(ctx context.Context, debt *domain.Debt) error
}

// CompanyResolver maps a submitting user to the owning company.
type CompanyResolver interface {
	CompanyIDForUser(ctx context.Context, userID string) (string, error)
}

// PipelineObserver records processing outcomes for monitoring. Implemented
// by the worker metrics; nil is allowed and means no observation.
type PipelineObserver interface {
	RowProcessed(status domain.ContactStatus)
	ImportFinalized(status domain.ImportStatus, valid, invalid int)
}

// ImportQueue hands staged imports to the background worker.
type ImportQueue interface {
	PublishImportStaged(ctx context.Context, importID string) error
	SubscribeImportStaged(ctx context.Context, handler func(context.Context, string) error) error
}
