package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vmoraes/debtflow/internal/core/domain"
	"github.com/vmoraes/debtflow/internal/core/ports"
)

const defaultStagingChunkSize = 1000

// SubmitImportUseCase stages a batch of raw rows and hands the import id to
// the background queue. It returns as soon as staging commits; the caller
// never waits on processing.
type SubmitImportUseCase struct {
	imports   ports.ImportRepository
	companies ports.CompanyResolver
	queue     ports.ImportQueue
	chunkSize int
}

func NewSubmitImportUseCase(
	imports ports.ImportRepository,
	companies ports.CompanyResolver,
	queue ports.ImportQueue,
	chunkSize int,
) *SubmitImportUseCase {
	if chunkSize <= 0 {
		chunkSize = defaultStagingChunkSize
	}
	return &SubmitImportUseCase{
		imports:   imports,
		companies: companies,
		queue:     queue,
		chunkSize: chunkSize,
	}
}

func (uc *SubmitImportUseCase) Submit(
	ctx context.Context,
	userID, fileName, fileType string,
	rows []map[string]any,
) (*domain.Import, error) {
	if len(rows) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit import", errors.New("data array is empty"))
	}

	companyID, err := uc.companies.CompanyIDForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve company for user: %w", err)
	}

	if fileName == "" {
		fileName = "upload.csv"
	}
	if fileType == "" {
		fileType = "csv"
	}

	now := time.Now().UTC()
	imp := &domain.Import{
		ID:           uuid.NewString(),
		CompanyID:    companyID,
		FileName:     fileName,
		FileType:     fileType,
		TotalRecords: len(rows),
		Status:       domain.ImportStatusProcessing,
		CreatedAt:    now,
	}

	contacts := make([]domain.Contact, len(rows))
	for i, row := range rows {
		contacts[i] = domain.Contact{
			ID:        uuid.NewString(),
			CompanyID: companyID,
			ImportID:  imp.ID,
			RawData:   row,
			Status:    domain.ContactStatusPending,
			CreatedAt: now,
		}
	}

	// Header and staged rows commit together; a chunk failure must not
	// leave a half-staged import in processing forever.
	if err := uc.imports.Stage(ctx, imp, contacts, uc.chunkSize); err != nil {
		return nil, fmt.Errorf("stage import: %w", err)
	}

	if err := uc.queue.PublishImportStaged(ctx, imp.ID); err != nil {
		return nil, fmt.Errorf("publish staged import: %w", err)
	}

	return imp, nil
}
