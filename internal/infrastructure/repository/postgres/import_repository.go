package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vmoraes/debtflow/internal/core/domain"
)

type ImportRepository struct {
	db *sql.DB
}

func NewImportRepository(db *sql.DB) *ImportRepository {
	return &ImportRepository{db: db}
}

func (r *ImportRepository) Stage(ctx context.Context, imp *domain.Import, contacts []domain.Contact, chunkSize int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin staging tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO imports (
	id, company_id, file_name, file_type, total_records, valid_records, invalid_records, status, created_at
) VALUES ($1,$2,$3,$4,$5,0,0,$6,$7)
`,
		imp.ID, imp.CompanyID, imp.FileName, imp.FileType, imp.TotalRecords, string(imp.Status), imp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert import header: %w", err)
	}

	for start := 0; start < len(contacts); start += chunkSize {
		end := start + chunkSize
		if end > len(contacts) {
			end = len(contacts)
		}
		if err := insertContacts(ctx, tx, contacts[start:end]); err != nil {
			return fmt.Errorf("insert contacts chunk at %d: %w", start, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit staging tx: %w", err)
	}
	return nil
}

func insertContacts(ctx context.Context, tx *sql.Tx, batch []domain.Contact) error {
	var sb strings.Builder
	sb.WriteString("INSERT INTO contacts (id, company_id, import_id, raw_data, status, created_at) VALUES ")

	args := make([]any, 0, len(batch)*6)
	for i, contact := range batch {
		raw, err := json.Marshal(contact.RawData)
		if err != nil {
			return fmt.Errorf("marshal raw row: %w", err)
		}
		if i > 0 {
			sb.WriteString(",")
		}
		base := i * 6
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d)", base+1, base+2, base+3, base+4, base+5, base+6)
		args = append(args, contact.ID, contact.CompanyID, contact.ImportID, raw, string(contact.Status), contact.CreatedAt)
	}

	if _, err := tx.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("insert contacts: %w", err)
	}
	return nil
}

func (r *ImportRepository) GetImport(ctx context.Context, id string) (*domain.Import, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, company_id, file_name, file_type, total_records, valid_records, invalid_records, status, error_log, created_at, completed_at
FROM imports
WHERE id = $1
`, id)

	var imp domain.Import
	var status string
	var errorLog []byte
	var completedAt sql.NullTime

	err := row.Scan(
		&imp.ID, &imp.CompanyID, &imp.FileName, &imp.FileType, &imp.TotalRecords,
		&imp.ValidRecords, &imp.InvalidRecords, &status, &errorLog, &imp.CreatedAt, &completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get import", fmt.Errorf("import %s", id))
		}
		return nil, fmt.Errorf("scan import: %w", err)
	}

	imp.Status = domain.ImportStatus(status)
	if len(errorLog) > 0 {
		if err := json.Unmarshal(errorLog, &imp.ErrorLog); err != nil {
			return nil, fmt.Errorf("unmarshal error log: %w", err)
		}
	}
	if completedAt.Valid {
		t := completedAt.Time
		imp.CompletedAt = &t
	}
	return &imp, nil
}

func (r *ImportRepository) ListPendingContacts(ctx context.Context, importID string) ([]domain.Contact, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, company_id, import_id, raw_data, status, error_message, created_at, processed_at
FROM contacts
WHERE import_id = $1 AND status = $2
ORDER BY seq
`, importID, string(domain.ContactStatusPending))
	if err != nil {
		return nil, fmt.Errorf("query pending contacts: %w", err)
	}
	defer rows.Close()

	var contacts []domain.Contact
	for rows.Next() {
		var contact domain.Contact
		var raw []byte
		var status string
		var errMessage sql.NullString
		var processedAt sql.NullTime

		err := rows.Scan(
			&contact.ID, &contact.CompanyID, &contact.ImportID, &raw,
			&status, &errMessage, &contact.CreatedAt, &processedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}

		contact.RawData, err = decodeRawRow(raw)
		if err != nil {
			return nil, fmt.Errorf("decode raw row for contact %s: %w", contact.ID, err)
		}
		contact.Status = domain.ContactStatus(status)
		contact.ErrorMessage = errMessage.String
		if processedAt.Valid {
			t := processedAt.Time
			contact.ProcessedAt = &t
		}
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contacts: %w", err)
	}
	return contacts, nil
}

// decodeRawRow re-decodes a staged payload with UseNumber so tax ids and
// phone numbers submitted as numbers keep their digits.
func decodeRawRow(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

// MarkContactProcessed transitions a pending row to processed. Rows already
// terminal are left untouched; a contact leaves pending at most once.
func (r *ImportRepository) MarkContactProcessed(ctx context.Context, contactID string, processedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE contacts
SET status = $2, processed_at = $3
WHERE id = $1 AND status = $4
`, contactID, string(domain.ContactStatusProcessed), processedAt, string(domain.ContactStatusPending))
	if err != nil {
		return fmt.Errorf("mark contact processed: %w", err)
	}
	return nil
}

func (r *ImportRepository) MarkContactFailed(ctx context.Context, contactID, errMessage string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE contacts
SET status = $2, error_message = $3
WHERE id = $1 AND status = $4
`, contactID, string(domain.ContactStatusFailed), errMessage, string(domain.ContactStatusPending))
	if err != nil {
		return fmt.Errorf("mark contact failed: %w", err)
	}
	return nil
}

func (r *ImportRepository) CountContactsByStatus(ctx context.Context, importID string) (map[domain.ContactStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT status, COUNT(*)
FROM contacts
WHERE import_id = $1
GROUP BY status
`, importID)
	if err != nil {
		return nil, fmt.Errorf("count contacts: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.ContactStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan contact count: %w", err)
		}
		counts[domain.ContactStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contact counts: %w", err)
	}
	return counts, nil
}

func (r *ImportRepository) ListFailedContactErrors(ctx context.Context, importID string) ([]domain.RowError, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, COALESCE(error_message, '')
FROM contacts
WHERE import_id = $1 AND status = $2
ORDER BY seq
`, importID, string(domain.ContactStatusFailed))
	if err != nil {
		return nil, fmt.Errorf("query failed contacts: %w", err)
	}
	defer rows.Close()

	var ledger []domain.RowError
	for rows.Next() {
		var entry domain.RowError
		if err := rows.Scan(&entry.ContactID, &entry.Message); err != nil {
			return nil, fmt.Errorf("scan failed contact: %w", err)
		}
		ledger = append(ledger, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failed contacts: %w", err)
	}
	return ledger, nil
}

func (r *ImportRepository) Finalize(
	ctx context.Context,
	importID string,
	valid, invalid int,
	status domain.ImportStatus,
	ledger []domain.RowError,
	completedAt time.Time,
) error {
	var ledgerJSON any
	if len(ledger) > 0 {
		raw, err := json.Marshal(ledger)
		if err != nil {
			return fmt.Errorf("marshal error log: %w", err)
		}
		ledgerJSON = raw
	}

	_, err := r.db.ExecContext(ctx, `
UPDATE imports
SET valid_records = $2, invalid_records = $3, status = $4, error_log = $5, completed_at = $6
WHERE id = $1 AND status = $7
`, importID, valid, invalid, string(status), ledgerJSON, completedAt, string(domain.ImportStatusProcessing))
	if err != nil {
		return fmt.Errorf("finalize import: %w", err)
	}
	return nil
}

func (r *ImportRepository) ListStuckImports(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id
FROM imports
WHERE status = $1 AND created_at < $2
ORDER BY created_at
`, string(domain.ImportStatusProcessing), cutoff)
	if err != nil {
		return nil, fmt.Errorf("query stuck imports: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stuck import: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stuck imports: %w", err)
	}
	return ids, nil
}
