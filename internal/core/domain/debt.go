package domain

import "time"

const DebtStatusOpen = "open"

// Debt is append-only per person. ContactID is the staged row that produced
// it and carries the idempotence key: a redelivered row inserts at most one
// debt, while a resubmitted batch stages fresh rows and appends again.
type Debt struct {
	ID             string       `json:"id"`
	CompanyID      string       `json:"company_id"`
	PersonID       string       `json:"person_id"`
	ContactID      string       `json:"contact_id"`
	ContractNumber string       `json:"contract_number,omitempty"`
	OriginalAmount float64      `json:"original_amount"`
	CurrentAmount  float64      `json:"current_amount"`
	DueDate        *time.Time   `json:"due_date,omitempty"`
	Status         string       `json:"status"`
	Metadata       DebtMetadata `json:"metadata"`
	CreatedAt      time.Time    `json:"created_at"`
}

// DebtMetadata carries deal-classification fields through unparsed. Values
// keep whatever scalar shape the submitted row used.
type DebtMetadata struct {
	Portfolio        any `json:"portfolio,omitempty"`
	ProductType      any `json:"product_type,omitempty"`
	Segment          any `json:"segment,omitempty"`
	NegotiationLimit any `json:"negotiation_limit,omitempty"`
	DiscountLimit    any `json:"discount_limit,omitempty"`
}
