package domain

import "time"

// Person is unique per (company, CPF). Repeated sightings of the same CPF
// merge non-destructively: a present value overwrites, an absent one keeps
// what is already stored.
type Person struct {
	ID        string     `json:"id"`
	CompanyID string     `json:"company_id"`
	CPF       string     `json:"cpf"`
	Name      string     `json:"name,omitempty"`
	Email     string     `json:"email,omitempty"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Phone is unique per (company, digit string) and never updated after
// creation.
type Phone struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Number    string `json:"phone_number"`
}

// PersonPhone links a person to a phone. IsPrimary is overwritten on every
// re-link.
type PersonPhone struct {
	PersonID  string `json:"person_id"`
	PhoneID   string `json:"phone_id"`
	IsPrimary bool   `json:"is_primary"`
}
