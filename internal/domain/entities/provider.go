package entities

import "time"

// Provider is a doctor or practitioner attached to a clinic.
type Provider struct {
	ID               string    `json:"id" db:"id"`
	ClinicID         string    `json:"clinic_id" db:"clinic_id"`
	SimplybookUnitID *string   `json:"simplybook_unit_id,omitempty" db:"simplybook_unit_id"`
	Name             string    `json:"name" db:"name"`
	Email            string    `json:"email" db:"email"`
	Phone            string    `json:"phone" db:"phone"`
	Specialty        string    `json:"specialty" db:"specialty"`
	Role             string    `json:"role" db:"role"`
	Bio              string    `json:"bio" db:"bio"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// Approved reports whether the account has been promoted past the pending
// role and may accept bookings.
func (p *Provider) Approved() bool {
	return p.Role == "provider"
}

// Integration links a provider to an external scheduling account. A booking
// webhook resolves its tenant through the company alias stored here.
type Integration struct {
	ID           string    `json:"id" db:"id"`
	ProviderID   string    `json:"provider_id" db:"provider_id"`
	Type         string    `json:"type" db:"type"`
	CompanyAlias string    `json:"company_alias" db:"company_alias"`
	APIUser      string    `json:"api_user" db:"api_user"`
	Active       bool      `json:"active" db:"active"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
