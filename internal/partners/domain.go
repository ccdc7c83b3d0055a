package partners

import "time"

// Role determines which document kinds a party can appear on. A SUPPLIER
// receives purchases, a CLIENT receives sales, BOTH qualifies for either.
type Role string

const (
	RoleClient   Role = "CLIENT"
	RoleSupplier Role = "SUPPLIER"
	RoleBoth     Role = "BOTH"
)

// ValidRole reports whether the value is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleClient, RoleSupplier, RoleBoth:
		return true
	}
	return false
}

// Party is a customer, supplier, or both, scoped to a company.
type Party struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	TaxID     string    `json:"tax_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasRole reports whether the party qualifies for any of the wanted roles.
// BOTH qualifies for everything.
func (p Party) HasRole(wanted ...Role) bool {
	if p.Role == RoleBoth {
		return true
	}
	for _, w := range wanted {
		if p.Role == w {
			return true
		}
	}
	return false
}
