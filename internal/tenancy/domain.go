package tenancy

import "time"

// MemberRole enumerates membership levels inside a company.
type MemberRole string

const (
	RoleOwner  MemberRole = "OWNER"
	RoleAdmin  MemberRole = "ADMIN"
	RoleMember MemberRole = "MEMBER"
)

// Company is a tenant. Every business entity belongs to exactly one.
type Company struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CompanyView is a company together with the caller's role in it.
type CompanyView struct {
	Company
	Role MemberRole `json:"role"`
}

// Membership links a user to a company.
type Membership struct {
	CompanyID int64      `json:"company_id"`
	UserID    int64      `json:"user_id"`
	Role      MemberRole `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
}
