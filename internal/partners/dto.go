package partners

// CreatePartyRequest is the payload for registering a party.
type CreatePartyRequest struct {
	Name    string `json:"name" validate:"required,min=2,max=200"`
	Role    Role   `json:"role" validate:"required,oneof=CLIENT SUPPLIER BOTH"`
	TaxID   string `json:"tax_id" validate:"omitempty,max=40"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone" validate:"omitempty,max=40"`
	Address string `json:"address" validate:"omitempty,max=400"`
}

// UpdatePartyRequest carries mutable party fields. Nil means unchanged.
type UpdatePartyRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=200"`
	Role     *Role   `json:"role" validate:"omitempty,oneof=CLIENT SUPPLIER BOTH"`
	TaxID    *string `json:"tax_id" validate:"omitempty,max=40"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Phone    *string `json:"phone" validate:"omitempty,max=40"`
	Address  *string `json:"address" validate:"omitempty,max=400"`
	IsActive *bool   `json:"is_active"`
}

// ListPartiesRequest filters the party list.
type ListPartiesRequest struct {
	CompanyID int64
	Role      Role
	Search    string
	Limit     int
	Offset    int
}
