package partners

import (
	"context"
	"fmt"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Service wraps party registry rules.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, companyID int64, req CreatePartyRequest) (*Party, error) {
	party := Party{
		CompanyID: companyID,
		Name:      req.Name,
		Role:      req.Role,
		TaxID:     req.TaxID,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		IsActive:  true,
	}
	id, err := s.repo.Create(ctx, party)
	if err != nil {
		return nil, fmt.Errorf("create party: %w", err)
	}
	party.ID = id
	return &party, nil
}

func (s *Service) Get(ctx context.Context, companyID, id int64) (*Party, error) {
	return s.repo.Get(ctx, companyID, id)
}

func (s *Service) List(ctx context.Context, req ListPartiesRequest) ([]Party, int, error) {
	return s.repo.List(ctx, req)
}

func (s *Service) Update(ctx context.Context, companyID, id int64, req UpdatePartyRequest) (*Party, error) {
	party, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		party.Name = *req.Name
	}
	if req.Role != nil {
		party.Role = *req.Role
	}
	if req.TaxID != nil {
		party.TaxID = *req.TaxID
	}
	if req.Email != nil {
		party.Email = *req.Email
	}
	if req.Phone != nil {
		party.Phone = *req.Phone
	}
	if req.Address != nil {
		party.Address = *req.Address
	}
	if req.IsActive != nil {
		party.IsActive = *req.IsActive
	}
	if err := s.repo.Update(ctx, *party); err != nil {
		return nil, err
	}
	return party, nil
}

// Resolve fetches a party and checks it carries one of the wanted roles.
// Document services call this before posting so a sale can never reference
// a supplier-only party and vice versa.
func (s *Service) Resolve(ctx context.Context, companyID, id int64, wanted ...Role) (*Party, error) {
	party, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !party.HasRole(wanted...) {
		return nil, fmt.Errorf("%w: party %d has role %s", httpx.ErrInvalidRole, id, party.Role)
	}
	return party, nil
}
