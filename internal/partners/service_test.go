package partners

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type fakeRepo struct {
	nextID  int64
	parties map[int64]Party
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{nextID: 1, parties: map[int64]Party{}}
}

func (f *fakeRepo) Get(_ context.Context, companyID, id int64) (*Party, error) {
	p, ok := f.parties[id]
	if !ok || p.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	return &p, nil
}

func (f *fakeRepo) List(_ context.Context, req ListPartiesRequest) ([]Party, int, error) {
	var out []Party
	for _, p := range f.parties {
		if p.CompanyID != req.CompanyID {
			continue
		}
		if req.Role != "" && p.Role != req.Role && p.Role != RoleBoth {
			continue
		}
		if req.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(req.Search)) {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (f *fakeRepo) Create(_ context.Context, p Party) (int64, error) {
	p.ID = f.nextID
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	f.parties[p.ID] = p
	f.nextID++
	return p.ID, nil
}

func (f *fakeRepo) Update(_ context.Context, p Party) error {
	if _, ok := f.parties[p.ID]; !ok {
		return shared.ErrNotFound
	}
	f.parties[p.ID] = p
	return nil
}

func seedParty(t *testing.T, svc *Service, companyID int64, name string, role Role) *Party {
	t.Helper()
	p, err := svc.Create(context.Background(), companyID, CreatePartyRequest{Name: name, Role: role})
	require.NoError(t, err)
	return p
}

func TestResolveRequiresRole(t *testing.T) {
	svc := NewService(newFakeRepo())
	supplier := seedParty(t, svc, 1, "Acme Supplies", RoleSupplier)

	_, err := svc.Resolve(context.Background(), 1, supplier.ID, RoleClient)
	require.Error(t, err)
	require.True(t, errors.Is(err, httpx.ErrInvalidRole))

	got, err := svc.Resolve(context.Background(), 1, supplier.ID, RoleSupplier)
	require.NoError(t, err)
	require.Equal(t, supplier.ID, got.ID)
}

func TestResolveBothQualifiesForEither(t *testing.T) {
	svc := NewService(newFakeRepo())
	dual := seedParty(t, svc, 1, "Omni Trading", RoleBoth)

	_, err := svc.Resolve(context.Background(), 1, dual.ID, RoleClient)
	require.NoError(t, err)
	_, err = svc.Resolve(context.Background(), 1, dual.ID, RoleSupplier)
	require.NoError(t, err)
}

func TestResolveScopedToCompany(t *testing.T) {
	svc := NewService(newFakeRepo())
	p := seedParty(t, svc, 1, "Acme Supplies", RoleSupplier)

	_, err := svc.Resolve(context.Background(), 2, p.ID, RoleSupplier)
	require.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestUpdateAppliesPartialFields(t *testing.T) {
	svc := NewService(newFakeRepo())
	p := seedParty(t, svc, 1, "Acme Supplies", RoleSupplier)

	newRole := RoleBoth
	updated, err := svc.Update(context.Background(), 1, p.ID, UpdatePartyRequest{Role: &newRole})
	require.NoError(t, err)
	require.Equal(t, RoleBoth, updated.Role)
	require.Equal(t, "Acme Supplies", updated.Name)
}
