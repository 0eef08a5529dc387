package clients

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/invoiceflow/invoiceflow/internal/platform/httpx"
	"github.com/invoiceflow/invoiceflow/internal/shared"
)

type memoryRepo struct {
	clients map[int64]Client
	nextID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{clients: make(map[int64]Client)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) Get(_ context.Context, ownerID string, id int64) (*Client, error) {
	c, ok := r.clients[id]
	if !ok || c.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *memoryRepo) List(_ context.Context, req ListClientsRequest) ([]Client, int, error) {
	var out []Client
	for _, c := range r.clients {
		if c.OwnerID != req.OwnerID {
			continue
		}
		if req.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(req.Search)) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	total := len(out)
	if req.Offset >= len(out) {
		return nil, total, nil
	}
	out = out[req.Offset:]
	if len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out, total, nil
}

func (r *memoryRepo) Create(_ context.Context, c Client) (*Client, error) {
	r.nextID++
	c.ID = r.nextID
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	r.clients[c.ID] = c
	return &c, nil
}

func (r *memoryRepo) Update(_ context.Context, ownerID string, id int64, updates map[string]any) error {
	c, ok := r.clients[id]
	if !ok || c.OwnerID != ownerID {
		return ErrNotFound
	}
	for col, v := range updates {
		s := v.(string)
		switch col {
		case "name":
			c.Name = s
		case "email":
			c.Email = s
		case "phone":
			c.Phone = s
		case "address":
			c.Address = s
		case "tax_id":
			c.TaxID = s
		case "notes":
			c.Notes = s
		}
	}
	r.clients[id] = c
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, ownerID string, id int64) error {
	c, ok := r.clients[id]
	if !ok || c.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(r.clients, id)
	return nil
}

func TestCreateClientTrimsAndValidates(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	c, err := svc.Create(ctx, "owner-1", CreateClientRequest{Name: "  Acme Ltd ", Email: " ap@acme.test "})
	require.NoError(t, err)
	require.Equal(t, "Acme Ltd", c.Name)
	require.Equal(t, "ap@acme.test", c.Email)
	require.Equal(t, "owner-1", c.OwnerID)

	_, err = svc.Create(ctx, "owner-1", CreateClientRequest{Name: " ", Email: "not-an-email"})
	var fields shared.FieldErrors
	require.ErrorAs(t, err, &fields)
	require.Equal(t, "is required", fields["name"])
	require.Contains(t, fields, "email")
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestClientsAreScopedToOwner(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	c, err := svc.Create(ctx, "owner-1", CreateClientRequest{Name: "Acme"})
	require.NoError(t, err)

	_, err = svc.Get(ctx, "owner-2", c.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, "owner-2", c.ID), httpx.ErrNotFound)

	items, page, err := svc.List(ctx, "owner-2", "", shared.PageRequest{})
	require.NoError(t, err)
	require.Empty(t, items)
	require.Equal(t, 0, page.Total)
}

func TestUpdateClientAppliesPartialChanges(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	c, err := svc.Create(ctx, "owner-1", CreateClientRequest{Name: "Acme", Phone: "123"})
	require.NoError(t, err)

	address := "1 Main Street\nSpringfield"
	updated, err := svc.Update(ctx, "owner-1", c.ID, UpdateClientRequest{Address: &address})
	require.NoError(t, err)
	require.Equal(t, address, updated.Address)
	require.Equal(t, "123", updated.Phone)

	blank := "   "
	_, err = svc.Update(ctx, "owner-1", c.ID, UpdateClientRequest{Name: &blank})
	require.ErrorIs(t, err, httpx.ErrValidation)

	unchanged, err := svc.Update(ctx, "owner-1", c.ID, UpdateClientRequest{})
	require.NoError(t, err)
	require.Equal(t, "Acme", unchanged.Name)
}

func TestListClientsPaginates(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()
	for _, name := range []string{"Delta", "Alpha", "Charlie", "Bravo"} {
		_, err := svc.Create(ctx, "owner-1", CreateClientRequest{Name: name})
		require.NoError(t, err)
	}

	items, page, err := svc.List(ctx, "owner-1", "", shared.PageRequest{Page: 2, PerPage: 3})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Delta", items[0].Name)
	require.Equal(t, 4, page.Total)
	require.Equal(t, 2, page.TotalPages)

	items, _, err = svc.List(ctx, "owner-1", "rav", shared.PageRequest{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Bravo", items[0].Name)
}
