package invoices

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/invoiceflow/invoiceflow/internal/clients"
	"github.com/invoiceflow/invoiceflow/internal/profiles"
	"github.com/invoiceflow/invoiceflow/internal/render"
	"github.com/invoiceflow/invoiceflow/internal/shared"
)

type memoryRepo struct {
	mu       sync.Mutex
	invoices map[uuid.UUID]Invoice
	seq      map[string]int
	failNext error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{invoices: make(map[uuid.UUID]Invoice), seq: make(map[string]int)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) NextNumber(_ context.Context, ownerID, period string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq[ownerID+"/"+period]++
	return r.seq[ownerID+"/"+period], nil
}

func (r *memoryRepo) Insert(_ context.Context, inv *Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failNext != nil {
		err := r.failNext
		r.failNext = nil
		return err
	}
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	r.invoices[inv.ID] = *inv
	return nil
}

func (r *memoryRepo) Get(_ context.Context, ownerID string, id uuid.UUID) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok || inv.OwnerID != ownerID {
		return nil, ErrInvoiceNotFound
	}
	return &inv, nil
}

func (r *memoryRepo) List(_ context.Context, filter ListFilter) ([]Invoice, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Invoice
	for _, inv := range r.invoices {
		if inv.OwnerID != filter.OwnerID {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		if filter.ClientID != nil && (inv.ClientID == nil || *inv.ClientID != *filter.ClientID) {
			continue
		}
		if filter.Search != "" && !strings.Contains(inv.Number+" "+inv.To.Name, filter.Search) {
			continue
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number > out[j].Number })
	total := len(out)
	if filter.Offset >= len(out) {
		return nil, total, nil
	}
	out = out[filter.Offset:]
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, total, nil
}

func (r *memoryRepo) UpdateStatus(_ context.Context, ownerID string, id uuid.UUID, from, to Status, paidAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok || inv.OwnerID != ownerID || inv.Status != from {
		return ErrInvalidTransition
	}
	inv.Status = to
	inv.PaidAt = paidAt
	inv.UpdatedAt = time.Now()
	r.invoices[id] = inv
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, ownerID string, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok || inv.OwnerID != ownerID {
		return ErrInvoiceNotFound
	}
	delete(r.invoices, id)
	return nil
}

func (r *memoryRepo) MarkOverdue(_ context.Context, asOf time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]bool{}
	var owners []string
	for id, inv := range r.invoices {
		if inv.Status == StatusIssued && inv.DueDate.Before(asOf) {
			inv.Status = StatusOverdue
			r.invoices[id] = inv
			if !seen[inv.OwnerID] {
				seen[inv.OwnerID] = true
				owners = append(owners, inv.OwnerID)
			}
		}
	}
	sort.Strings(owners)
	return owners, nil
}

type memoryIdempotency struct {
	keys map[string]string
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{keys: map[string]string{}}
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, owner, key, module string) error {
	k := owner + "|" + module + "|" + key
	if _, ok := m.keys[k]; ok {
		return shared.ErrIdempotencyConflict
	}
	m.keys[k] = ""
	return nil
}

func (m *memoryIdempotency) Attach(_ context.Context, owner, key, module, resourceID string) error {
	m.keys[owner+"|"+module+"|"+key] = resourceID
	return nil
}

func (m *memoryIdempotency) Lookup(_ context.Context, owner, key, module string) (string, error) {
	id, ok := m.keys[owner+"|"+module+"|"+key]
	if !ok {
		return "", shared.ErrNotFound
	}
	return id, nil
}

func (m *memoryIdempotency) Delete(_ context.Context, owner, key, module string) error {
	delete(m.keys, owner+"|"+module+"|"+key)
	return nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type countingCache struct {
	mu     sync.Mutex
	owners []string
}

func (c *countingCache) Invalidate(_ context.Context, owner string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owners = append(c.owners, owner)
	return nil
}

type stubQueue struct {
	enqueued []uuid.UUID
	err      error
}

func (q *stubQueue) EnqueueRenderPDF(_ context.Context, _ string, id uuid.UUID) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.enqueued = append(q.enqueued, id)
	return "task-" + id.String()[:8], nil
}

type stubRenderer struct {
	doc render.Document
	err error
}

func (s *stubRenderer) Render(_ context.Context, doc render.Document) ([]byte, error) {
	s.doc = doc
	if s.err != nil {
		return nil, s.err
	}
	return []byte("%PDF-1.4 stub"), nil
}

type clientDirectory map[int64]clients.Client

func (d clientDirectory) Get(_ context.Context, ownerID string, id int64) (*clients.Client, error) {
	c, ok := d[id]
	if !ok || c.OwnerID != ownerID {
		return nil, clients.ErrNotFound
	}
	return &c, nil
}

type profileDirectory struct {
	profiles []profiles.Profile
	err      error
}

func (d profileDirectory) Get(_ context.Context, ownerID string, id int64) (*profiles.Profile, error) {
	for _, p := range d.profiles {
		if p.ID == id && p.OwnerID == ownerID {
			return &p, nil
		}
	}
	return nil, profiles.ErrNotFound
}

func (d profileDirectory) Default(_ context.Context, ownerID string) (*profiles.Profile, error) {
	if d.err != nil {
		return nil, d.err
	}
	for _, p := range d.profiles {
		if p.OwnerID == ownerID && p.IsDefault {
			return &p, nil
		}
	}
	return nil, nil
}

var errBoom = errors.New("boom")
