package invoices

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/invoiceflow/invoiceflow/internal/calc"
	"github.com/invoiceflow/invoiceflow/internal/platform/httpx"
	"github.com/invoiceflow/invoiceflow/internal/profiles"
	"github.com/invoiceflow/invoiceflow/internal/shared"
)

const owner = "owner-1"

type fixture struct {
	svc      *Service
	repo     *memoryRepo
	idem     *memoryIdempotency
	audit    *recordingAudit
	cache    *countingCache
	queue    *stubQueue
	renderer *stubRenderer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     newMemoryRepo(),
		idem:     newMemoryIdempotency(),
		audit:    &recordingAudit{},
		cache:    &countingCache{},
		queue:    &stubQueue{},
		renderer: &stubRenderer{},
	}
	f.svc = NewService(f.repo, Dependencies{
		Clients: clientDirectory{
			7: {ID: 7, OwnerID: owner, Name: "Acme Ltd", Email: "ap@acme.test", Address: "1 Main Street"},
		},
		Profiles: profileDirectory{profiles: []profiles.Profile{{
			ID: 3, OwnerID: owner, Name: "Studio North", Currency: "EUR", IsDefault: true,
			PaymentMethod: "Bank transfer", PaymentDetails: "IBAN GB29 NWBK", DefaultTerms: "Net 30",
		}}},
		Idempotency: f.idem,
		Audit:       f.audit,
		Cache:       f.cache,
		Queue:       f.queue,
		Renderer:    f.renderer,
	})
	f.svc.now = func() time.Time { return time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC) }
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, got.Equal(dec(want)), "want %s, got %s", want, got)
}

// scenarioRequest is 1 x 200 with 10% off, 5 fixed header discount and 18% GST.
func scenarioRequest() SubmitRequest {
	return SubmitRequest{
		To:           PartyInput{Name: "Acme Ltd"},
		From:         PartyInput{Name: "Studio North"},
		IssueDate:    "2026-01-05",
		DueDate:      "2026-02-04",
		Currency:     "eur",
		Items:        []calc.DraftItem{{Description: "Brand identity", Quantity: "1", Rate: "200", Discount: "10", DiscountType: calc.DiscountPercent}},
		Discount:     "5",
		DiscountType: calc.DiscountFixed,
		Tax:          calc.TaxSpec{Mode: calc.TaxModeStandard, Name: "GST", Rate: "18"},
	}
}

func TestSubmitComputesAndFreezesTotals(t *testing.T) {
	f := newFixture(t)
	inv, replayed, err := f.svc.Submit(context.Background(), owner, scenarioRequest(), "")
	require.NoError(t, err)
	require.False(t, replayed)

	require.Equal(t, "INV-202601-0001", inv.Number)
	require.Equal(t, StatusIssued, inv.Status)
	require.Equal(t, "EUR", inv.Currency)
	requireDecimal(t, "180", inv.Items[0].Amount)
	requireDecimal(t, "180", inv.Subtotal)
	requireDecimal(t, "5", inv.DiscountAmount)
	requireDecimal(t, "175", inv.NetAmount)
	requireDecimal(t, "31.50", inv.TaxAmount)
	requireDecimal(t, "206.50", inv.Total)
	require.Len(t, inv.Taxes, 1)
	require.Equal(t, "GST", inv.Taxes[0].Name)
	require.Equal(t, calc.TaxModeStandard, inv.TaxConfig.Mode)

	second, _, err := f.svc.Submit(context.Background(), owner, scenarioRequest(), "")
	require.NoError(t, err)
	require.Equal(t, "INV-202601-0002", second.Number)

	require.Len(t, f.audit.logs, 2)
	require.Equal(t, "invoice.issued", f.audit.logs[0].Action)
	require.Equal(t, []string{owner, owner}, f.cache.owners)
}

func TestSubmitFillsPartiesFromClientAndDefaultProfile(t *testing.T) {
	f := newFixture(t)
	req := scenarioRequest()
	req.To = PartyInput{}
	req.From = PartyInput{}
	req.Currency = ""
	clientID := int64(7)
	req.ClientID = &clientID

	inv, _, err := f.svc.Submit(context.Background(), owner, req, "")
	require.NoError(t, err)
	require.Equal(t, "Acme Ltd", inv.To.Name)
	require.Equal(t, "1 Main Street", inv.To.Address)
	require.Equal(t, "Studio North", inv.From.Name)
	require.Equal(t, int64(3), *inv.ProfileID)
	require.Equal(t, "EUR", inv.Currency)
	require.Equal(t, "Bank transfer", inv.PaymentMethod)
	require.Equal(t, "IBAN GB29 NWBK", inv.PaymentDetails)
	require.Equal(t, "Net 30", inv.Terms)

	req.ClientID = new(int64)
	*req.ClientID = 99
	_, _, err = f.svc.Submit(context.Background(), owner, req, "")
	var fields shared.FieldErrors
	require.ErrorAs(t, err, &fields)
	require.Equal(t, "does not exist", fields["client_id"])
}

func TestSubmitValidationReportsFieldErrors(t *testing.T) {
	f := newFixture(t)
	req := scenarioRequest()
	req.DueDate = "2026-01-01"
	req.Currency = "ZZZ"
	req.To = PartyInput{}
	req.Items = []calc.DraftItem{
		{Description: " ", Quantity: "", Rate: ""},
		{Description: "Hours", Quantity: "abc", Rate: "-5"},
		{Description: "Refund", Quantity: "1", Rate: "10", Discount: "20", DiscountType: calc.DiscountFixed},
	}

	_, _, err := f.svc.Submit(context.Background(), owner, req, "")
	require.ErrorIs(t, err, httpx.ErrValidation)
	var fields shared.FieldErrors
	require.ErrorAs(t, err, &fields)

	require.Equal(t, "is required", fields["items[0].description"])
	require.Equal(t, "is required", fields["items[0].quantity"])
	require.Equal(t, "is required", fields["items[0].rate"])
	require.Equal(t, "must be a non-negative number", fields["items[1].quantity"])
	require.Equal(t, "must be a non-negative number", fields["items[1].rate"])
	require.Equal(t, "must not exceed the line value", fields["items[2].discount"])
	require.Equal(t, "must not be before the issue date", fields["due_date"])
	require.Contains(t, fields, "currency")
	require.Equal(t, "is required", fields["to.name"])
	require.Empty(t, f.repo.invoices)
}

func TestSubmitAcceptsZeroQuantityLine(t *testing.T) {
	f := newFixture(t)
	req := scenarioRequest()
	req.Items = append(req.Items, calc.DraftItem{Description: "Complimentary review", Quantity: "0", Rate: "50"})

	inv, _, err := f.svc.Submit(context.Background(), owner, req, "")
	require.NoError(t, err)
	require.Len(t, inv.Items, 2)
	requireDecimal(t, "0", inv.Items[1].Amount)
	requireDecimal(t, "180", inv.Subtotal)
}

func TestSubmitCapsItemDescriptionLength(t *testing.T) {
	f := newFixture(t)
	req := scenarioRequest()
	req.Items[0].Description = strings.Repeat("é", maxDescription)

	_, _, err := f.svc.Submit(context.Background(), owner, req, "")
	require.NoError(t, err)

	req.Items[0].Description = strings.Repeat("word ", 1200)
	_, _, err = f.svc.Submit(context.Background(), owner, req, "")
	var fields shared.FieldErrors
	require.ErrorAs(t, err, &fields)
	require.Equal(t, "must be at most 2000 characters", fields["items[0].description"])
}

func TestSubmitRejectsEmptyItemsAndUnknownTaxMode(t *testing.T) {
	f := newFixture(t)
	req := scenarioRequest()
	req.Items = nil
	req.Tax = calc.TaxSpec{Mode: "compound"}
	req.Discount = "150"
	req.DiscountType = calc.DiscountPercent

	_, _, err := f.svc.Submit(context.Background(), owner, req, "")
	var fields shared.FieldErrors
	require.ErrorAs(t, err, &fields)
	require.Contains(t, fields, "items")
	require.Contains(t, fields, "tax.mode")
	require.Equal(t, "must not exceed 100 percent", fields["discount"])
}

func TestSubmitIdempotency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, replayed, err := f.svc.Submit(ctx, owner, scenarioRequest(), "key-1")
	require.NoError(t, err)
	require.False(t, replayed)

	again, replayed, err := f.svc.Submit(ctx, owner, scenarioRequest(), "key-1")
	require.NoError(t, err)
	require.True(t, replayed)
	require.Equal(t, first.ID, again.ID)
	require.Len(t, f.repo.invoices, 1)

	other, _, err := f.svc.Submit(ctx, "owner-2", scenarioRequest(), "key-1")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, other.ID)

	f.idem.keys[owner+"|"+idempotencyModule+"|pending"] = ""
	_, _, err = f.svc.Submit(ctx, owner, scenarioRequest(), "pending")
	require.ErrorIs(t, err, ErrRequestInFlight)
	require.ErrorIs(t, err, httpx.ErrConflict)
}

func TestSubmitReleasesIdempotencyKeyOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.repo.failNext = errBoom

	_, _, err := f.svc.Submit(ctx, owner, scenarioRequest(), "key-2")
	require.ErrorIs(t, err, errBoom)
	require.Empty(t, f.idem.keys)

	inv, replayed, err := f.svc.Submit(ctx, owner, scenarioRequest(), "key-2")
	require.NoError(t, err)
	require.False(t, replayed)
	require.Equal(t, inv.ID.String(), f.idem.keys[owner+"|"+idempotencyModule+"|key-2"])
}

func TestChangeStatusFollowsLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, _, err := f.svc.Submit(ctx, owner, scenarioRequest(), "")
	require.NoError(t, err)

	paid, err := f.svc.ChangeStatus(ctx, owner, inv.ID, StatusRequest{Status: "paid"})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	requireDecimal(t, "206.50", paid.Total)
	require.Len(t, f.audit.logs, 2)

	again, err := f.svc.ChangeStatus(ctx, owner, inv.ID, StatusRequest{Status: "paid"})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, again.Status)
	require.Len(t, f.audit.logs, 2)

	_, err = f.svc.ChangeStatus(ctx, owner, inv.ID, StatusRequest{Status: "overdue"})
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.ErrorIs(t, err, httpx.ErrConflict)

	_, err = f.svc.ChangeStatus(ctx, owner, inv.ID, StatusRequest{Status: "void"})
	require.ErrorIs(t, err, httpx.ErrValidation)

	_, err = f.svc.ChangeStatus(ctx, "owner-2", inv.ID, StatusRequest{Status: "paid"})
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestValidateTransition(t *testing.T) {
	allowed := map[Status][]Status{
		StatusIssued:    {StatusPaid, StatusOverdue, StatusCancelled},
		StatusOverdue:   {StatusPaid, StatusCancelled},
		StatusPaid:      {},
		StatusCancelled: {},
	}
	all := []Status{StatusIssued, StatusPaid, StatusOverdue, StatusCancelled}
	for from, targets := range allowed {
		for _, to := range all {
			err := ValidateTransition(from, to)
			ok := from == to
			for _, target := range targets {
				ok = ok || target == to
			}
			if ok {
				require.NoErrorf(t, err, "%s -> %s", from, to)
			} else {
				require.ErrorIsf(t, err, ErrInvalidTransition, "%s -> %s", from, to)
			}
		}
	}
	require.True(t, StatusPaid.Terminal())
	require.False(t, StatusOverdue.Terminal())
}

func TestMarkOverdueFlagsPastDueInvoices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, _, err := f.svc.Submit(ctx, owner, scenarioRequest(), "")
	require.NoError(t, err)

	later := scenarioRequest()
	later.DueDate = "2026-03-31"
	notDue, _, err := f.svc.Submit(ctx, owner, later, "")
	require.NoError(t, err)
	f.cache.owners = nil

	n, err := f.svc.MarkOverdue(ctx, time.Date(2026, 2, 10, 15, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []string{owner}, f.cache.owners)

	got, err := f.svc.Get(ctx, owner, inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusOverdue, got.Status)
	got, err = f.svc.Get(ctx, owner, notDue.ID)
	require.NoError(t, err)
	require.Equal(t, StatusIssued, got.Status)
}

func TestRenderPDFUsesStoredSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, _, err := f.svc.Submit(ctx, owner, scenarioRequest(), "")
	require.NoError(t, err)

	data, name, err := f.svc.RenderPDF(ctx, owner, inv.ID)
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.4 stub", string(data))
	require.Equal(t, "invoice-INV-202601-0001.pdf", name)
	require.Equal(t, "INV-202601-0001", f.renderer.doc.Number)
	requireDecimal(t, "206.50", f.renderer.doc.Totals.Total)
	require.Equal(t, "Acme Ltd", f.renderer.doc.To.Name)

	f.renderer.err = errBoom
	_, _, err = f.svc.RenderPDF(ctx, owner, inv.ID)
	require.ErrorIs(t, err, httpx.ErrUnavailable)
	require.ErrorIs(t, err, errBoom)
}

func TestEnqueueRender(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, _, err := f.svc.Submit(ctx, owner, scenarioRequest(), "")
	require.NoError(t, err)

	taskID, err := f.svc.EnqueueRender(ctx, owner, inv.ID)
	require.NoError(t, err)
	require.NotEmpty(t, taskID)
	require.Equal(t, []uuid.UUID{inv.ID}, f.queue.enqueued)

	_, err = f.svc.EnqueueRender(ctx, owner, uuid.New())
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestDeleteInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, _, err := f.svc.Submit(ctx, owner, scenarioRequest(), "")
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.Delete(ctx, "owner-2", inv.ID), httpx.ErrNotFound)
	require.NoError(t, f.svc.Delete(ctx, owner, inv.ID))
	_, err = f.svc.Get(ctx, owner, inv.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
	require.Equal(t, "invoice.deleted", f.audit.logs[len(f.audit.logs)-1].Action)
}

func TestStoredSnapshotRoundTripsWithoutDrift(t *testing.T) {
	f := newFixture(t)
	req := scenarioRequest()
	req.Items = append(req.Items, calc.DraftItem{Description: "Hosting", Quantity: "3", Rate: "33.333", DiscountType: calc.DiscountPercent})
	req.Tax = calc.TaxSpec{Mode: calc.TaxModeMultiple, Taxes: []calc.TaxLineSpec{{Name: "State", Rate: "5"}, {Name: "City", Rate: "2.5"}}}
	req.Shipping = "12.40"
	inv, _, err := f.svc.Submit(context.Background(), owner, req, "")
	require.NoError(t, err)

	raw, err := json.Marshal(inv)
	require.NoError(t, err)
	var reloaded Invoice
	require.NoError(t, json.Unmarshal(raw, &reloaded))

	want, err := json.Marshal(inv.Totals())
	require.NoError(t, err)
	got, err := json.Marshal(reloaded.Totals())
	require.NoError(t, err)
	require.JSONEq(t, string(want), string(got))

	recomputed := calc.ComputeTotals(calc.Input{
		Items:        []calc.LineItem{reloaded.Items[0].LineItem(), reloaded.Items[1].LineItem()},
		Discount:     reloaded.Discount,
		DiscountType: reloaded.DiscountType,
		Tax:          reloaded.TaxConfig.ToConfig(),
		Shipping:     reloaded.Shipping,
	})
	requireDecimal(t, reloaded.Total.String(), recomputed.Total)
	require.Len(t, reloaded.Taxes, 2)
}

func TestPreviewNeverFails(t *testing.T) {
	f := newFixture(t)
	resp := f.svc.Preview(PreviewRequest{
		DraftSpec: calc.DraftSpec{
			Items: []calc.DraftItem{{Description: "x", Quantity: "2", Rate: "not-yet"}},
			Tax:   calc.TaxSpec{Mode: calc.TaxModeStandard, Rate: "10"},
		},
		Currency: "gbp",
	})
	require.True(t, resp.Totals.Total.IsZero())
	require.Equal(t, "Subtotal", resp.Summary[0].Label)
	require.Equal(t, "£0.00", resp.Summary[0].Amount)

	resp = f.svc.Preview(PreviewRequest{DraftSpec: calc.DraftSpec{
		Items: []calc.DraftItem{{Quantity: "1", Rate: "100"}},
	}})
	require.Equal(t, "$100.00", resp.Summary[len(resp.Summary)-1].Amount)
	require.True(t, resp.Summary[len(resp.Summary)-1].Grand)
}

func TestListFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, _, err := f.svc.Submit(ctx, owner, scenarioRequest(), "")
	require.NoError(t, err)
	_, _, err = f.svc.Submit(ctx, owner, scenarioRequest(), "")
	require.NoError(t, err)
	_, err = f.svc.ChangeStatus(ctx, owner, first.ID, StatusRequest{Status: "cancelled"})
	require.NoError(t, err)

	items, page, err := f.svc.List(ctx, ListFilter{OwnerID: owner, Status: StatusIssued}, shared.PageRequest{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "INV-202601-0002", items[0].Number)
	require.Equal(t, 1, page.Total)
}
