package invoices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/invoiceflow/invoiceflow/internal/calc"
	"github.com/invoiceflow/invoiceflow/internal/clients"
	"github.com/invoiceflow/invoiceflow/internal/platform/httpx"
	"github.com/invoiceflow/invoiceflow/internal/profiles"
	"github.com/invoiceflow/invoiceflow/internal/render"
	"github.com/invoiceflow/invoiceflow/internal/shared"
)

const (
	idempotencyModule = "invoices.submit"
	defaultCurrency   = "USD"
)

// ClientDirectory resolves the recipient of an invoice.
type ClientDirectory interface {
	Get(ctx context.Context, ownerID string, id int64) (*clients.Client, error)
}

// ProfileDirectory resolves the issuing business profile.
type ProfileDirectory interface {
	Get(ctx context.Context, ownerID string, id int64) (*profiles.Profile, error)
	Default(ctx context.Context, ownerID string) (*profiles.Profile, error)
}

// IdempotencyStore deduplicates submissions.
type IdempotencyStore interface {
	CheckAndInsert(ctx context.Context, owner, key, module string) error
	Attach(ctx context.Context, owner, key, module, resourceID string) error
	Lookup(ctx context.Context, owner, key, module string) (string, error)
	Delete(ctx context.Context, owner, key, module string) error
}

// AuditRecorder stores audit trail entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheInvalidator drops cached views derived from an owner's invoices.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, owner string) error
}

// RenderQueue schedules asynchronous PDF rendering.
type RenderQueue interface {
	EnqueueRenderPDF(ctx context.Context, owner string, invoiceID uuid.UUID) (string, error)
}

// Dependencies are the optional collaborators of Service. Nil members
// disable the corresponding feature.
type Dependencies struct {
	Clients     ClientDirectory
	Profiles    ProfileDirectory
	Idempotency IdempotencyStore
	Audit       AuditRecorder
	Cache       CacheInvalidator
	Renderer    render.Renderer
	Queue       RenderQueue
	Logger      *slog.Logger
}

// Service implements invoice submission and lifecycle.
type Service struct {
	repo      Repository
	deps      Dependencies
	validator *shared.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires the repository with its collaborators.
func NewService(repo Repository, deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Renderer == nil {
		deps.Renderer = render.NewPDFRenderer()
	}
	return &Service{
		repo:      repo,
		deps:      deps,
		validator: shared.NewValidator(),
		logger:    logger,
		now:       time.Now,
	}
}

// Preview recomputes a draft. It never fails: malformed numbers count as zero.
func (s *Service) Preview(req PreviewRequest) PreviewResponse {
	draft := req.DraftSpec.Draft()
	currency, err := render.NormalizeCurrency(req.Currency)
	if err != nil {
		currency = defaultCurrency
	}
	input := draft.Input()
	doc := render.Document{
		Currency:     currency,
		Items:        input.Items,
		Discount:     input.Discount,
		DiscountType: input.DiscountType,
		Totals:       draft.Totals,
	}
	resp := PreviewResponse{Totals: draft.Totals, Summary: []PreviewLine{}}
	for _, line := range render.SummaryLines(doc) {
		resp.Summary = append(resp.Summary, PreviewLine{
			Label:  line.Label,
			Amount: render.FormatMoney(line.Amount, currency),
			Grand:  line.Grand,
		})
	}
	return resp
}

// Submit validates the request, recomputes its totals and stores the
// immutable invoice. With an idempotency key a repeated request returns the
// invoice created first; replayed reports that case.
func (s *Service) Submit(ctx context.Context, ownerID string, req SubmitRequest, idemKey string) (inv *Invoice, replayed bool, err error) {
	idemKey = strings.TrimSpace(idemKey)
	useIdem := idemKey != "" && s.deps.Idempotency != nil
	if useIdem {
		existing, err := s.replay(ctx, ownerID, idemKey)
		if err != nil || existing != nil {
			return existing, existing != nil, err
		}
	}

	inv, err = s.build(ctx, ownerID, req)
	if err != nil {
		return nil, false, err
	}

	if useIdem {
		if err := s.deps.Idempotency.CheckAndInsert(ctx, ownerID, idemKey, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return nil, false, ErrRequestInFlight
			}
			return nil, false, fmt.Errorf("reserve idempotency key: %w", err)
		}
		defer func() {
			if err != nil {
				if delErr := s.deps.Idempotency.Delete(context.WithoutCancel(ctx), ownerID, idemKey, idempotencyModule); delErr != nil {
					s.logger.Warn("release idempotency key", slog.Any("error", delErr), slog.String("key", idemKey))
				}
			}
		}()
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		period := NumberPeriod(inv.IssueDate)
		seq, err := repo.NextNumber(ctx, ownerID, period)
		if err != nil {
			return err
		}
		inv.Number = FormatNumber(period, seq)
		return repo.Insert(ctx, inv)
	})
	if err != nil {
		return nil, false, fmt.Errorf("store invoice: %w", err)
	}

	if useIdem {
		if err := s.deps.Idempotency.Attach(ctx, ownerID, idemKey, idempotencyModule, inv.ID.String()); err != nil {
			s.logger.Warn("attach idempotency key", slog.Any("error", err), slog.String("invoice", inv.Number))
		}
	}
	s.afterWrite(ctx, ownerID, "invoice.issued", inv, map[string]any{
		"number":   inv.Number,
		"total":    inv.Total.String(),
		"currency": inv.Currency,
	})
	return inv, false, nil
}

func (s *Service) replay(ctx context.Context, ownerID, key string) (*Invoice, error) {
	resourceID, err := s.deps.Idempotency.Lookup(ctx, ownerID, key, idempotencyModule)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	case resourceID == "":
		return nil, ErrRequestInFlight
	}
	id, err := uuid.Parse(resourceID)
	if err != nil {
		return nil, fmt.Errorf("idempotency key points to invalid id %q: %w", resourceID, err)
	}
	return s.repo.Get(ctx, ownerID, id)
}

// build turns the request into a record ready to insert, reporting every
// validation failure at once.
func (s *Service) build(ctx context.Context, ownerID string, req SubmitRequest) (*Invoice, error) {
	fields := shared.FieldErrors{}
	s.validator.Collect(req, fields)
	issue, due := validateDraft(req, fields)

	inv := &Invoice{
		ID:             uuid.New(),
		OwnerID:        ownerID,
		ClientID:       req.ClientID,
		IssueDate:      issue,
		DueDate:        due,
		Status:         StatusIssued,
		PaymentMethod:  strings.TrimSpace(req.PaymentMethod),
		PaymentDetails: strings.TrimSpace(req.PaymentDetails),
		Notes:          strings.TrimSpace(req.Notes),
		Terms:          strings.TrimSpace(req.Terms),
		To:             partyOf(req.To),
		From:           partyOf(req.From),
	}

	if err := s.resolveParties(ctx, ownerID, req, inv, fields); err != nil {
		return nil, err
	}
	if inv.To.Name == "" {
		fields.Add("to.name", "is required")
	}
	if inv.From.Name == "" {
		fields.Add("from.name", "is required")
	}

	currency := req.Currency
	if strings.TrimSpace(currency) == "" {
		currency = inv.Currency
	}
	if strings.TrimSpace(currency) == "" {
		currency = defaultCurrency
	}
	if code, err := render.NormalizeCurrency(currency); err != nil {
		fields.Add("currency", "must be an ISO 4217 currency code")
	} else {
		inv.Currency = code
	}

	draft := req.DraftSpec().Draft()
	input := draft.Input()
	for i := range input.Items {
		input.Items[i].Description = strings.TrimSpace(input.Items[i].Description)
	}
	totals := calc.ComputeTotals(input)
	validateTotals(totals, fields)
	if err := fields.Err(); err != nil {
		return nil, err
	}

	inv.Discount = input.Discount
	inv.DiscountType = input.DiscountType
	inv.TaxConfig = calc.SpecOf(input.Tax)
	inv.applyTotals(input.Items, totals)
	return inv, nil
}

// resolveParties fills the party snapshots, currency, payment details and
// terms from the referenced client and profile. Explicit request values win.
func (s *Service) resolveParties(ctx context.Context, ownerID string, req SubmitRequest, inv *Invoice, fields shared.FieldErrors) error {
	if req.ClientID != nil && s.deps.Clients != nil {
		client, err := s.deps.Clients.Get(ctx, ownerID, *req.ClientID)
		switch {
		case errors.Is(err, httpx.ErrNotFound):
			fields.Add("client_id", "does not exist")
		case err != nil:
			return fmt.Errorf("load client: %w", err)
		default:
			inv.To = merge(inv.To, Party{Name: client.Name, Email: client.Email, Phone: client.Phone, Address: client.Address, TaxID: client.TaxID})
		}
	}

	if s.deps.Profiles == nil {
		return nil
	}
	var profile *profiles.Profile
	var err error
	if req.ProfileID != nil {
		profile, err = s.deps.Profiles.Get(ctx, ownerID, *req.ProfileID)
		if errors.Is(err, httpx.ErrNotFound) {
			fields.Add("profile_id", "does not exist")
			return nil
		}
	} else {
		profile, err = s.deps.Profiles.Default(ctx, ownerID)
	}
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}
	if profile == nil {
		return nil
	}
	id := profile.ID
	inv.ProfileID = &id
	inv.From = merge(inv.From, Party{Name: profile.Name, Email: profile.Email, Phone: profile.Phone, Address: profile.Address, TaxID: profile.TaxID})
	inv.Currency = profile.Currency
	if inv.PaymentMethod == "" {
		inv.PaymentMethod = profile.PaymentMethod
	}
	if inv.PaymentDetails == "" {
		inv.PaymentDetails = profile.PaymentDetails
	}
	if inv.Terms == "" {
		inv.Terms = profile.DefaultTerms
	}
	return nil
}

func partyOf(p PartyInput) Party {
	return Party{
		Name:    strings.TrimSpace(p.Name),
		Email:   strings.TrimSpace(p.Email),
		Phone:   strings.TrimSpace(p.Phone),
		Address: strings.TrimSpace(p.Address),
		TaxID:   strings.TrimSpace(p.TaxID),
	}
}

// merge fills the empty fields of p from fallback.
func merge(p, fallback Party) Party {
	pick := func(v, alt string) string {
		if v != "" {
			return v
		}
		return alt
	}
	return Party{
		Name:    pick(p.Name, fallback.Name),
		Email:   pick(p.Email, fallback.Email),
		Phone:   pick(p.Phone, fallback.Phone),
		Address: pick(p.Address, fallback.Address),
		TaxID:   pick(p.TaxID, fallback.TaxID),
	}
}

func (s *Service) Get(ctx context.Context, ownerID string, id uuid.UUID) (*Invoice, error) {
	return s.repo.Get(ctx, ownerID, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter, page shared.PageRequest) ([]Invoice, shared.Pagination, error) {
	filter.Limit = page.Limit()
	filter.Offset = page.Offset()
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("list invoices: %w", err)
	}
	return items, shared.NewPagination(page.Page, page.PerPage, total), nil
}

// ChangeStatus applies a lifecycle transition. Totals are never touched.
func (s *Service) ChangeStatus(ctx context.Context, ownerID string, id uuid.UUID, req StatusRequest) (*Invoice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	target, _ := ParseStatus(req.Status)

	var (
		updated *Invoice
		changed bool
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		current, err := repo.Get(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if err := ValidateTransition(current.Status, target); err != nil {
			return err
		}
		if current.Status == target {
			updated = current
			return nil
		}
		changed = true
		var paidAt *time.Time
		if target == StatusPaid {
			now := s.now().UTC()
			paidAt = &now
		}
		if err := repo.UpdateStatus(ctx, ownerID, id, current.Status, target, paidAt); err != nil {
			return err
		}
		updated, err = repo.Get(ctx, ownerID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return updated, nil
	}
	s.afterWrite(ctx, ownerID, "invoice.status_changed", updated, map[string]any{"status": string(updated.Status)})
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, ownerID string, id uuid.UUID) error {
	inv, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.afterWrite(ctx, ownerID, "invoice.deleted", inv, map[string]any{"number": inv.Number})
	return nil
}

// MarkOverdue flags every issued invoice due before asOf and returns the
// number of owners affected.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	day := time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	owners, err := s.repo.MarkOverdue(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	for _, owner := range owners {
		s.invalidate(ctx, owner)
	}
	return len(owners), nil
}

// RenderPDF renders the stored snapshot. It returns the bytes and the
// download file name.
func (s *Service) RenderPDF(ctx context.Context, ownerID string, id uuid.UUID) ([]byte, string, error) {
	inv, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, "", err
	}
	return s.Render(ctx, inv)
}

// Render renders an already loaded invoice.
func (s *Service) Render(ctx context.Context, inv *Invoice) ([]byte, string, error) {
	data, err := s.deps.Renderer.Render(ctx, inv.Document())
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, "", ctxErr
		}
		return nil, "", fmt.Errorf("render invoice %s: %w: %w", inv.Number, httpx.ErrUnavailable, err)
	}
	return data, render.FileName(inv.Number), nil
}

// EnqueueRender schedules a background render and returns the task id.
func (s *Service) EnqueueRender(ctx context.Context, ownerID string, id uuid.UUID) (string, error) {
	if s.deps.Queue == nil {
		return "", fmt.Errorf("render queue not configured: %w", httpx.ErrUnavailable)
	}
	if _, err := s.repo.Get(ctx, ownerID, id); err != nil {
		return "", err
	}
	taskID, err := s.deps.Queue.EnqueueRenderPDF(ctx, ownerID, id)
	if err != nil {
		return "", fmt.Errorf("enqueue render: %w: %w", httpx.ErrUnavailable, err)
	}
	return taskID, nil
}

// afterWrite records the audit entry and invalidates cached views. Failures
// are logged; the write itself already succeeded.
func (s *Service) afterWrite(ctx context.Context, ownerID, action string, inv *Invoice, meta map[string]any) {
	if s.deps.Audit != nil {
		err := s.deps.Audit.Record(ctx, shared.AuditLog{
			OwnerID:  ownerID,
			Action:   action,
			Entity:   "invoice",
			EntityID: inv.ID.String(),
			Meta:     meta,
			At:       s.now().UTC(),
		})
		if err != nil {
			s.logger.Warn("record audit log", slog.Any("error", err), slog.String("action", action), slog.String("invoice", inv.Number))
		}
	}
	s.invalidate(ctx, ownerID)
}

func (s *Service) invalidate(ctx context.Context, ownerID string) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.Invalidate(ctx, ownerID); err != nil {
		s.logger.Warn("invalidate dashboard cache", slog.Any("error", err), slog.String("owner", ownerID))
	}
}
