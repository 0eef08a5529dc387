// Command seed loads demo clients, profiles and invoices for local
// development. Re-running it is safe: invoices carry fixed idempotency keys
// and owners that already have profiles are skipped.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/invoiceflow/invoiceflow/internal/app"
	"github.com/invoiceflow/invoiceflow/internal/calc"
	"github.com/invoiceflow/invoiceflow/internal/clients"
	"github.com/invoiceflow/invoiceflow/internal/invoices"
	"github.com/invoiceflow/invoiceflow/internal/platform/db"
	"github.com/invoiceflow/invoiceflow/internal/profiles"
	"github.com/invoiceflow/invoiceflow/internal/shared"
)

const demoOwner = "demo-owner"

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	ctx := context.Background()
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: 4})
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if _, err := db.Migrate(ctx, pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	clientService := clients.NewService(clients.NewRepository(pool))
	profileService := profiles.NewService(profiles.NewRepository(pool))
	invoiceService := invoices.NewService(invoices.NewRepository(pool), invoices.Dependencies{
		Clients:     clientService,
		Profiles:    profileService,
		Idempotency: shared.NewIdempotencyStore(pool),
		Audit:       shared.NewAuditLogger(pool),
		Logger:      logger,
	})

	existing, err := profileService.List(ctx, demoOwner)
	if err != nil {
		log.Fatalf("list profiles: %v", err)
	}
	if len(existing) > 0 {
		fmt.Println("✓ demo owner already seeded")
		return
	}

	fmt.Println("→ Seeding profiles...")
	if err := seedProfiles(ctx, profileService); err != nil {
		log.Fatalf("seed profiles: %v", err)
	}

	fmt.Println("→ Seeding clients...")
	clientIDs, err := seedClients(ctx, clientService)
	if err != nil {
		log.Fatalf("seed clients: %v", err)
	}

	fmt.Println("→ Seeding invoices...")
	if err := seedInvoices(ctx, invoiceService, clientIDs); err != nil {
		log.Fatalf("seed invoices: %v", err)
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func seedProfiles(ctx context.Context, svc *profiles.Service) error {
	reqs := []profiles.CreateProfileRequest{
		{
			Name:           "Studio North",
			Email:          "billing@studionorth.example",
			Address:        "12 Harbour Street\nLeith, Edinburgh",
			TaxID:          "GB123456789",
			Currency:       "GBP",
			PaymentMethod:  "Bank transfer",
			PaymentDetails: "Sort code 12-34-56\nAccount 12345678",
			DefaultTerms:   "Payment due within 30 days.",
			IsDefault:      true,
		},
		{
			Name:          "Studio North EU",
			Email:         "eu@studionorth.example",
			Currency:      "EUR",
			PaymentMethod: "SEPA",
		},
	}
	for _, req := range reqs {
		if _, err := svc.Create(ctx, demoOwner, req); err != nil {
			return fmt.Errorf("profile %s: %w", req.Name, err)
		}
	}
	return nil
}

func seedClients(ctx context.Context, svc *clients.Service) ([]int64, error) {
	reqs := []clients.CreateClientRequest{
		{Name: "Acme Ltd", Email: "accounts@acme.example", Address: "1 Market Square\nLondon"},
		{Name: "Globex GmbH", Email: "ap@globex.example", TaxID: "DE987654321"},
		{Name: "Initech", Email: "finance@initech.example", Notes: "Prefers PDF by email"},
	}
	ids := make([]int64, 0, len(reqs))
	for _, req := range reqs {
		c, err := svc.Create(ctx, demoOwner, req)
		if err != nil {
			return nil, fmt.Errorf("client %s: %w", req.Name, err)
		}
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func seedInvoices(ctx context.Context, svc *invoices.Service, clientIDs []int64) error {
	today := time.Now().UTC()
	date := func(days int) string { return today.AddDate(0, 0, days).Format(time.DateOnly) }

	type seed struct {
		client int
		issued int
		req    invoices.SubmitRequest
		status invoices.Status
	}
	seeds := []seed{
		{client: 0, issued: -60, status: invoices.StatusPaid, req: invoices.SubmitRequest{
			Items: []calc.DraftItem{
				{Description: "Brand identity", Quantity: "1", Rate: "1200"},
				{Description: "Logo variations", Quantity: "3", Rate: "150", Discount: "10"},
			},
			Tax: calc.TaxSpec{Mode: calc.TaxModeStandard, Name: "VAT", Rate: "20"},
		}},
		{client: 1, issued: -45, status: invoices.StatusIssued, req: invoices.SubmitRequest{
			Currency: "EUR",
			Items:    []calc.DraftItem{{Description: "Website retainer", Quantity: "20", Rate: "85"}},
			Discount: "100", DiscountType: calc.DiscountFixed,
			Tax: calc.TaxSpec{Mode: calc.TaxModeMultiple, Taxes: []calc.TaxLineSpec{
				{Name: "VAT", Rate: "19"},
				{Name: "Levy", Rate: "1.5"},
			}},
		}},
		{client: 2, issued: -5, status: invoices.StatusIssued, req: invoices.SubmitRequest{
			Items:    []calc.DraftItem{{Description: "Workshop", Quantity: "2", Rate: "450"}},
			Shipping: "25",
		}},
		{client: 0, issued: -20, status: invoices.StatusCancelled, req: invoices.SubmitRequest{
			Items: []calc.DraftItem{{Description: "Photography", Quantity: "1", Rate: "600"}},
		}},
	}

	for i, s := range seeds {
		req := s.req
		clientID := clientIDs[s.client]
		req.ClientID = &clientID
		req.IssueDate = date(s.issued)
		req.DueDate = date(s.issued + 30)
		inv, _, err := svc.Submit(ctx, demoOwner, req, fmt.Sprintf("seed-%d", i))
		if err != nil {
			return fmt.Errorf("invoice %d: %w", i, err)
		}
		if s.status != invoices.StatusIssued {
			if _, err := svc.ChangeStatus(ctx, demoOwner, inv.ID, invoices.StatusRequest{Status: string(s.status)}); err != nil {
				return fmt.Errorf("invoice %s status: %w", inv.Number, err)
			}
		}
	}

	marked, err := svc.MarkOverdue(ctx, today)
	if err != nil {
		return fmt.Errorf("mark overdue: %w", err)
	}
	fmt.Printf("  %d invoices marked overdue\n", marked)
	return nil
}
