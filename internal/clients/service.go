package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/invoiceflow/invoiceflow/internal/shared"
)

type Service struct {
	repo      Repository
	validator *shared.Validator
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, validator: shared.NewValidator()}
}

func (s *Service) Create(ctx context.Context, ownerID string, req CreateClientRequest) (*Client, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	client := Client{
		OwnerID: ownerID,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
		TaxID:   strings.TrimSpace(req.TaxID),
		Notes:   req.Notes,
	}

	var created *Client
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		created, err = repo.Create(ctx, client)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, ownerID string, id int64, req UpdateClientRequest) (*Client, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	existing, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("get client: %w", err)
	}

	updates := make(map[string]any)
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, shared.FieldErrors{"name": "is required"}
		}
		updates["name"] = name
	}
	if req.Email != nil {
		updates["email"] = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		updates["phone"] = strings.TrimSpace(*req.Phone)
	}
	if req.Address != nil {
		updates["address"] = strings.TrimSpace(*req.Address)
	}
	if req.TaxID != nil {
		updates["tax_id"] = strings.TrimSpace(*req.TaxID)
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if len(updates) == 0 {
		return existing, nil
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.Update(ctx, ownerID, id, updates)
	})
	if err != nil {
		return nil, fmt.Errorf("update client: %w", err)
	}
	return s.repo.Get(ctx, ownerID, id)
}

func (s *Service) Get(ctx context.Context, ownerID string, id int64) (*Client, error) {
	return s.repo.Get(ctx, ownerID, id)
}

func (s *Service) List(ctx context.Context, ownerID, search string, page shared.PageRequest) ([]Client, shared.Pagination, error) {
	items, total, err := s.repo.List(ctx, ListClientsRequest{
		OwnerID: ownerID,
		Search:  search,
		Limit:   page.Limit(),
		Offset:  page.Offset(),
	})
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("list clients: %w", err)
	}
	return items, shared.NewPagination(page.Page, page.PerPage, total), nil
}

// Delete removes the client. Invoices keep their snapshot of the party.
func (s *Service) Delete(ctx context.Context, ownerID string, id int64) error {
	return s.repo.Delete(ctx, ownerID, id)
}
