package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/invoiceflow/invoiceflow/internal/render"
	"github.com/invoiceflow/invoiceflow/internal/shared"
)

const defaultCurrency = "USD"

type Service struct {
	repo      Repository
	validator *shared.Validator
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, validator: shared.NewValidator()}
}

// Create stores a profile. The first profile of an owner always becomes the
// default; a new default demotes the previous one.
func (s *Service) Create(ctx context.Context, ownerID string, req CreateProfileRequest) (*Profile, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	currency, err := normalizeCurrency(req.Currency)
	if err != nil {
		return nil, err
	}

	profile := Profile{
		OwnerID:        ownerID,
		Name:           req.Name,
		Email:          req.Email,
		Phone:          strings.TrimSpace(req.Phone),
		Address:        strings.TrimSpace(req.Address),
		TaxID:          strings.TrimSpace(req.TaxID),
		Currency:       currency,
		PaymentMethod:  strings.TrimSpace(req.PaymentMethod),
		PaymentDetails: strings.TrimSpace(req.PaymentDetails),
		DefaultTerms:   strings.TrimSpace(req.DefaultTerms),
		IsDefault:      req.IsDefault,
	}

	var created *Profile
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		existing, err := repo.List(ctx, ownerID)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			profile.IsDefault = true
		}
		if profile.IsDefault {
			if err := repo.ClearDefault(ctx, ownerID); err != nil {
				return err
			}
		}
		created, err = repo.Create(ctx, profile)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return created, nil
}

func (s *Service) Update(ctx context.Context, ownerID string, id int64, req UpdateProfileRequest) (*Profile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	existing, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	updates := make(map[string]any)
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, shared.FieldErrors{"name": "is required"}
		}
		updates["name"] = name
	}
	if req.Currency != nil {
		currency, err := normalizeCurrency(*req.Currency)
		if err != nil {
			return nil, err
		}
		updates["currency"] = currency
	}
	for col, v := range map[string]*string{
		"email":           req.Email,
		"phone":           req.Phone,
		"address":         req.Address,
		"tax_id":          req.TaxID,
		"payment_method":  req.PaymentMethod,
		"payment_details": req.PaymentDetails,
		"default_terms":   req.DefaultTerms,
	} {
		if v != nil {
			updates[col] = strings.TrimSpace(*v)
		}
	}
	if req.IsDefault != nil && *req.IsDefault != existing.IsDefault {
		updates["is_default"] = *req.IsDefault
	}
	if len(updates) == 0 {
		return existing, nil
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if v, ok := updates["is_default"]; ok && v.(bool) {
			if err := repo.ClearDefault(ctx, ownerID); err != nil {
				return err
			}
		}
		return repo.Update(ctx, ownerID, id, updates)
	})
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.repo.Get(ctx, ownerID, id)
}

func (s *Service) Get(ctx context.Context, ownerID string, id int64) (*Profile, error) {
	return s.repo.Get(ctx, ownerID, id)
}

// Default returns the owner's default profile, or nil when the owner has none.
func (s *Service) Default(ctx context.Context, ownerID string) (*Profile, error) {
	p, err := s.repo.GetDefault(ctx, ownerID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return p, err
}

func (s *Service) List(ctx context.Context, ownerID string) ([]Profile, error) {
	return s.repo.List(ctx, ownerID)
}

func (s *Service) Delete(ctx context.Context, ownerID string, id int64) error {
	return s.repo.Delete(ctx, ownerID, id)
}

func normalizeCurrency(code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return defaultCurrency, nil
	}
	normalized, err := render.NormalizeCurrency(code)
	if err != nil {
		return "", shared.FieldErrors{"currency": "must be an ISO 4217 currency code"}
	}
	return normalized, nil
}
