package profiles

import "time"

// Profile is the business identity an invoice is issued from.
type Profile struct {
	ID             int64     `json:"id"`
	OwnerID        string    `json:"-"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Address        string    `json:"address"`
	TaxID          string    `json:"tax_id"`
	Currency       string    `json:"currency"`
	PaymentMethod  string    `json:"payment_method"`
	PaymentDetails string    `json:"payment_details"`
	DefaultTerms   string    `json:"default_terms"`
	IsDefault      bool      `json:"is_default"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
