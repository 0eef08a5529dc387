package profiles

type CreateProfileRequest struct {
	Name           string `json:"name" validate:"required,max=200"`
	Email          string `json:"email" validate:"omitempty,email,max=200"`
	Phone          string `json:"phone" validate:"omitempty,max=50"`
	Address        string `json:"address" validate:"omitempty,max=1000"`
	TaxID          string `json:"tax_id" validate:"omitempty,max=50"`
	Currency       string `json:"currency" validate:"omitempty,len=3"`
	PaymentMethod  string `json:"payment_method" validate:"omitempty,max=100"`
	PaymentDetails string `json:"payment_details" validate:"omitempty,max=2000"`
	DefaultTerms   string `json:"default_terms" validate:"omitempty,max=4000"`
	IsDefault      bool   `json:"is_default"`
}

type UpdateProfileRequest struct {
	Name           *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Email          *string `json:"email,omitempty" validate:"omitempty,email,max=200"`
	Phone          *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address        *string `json:"address,omitempty" validate:"omitempty,max=1000"`
	TaxID          *string `json:"tax_id,omitempty" validate:"omitempty,max=50"`
	Currency       *string `json:"currency,omitempty" validate:"omitempty,len=3"`
	PaymentMethod  *string `json:"payment_method,omitempty" validate:"omitempty,max=100"`
	PaymentDetails *string `json:"payment_details,omitempty" validate:"omitempty,max=2000"`
	DefaultTerms   *string `json:"default_terms,omitempty" validate:"omitempty,max=4000"`
	IsDefault      *bool   `json:"is_default,omitempty"`
}
