package clients

type CreateClientRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"omitempty,email,max=200"`
	Phone   string `json:"phone" validate:"omitempty,max=50"`
	Address string `json:"address" validate:"omitempty,max=1000"`
	TaxID   string `json:"tax_id" validate:"omitempty,max=50"`
	Notes   string `json:"notes" validate:"omitempty,max=2000"`
}

type UpdateClientRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Email   *string `json:"email,omitempty" validate:"omitempty,email,max=200"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=1000"`
	TaxID   *string `json:"tax_id,omitempty" validate:"omitempty,max=50"`
	Notes   *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type ListClientsRequest struct {
	OwnerID string
	Search  string
	Limit   int
	Offset  int
}
