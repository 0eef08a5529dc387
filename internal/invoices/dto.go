package invoices

import (
	"github.com/invoiceflow/invoiceflow/internal/calc"
)

// PartyInput overrides the party snapshot taken from a client or profile.
type PartyInput struct {
	Name    string `json:"name" validate:"omitempty,max=200"`
	Email   string `json:"email" validate:"omitempty,email,max=200"`
	Phone   string `json:"phone" validate:"omitempty,max=50"`
	Address string `json:"address" validate:"omitempty,max=1000"`
	TaxID   string `json:"tax_id" validate:"omitempty,max=50"`
}

// SubmitRequest is the final form of a draft. Client-sent totals are never
// accepted; the record is always recomputed.
type SubmitRequest struct {
	ClientID       *int64            `json:"client_id,omitempty" validate:"omitempty,gt=0"`
	ProfileID      *int64            `json:"profile_id,omitempty" validate:"omitempty,gt=0"`
	From           PartyInput        `json:"from"`
	To             PartyInput        `json:"to"`
	IssueDate      string            `json:"issue_date" validate:"required"`
	DueDate        string            `json:"due_date" validate:"required"`
	Currency       string            `json:"currency" validate:"omitempty,len=3"`
	Items          []calc.DraftItem  `json:"items" validate:"required,min=1,max=500"`
	Discount       calc.Loose        `json:"discount"`
	DiscountType   calc.DiscountType `json:"discount_type"`
	Tax            calc.TaxSpec      `json:"tax"`
	Shipping       calc.Loose        `json:"shipping"`
	PaymentMethod  string            `json:"payment_method" validate:"omitempty,max=100"`
	PaymentDetails string            `json:"payment_details" validate:"omitempty,max=2000"`
	Notes          string            `json:"notes" validate:"omitempty,max=4000"`
	Terms          string            `json:"terms" validate:"omitempty,max=4000"`
}

// DraftSpec returns the calculation part of the request.
func (r SubmitRequest) DraftSpec() calc.DraftSpec {
	return calc.DraftSpec{
		Items:        r.Items,
		Discount:     r.Discount,
		DiscountType: r.DiscountType,
		Tax:          r.Tax,
		Shipping:     r.Shipping,
	}
}

// StatusRequest changes the payment status of an invoice.
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=issued paid overdue cancelled"`
}

// ListFilter scopes an invoice listing.
type ListFilter struct {
	OwnerID  string
	Status   Status
	ClientID *int64
	Search   string
	Limit    int
	Offset   int
}

// PreviewRequest is a draft in progress. Currency only affects formatting.
type PreviewRequest struct {
	calc.DraftSpec
	Currency string `json:"currency"`
}

// PreviewLine is one formatted row of the totals block.
type PreviewLine struct {
	Label  string `json:"label"`
	Amount string `json:"amount"`
	Grand  bool   `json:"grand,omitempty"`
}

// PreviewResponse is the live computation shown while authoring.
type PreviewResponse struct {
	Totals  calc.Totals   `json:"totals"`
	Summary []PreviewLine `json:"summary"`
}
