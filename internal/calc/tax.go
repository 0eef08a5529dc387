package calc

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxMode names the variant of a TaxConfig.
type TaxMode string

const (
	TaxModeNone     TaxMode = "none"
	TaxModeStandard TaxMode = "standard"
	TaxModeMultiple TaxMode = "multiple"
)

// TaxConfig is a closed sum type: NoTax, StandardTax or MultipleTaxes.
type TaxConfig interface {
	Mode() TaxMode
	isTaxConfig()
}

// NoTax applies no tax at all.
type NoTax struct{}

// StandardTax applies one named rate to the net amount.
type StandardTax struct {
	Name string
	Rate decimal.Decimal
}

// TaxLine is one entry of a MultipleTaxes configuration.
type TaxLine struct {
	ID   string
	Name string
	Rate decimal.Decimal
}

// MultipleTaxes applies every rate to the same net amount and sums the results.
type MultipleTaxes struct {
	Taxes []TaxLine
}

func (NoTax) Mode() TaxMode         { return TaxModeNone }
func (StandardTax) Mode() TaxMode   { return TaxModeStandard }
func (MultipleTaxes) Mode() TaxMode { return TaxModeMultiple }

func (NoTax) isTaxConfig()         {}
func (StandardTax) isTaxConfig()   {}
func (MultipleTaxes) isTaxConfig() {}

// NewTaxLine builds a tax line with a fresh identifier.
func NewTaxLine(name string, rate decimal.Decimal) TaxLine {
	return TaxLine{ID: uuid.NewString(), Name: name, Rate: rate}
}

// TransitionTaxMode moves a configuration to another mode, carrying the rate
// and name across where that is meaningful.
func TransitionTaxMode(prev TaxConfig, mode TaxMode) TaxConfig {
	if prev == nil {
		prev = NoTax{}
	}
	if prev.Mode() == mode {
		return cloneTaxConfig(prev)
	}
	switch mode {
	case TaxModeMultiple:
		if std, ok := prev.(StandardTax); ok && std.Rate.IsPositive() {
			return MultipleTaxes{Taxes: []TaxLine{NewTaxLine(std.Name, std.Rate)}}
		}
		return MultipleTaxes{Taxes: []TaxLine{NewTaxLine("", decimal.Zero)}}
	case TaxModeStandard:
		if multi, ok := prev.(MultipleTaxes); ok && len(multi.Taxes) > 0 && !multi.Taxes[0].Rate.IsZero() {
			first := multi.Taxes[0]
			return StandardTax{Name: first.Name, Rate: first.Rate}
		}
		return StandardTax{Rate: decimal.Zero}
	default:
		return NoTax{}
	}
}

func cloneTaxConfig(cfg TaxConfig) TaxConfig {
	if multi, ok := cfg.(MultipleTaxes); ok {
		taxes := make([]TaxLine, len(multi.Taxes))
		copy(taxes, multi.Taxes)
		return MultipleTaxes{Taxes: taxes}
	}
	return cfg
}

// TaxSpec is the wire and storage shape of a TaxConfig.
type TaxSpec struct {
	Mode  TaxMode       `json:"mode"`
	Name  string        `json:"name,omitempty"`
	Rate  Loose         `json:"rate,omitempty"`
	Taxes []TaxLineSpec `json:"taxes,omitempty"`
}

// TaxLineSpec is the wire shape of a TaxLine.
type TaxLineSpec struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Rate Loose  `json:"rate"`
}

// ToConfig converts the wire shape into a TaxConfig. Fields that do not
// belong to the selected mode are ignored; unknown modes mean no tax.
func (s TaxSpec) ToConfig() TaxConfig {
	switch s.Mode {
	case TaxModeStandard:
		return StandardTax{Name: s.Name, Rate: s.Rate.Decimal()}
	case TaxModeMultiple:
		taxes := make([]TaxLine, 0, len(s.Taxes))
		for _, t := range s.Taxes {
			id := t.ID
			if id == "" {
				id = uuid.NewString()
			}
			taxes = append(taxes, TaxLine{ID: id, Name: t.Name, Rate: t.Rate.Decimal()})
		}
		return MultipleTaxes{Taxes: taxes}
	default:
		return NoTax{}
	}
}

// SpecOf converts a TaxConfig into its wire shape.
func SpecOf(cfg TaxConfig) TaxSpec {
	switch c := cfg.(type) {
	case StandardTax:
		return TaxSpec{Mode: TaxModeStandard, Name: c.Name, Rate: Loose(c.Rate.String())}
	case MultipleTaxes:
		taxes := make([]TaxLineSpec, 0, len(c.Taxes))
		for _, t := range c.Taxes {
			taxes = append(taxes, TaxLineSpec{ID: t.ID, Name: t.Name, Rate: Loose(t.Rate.String())})
		}
		return TaxSpec{Mode: TaxModeMultiple, Taxes: taxes}
	default:
		return TaxSpec{Mode: TaxModeNone}
	}
}
