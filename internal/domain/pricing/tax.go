package pricing

import (
	"strings"
	"time"

	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Tax profile status values
const (
	TaxProfileActive   = "ACTIVE"
	TaxProfileInactive = "INACTIVE"
)

// TaxComponent is one named part of a tax rate, e.g. CGST 9%
type TaxComponent struct {
	Name string          `json:"name"`
	Rate decimal.Decimal `json:"rate"`
}

// TaxProfile is a named aggregate tax rate composed of components, e.g. "GST 18%" = CGST 9% + SGST 9%
type TaxProfile struct {
	TaxProfileID   string          `json:"taxProfileId"`
	OrganizationID string          `json:"organizationId"`
	ProfileName    string          `json:"profileName"`
	TotalRate      decimal.Decimal `json:"totalRate"`
	Status         string          `json:"status"`
	Components     []TaxComponent  `json:"components"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// GetID implements shared.Identifiable
func (p *TaxProfile) GetID() string { return p.TaxProfileID }

// NewTaxProfile creates a tax profile after checking the components add up to the total rate
func NewTaxProfile(id, organizationID, name string, totalRate decimal.Decimal, components []TaxComponent) (*TaxProfile, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("INVALID_TAX_PROFILE", "Tax profile name cannot be empty")
	}
	if id == "" {
		id = shared.NewID("tax")
	}
	p := &TaxProfile{
		TaxProfileID:   id,
		OrganizationID: organizationID,
		ProfileName:    name,
		TotalRate:      totalRate,
		Status:         TaxProfileActive,
		Components:     append([]TaxComponent(nil), components...),
		CreatedAt:      time.Now().UTC(),
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks rates are non-negative and components sum to the total rate
func (p *TaxProfile) Validate() error {
	if p.TotalRate.IsNegative() || p.TotalRate.GreaterThan(hundred) {
		return shared.NewValidationError("INVALID_TAX_RATE", "Total tax rate must be between 0 and 100")
	}
	if len(p.Components) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, c := range p.Components {
		if strings.TrimSpace(c.Name) == "" {
			return shared.NewValidationError("INVALID_TAX_COMPONENT", "Tax component name cannot be empty")
		}
		if c.Rate.IsNegative() {
			return shared.NewValidationError("INVALID_TAX_COMPONENT", "Tax component rate cannot be negative")
		}
		sum = sum.Add(c.Rate)
	}
	if !sum.Equal(p.TotalRate) {
		return shared.NewValidationError("INVALID_TAX_PROFILE",
			"Tax component rates must add up to the total rate").
			WithDetail("total_rate", p.TotalRate.String()).
			WithDetail("component_sum", sum.String())
	}
	return nil
}

// Snapshot captures the profile's rates for storing on a transaction line
func (p *TaxProfile) Snapshot() TaxSnapshot {
	return TaxSnapshot{
		ProfileID:  p.TaxProfileID,
		TotalRate:  p.TotalRate,
		Components: append([]TaxComponent(nil), p.Components...),
	}
}

// TaxSnapshot is the tax definition frozen on a line at the time of the transaction.
// Later edits to the TaxProfile do not affect lines that already carry a snapshot.
type TaxSnapshot struct {
	ProfileID  string
	TotalRate  decimal.Decimal
	Components []TaxComponent
}

// NoTax is the empty snapshot
func NoTax() TaxSnapshot { return TaxSnapshot{TotalRate: decimal.Zero} }

// AppliedTaxComponent is a component together with the amount it contributed on a line
type AppliedTaxComponent struct {
	Name   string          `json:"name"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// apportion splits a rounded tax total across components proportionally to their rates.
// The last component takes the rounding residual so the parts always add up to total.
func (s TaxSnapshot) apportion(total decimal.Decimal) []AppliedTaxComponent {
	if len(s.Components) == 0 {
		return nil
	}
	out := make([]AppliedTaxComponent, len(s.Components))
	allocated := decimal.Zero
	for i, c := range s.Components {
		var amount decimal.Decimal
		switch {
		case i == len(s.Components)-1:
			amount = total.Sub(allocated)
		case s.TotalRate.IsZero():
			amount = decimal.Zero
		default:
			amount = Round(total.Mul(c.Rate).Div(s.TotalRate))
		}
		allocated = allocated.Add(amount)
		out[i] = AppliedTaxComponent{Name: c.Name, Rate: c.Rate, Amount: amount}
	}
	return out
}

// TaxProfilesCollection is the collection of an organization's tax profiles
func TaxProfilesCollection(organizationID string) docstore.Path {
	return docstore.OrganizationRoot(organizationID).Sub("tax_profiles")
}

// TaxProfilePath locates a tax profile document
func TaxProfilePath(organizationID, taxProfileID string) docstore.Path {
	return TaxProfilesCollection(organizationID).Doc(taxProfileID)
}
