package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// OrganizationTaxConfig is the tax registration of an organization. An
// organization without a row (or with the row disabled) does not charge tax.
type OrganizationTaxConfig struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	OrgID snowflake.ID `gorm:"column:org_id;not null;uniqueIndex"`

	TaxTypeCode string `gorm:"column:tax_type_code;type:text;not null;default:''"`
	TaxTypeName string `gorm:"column:tax_type_name;type:text;not null;default:''"`
	// StateID is the organization's tax jurisdiction.
	StateID string `gorm:"column:state_id;type:text;not null;default:''"`

	IsEnabled bool `gorm:"column:is_enabled;not null"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (OrganizationTaxConfig) TableName() string { return "organization_tax_configs" }

func (c *OrganizationTaxConfig) Validate() error {
	if c.OrgID == 0 {
		return ErrInvalidOrganization
	}
	if len(c.TaxTypeCode) > 64 {
		return ErrInvalidTaxCode
	}
	return nil
}

// RegimeKind enumerates the closed set of tax regimes an invoice can be
// edited under.
type RegimeKind string

const (
	RegimeTaxDisabled    RegimeKind = "tax_disabled"
	RegimeSingleTax      RegimeKind = "single_tax"
	RegimeSplitTaxLocal  RegimeKind = "split_tax_local"
	RegimeSplitTaxRemote RegimeKind = "split_tax_remote"
)

// Labels names the tax buckets shown under a regime.
type Labels struct {
	ComponentA string `json:"component_a,omitempty"`
	ComponentB string `json:"component_b,omitempty"`
	Combined   string `json:"combined,omitempty"`
}

// Regime is resolved once per invoice-edit session.
type Regime struct {
	Kind   RegimeKind `json:"kind"`
	Name   string     `json:"name"`
	Labels Labels     `json:"labels"`
}

func Disabled() Regime {
	return Regime{Kind: RegimeTaxDisabled}
}

func Single(name string) Regime {
	return Regime{Kind: RegimeSingleTax, Name: name, Labels: Labels{Combined: name}}
}

func SplitLocal(name string, labels Labels) Regime {
	return Regime{Kind: RegimeSplitTaxLocal, Name: name, Labels: labels}
}

func SplitRemote(name string, labels Labels) Regime {
	return Regime{Kind: RegimeSplitTaxRemote, Name: name, Labels: labels}
}

// TaxEnabled reports whether lines carry tax at all.
func (r Regime) TaxEnabled() bool {
	switch r.Kind {
	case RegimeSingleTax, RegimeSplitTaxLocal, RegimeSplitTaxRemote:
		return true
	default:
		return false
	}
}

func (r Regime) IsSplit() bool {
	return r.Kind == RegimeSplitTaxLocal || r.Kind == RegimeSplitTaxRemote
}

// Rules drive regime detection and bucket naming.
type Rules struct {
	// SplitCodePrefixes are tax type code prefixes (upper case) that denote a
	// split multi-component tax.
	SplitCodePrefixes []string
	SplitName         string
	LocalComponentA   string
	LocalComponentB   string
	RemoteComponent   string
	DefaultSingleName string
}

func DefaultRules() Rules {
	return Rules{
		SplitCodePrefixes: []string{"GST"},
		SplitName:         "GST",
		LocalComponentA:   "CGST",
		LocalComponentB:   "SGST",
		RemoteComponent:   "IGST",
		DefaultSingleName: "Tax",
	}
}
