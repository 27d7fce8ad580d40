// Package pricing implements the condition-driven buyback and resale price
// engine. Every function in this package is pure: lookup data is injected
// through the DeductionTable and BasePriceTable interfaces.
package pricing

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

// DeductionType is a named category of price reduction.
type DeductionType string

// Buyback deduction types.
const (
	DeductBattery90        DeductionType = "battery_90"
	DeductBattery80to89    DeductionType = "battery_80_89"
	DeductBattery79        DeductionType = "battery_79"
	DeductNWOK             DeductionType = "nw_ok"
	DeductNWChecking       DeductionType = "nw_checking"
	DeductNWNG             DeductionType = "nw_ng"
	DeductCameraBroken     DeductionType = "camera_broken"
	DeductCameraStain      DeductionType = "camera_stain"
	DeductCameraStainMajor DeductionType = "camera_stain_major"
	DeductRepairHistory    DeductionType = "repair_history"
)

// Resale deduction types. The resale battery penalty is a rate, not a row.
const (
	ResaleCameraStainMinor DeductionType = "camera_stain_minor"
	ResaleCameraStainMajor DeductionType = "camera_stain_major"
	ResaleNWTriangle       DeductionType = "nw_triangle"
	ResaleNWCross          DeductionType = "nw_cross"

	// ResaleBatteryRate labels the computed battery line; it has no table row.
	ResaleBatteryRate DeductionType = "battery_rate"
)

// BuybackDeductionTypes is the closed set of buyback deduction types.
var BuybackDeductionTypes = []DeductionType{
	DeductBattery90,
	DeductBattery80to89,
	DeductBattery79,
	DeductNWOK,
	DeductNWChecking,
	DeductNWNG,
	DeductCameraBroken,
	DeductCameraStain,
	DeductCameraStainMajor,
	DeductRepairHistory,
}

// ResaleDeductionTypes is the closed set of resale deduction types.
var ResaleDeductionTypes = []DeductionType{
	ResaleCameraStainMinor,
	ResaleCameraStainMajor,
	ResaleNWTriangle,
	ResaleNWCross,
}

// DeductionTable resolves a deduction amount. A missing row reports false
// and is treated as zero by the evaluators.
type DeductionTable interface {
	Deduction(model, storage string, t DeductionType) (int, bool)
}

// BasePriceTable resolves the base price of a model/storage/rank.
type BasePriceTable interface {
	BasePrice(model, storage string, rank domain.Rank) (int, bool)
}

// DeductionRule is one row of a deduction table.
type DeductionRule struct {
	Model   string        `yaml:"model"   json:"model"`
	Storage string        `yaml:"storage" json:"storage"`
	Type    DeductionType `yaml:"type"    json:"type"`
	Amount  int           `yaml:"amount"  json:"amount"`
}

// BasePrice is one row of the base price table.
type BasePrice struct {
	Model   string      `yaml:"model"   json:"model"`
	Storage string      `yaml:"storage" json:"storage"`
	Rank    domain.Rank `yaml:"rank"    json:"rank"`
	Price   int         `yaml:"price"   json:"price"`
}

type ruleKey struct {
	model, storage string
	typ            DeductionType
}

type baseKey struct {
	model, storage string
	rank           domain.Rank
}

// RuleTable is an in-memory DeductionTable.
type RuleTable map[ruleKey]int

// Deduction implements DeductionTable.
func (t RuleTable) Deduction(model, storage string, typ DeductionType) (int, bool) {
	amount, ok := t[ruleKey{model, storage, typ}]
	return amount, ok
}

// EmptyTable has no rows; every lookup is a gap.
var EmptyTable DeductionTable = RuleTable{}

// Tables is an immutable snapshot of all pricing lookup data.
type Tables struct {
	base    map[baseKey]int
	buyback RuleTable
	resale  RuleTable
}

// NewTables validates and indexes the given rows.
func NewTables(base []BasePrice, buyback, resale []DeductionRule) (*Tables, error) {
	t := &Tables{
		base:    make(map[baseKey]int, len(base)),
		buyback: make(RuleTable, len(buyback)),
		resale:  make(RuleTable, len(resale)),
	}

	for _, b := range base {
		if !b.Rank.Valid() {
			return nil, fmt.Errorf("base price %s/%s: unknown rank %q", b.Model, b.Storage, b.Rank)
		}
		if b.Price < 0 {
			return nil, fmt.Errorf("base price %s/%s/%s: negative price", b.Model, b.Storage, b.Rank)
		}
		t.base[baseKey{b.Model, b.Storage, b.Rank}] = b.Price
	}

	if err := index(t.buyback, buyback, BuybackDeductionTypes); err != nil {
		return nil, fmt.Errorf("buyback deductions: %w", err)
	}
	if err := index(t.resale, resale, ResaleDeductionTypes); err != nil {
		return nil, fmt.Errorf("resale deductions: %w", err)
	}

	return t, nil
}

func index(dst RuleTable, rules []DeductionRule, allowed []DeductionType) error {
	for _, r := range rules {
		if !slices.Contains(allowed, r.Type) {
			return fmt.Errorf("%s/%s: unknown deduction type %q", r.Model, r.Storage, r.Type)
		}
		if r.Amount < 0 {
			return fmt.Errorf("%s/%s/%s: negative amount", r.Model, r.Storage, r.Type)
		}
		dst[ruleKey{r.Model, r.Storage, r.Type}] = r.Amount
	}
	return nil
}

// BasePrice implements BasePriceTable. A nil Tables has no rows.
func (t *Tables) BasePrice(model, storage string, rank domain.Rank) (int, bool) {
	if t == nil {
		return 0, false
	}
	p, ok := t.base[baseKey{model, storage, rank}]
	return p, ok
}

// Buyback returns the buyback deduction table.
func (t *Tables) Buyback() DeductionTable {
	if t == nil {
		return EmptyTable
	}
	return t.buyback
}

// Resale returns the resale deduction table.
func (t *Tables) Resale() DeductionTable {
	if t == nil {
		return EmptyTable
	}
	return t.resale
}

// TableSet is the raw row form of the pricing tables, as stored in a YAML
// file or imported into the database.
type TableSet struct {
	BasePrices        []BasePrice     `yaml:"base_prices"        json:"base_prices"`
	BuybackDeductions []DeductionRule `yaml:"buyback_deductions" json:"buyback_deductions"`
	ResaleDeductions  []DeductionRule `yaml:"resale_deductions"  json:"resale_deductions"`
}

// Build validates and indexes the rows.
func (s *TableSet) Build() (*Tables, error) {
	return NewTables(s.BasePrices, s.BuybackDeductions, s.ResaleDeductions)
}

// ParseTableSet decodes a YAML price table document.
func ParseTableSet(data []byte) (*TableSet, error) {
	var set TableSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parsing price tables YAML: %w", err)
	}
	return &set, nil
}

// ParseTables decodes and indexes a YAML price table document.
func ParseTables(data []byte) (*Tables, error) {
	set, err := ParseTableSet(data)
	if err != nil {
		return nil, err
	}
	return set.Build()
}

// LoadTableSet reads a YAML price table file.
func LoadTableSet(path string) (*TableSet, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path from trusted config
	if err != nil {
		return nil, fmt.Errorf("reading price tables: %w", err)
	}
	return ParseTableSet(data)
}

// LoadTablesFile reads and indexes a YAML price table file.
func LoadTablesFile(path string) (*Tables, error) {
	set, err := LoadTableSet(path)
	if err != nil {
		return nil, err
	}
	return set.Build()
}
