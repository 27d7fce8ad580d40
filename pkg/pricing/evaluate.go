package pricing

import (
	"math"

	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

// Battery bracket bounds, inclusive.
const (
	batteryTopMin = 90
	batteryMidMin = 80
)

// Line is a single resolved deduction.
type Line struct {
	Type   DeductionType `json:"type"`
	Amount int           `json:"amount"`
	// Gap is set when the table had no row and the amount defaulted to zero.
	Gap bool `json:"gap,omitempty"`
}

// batteryType maps a condition onto its battery bracket. Service state is
// always the lowest bracket.
func batteryType(c domain.Condition) DeductionType {
	switch {
	case c.IsServiceState:
		return DeductBattery79
	case c.BatteryPercent >= batteryTopMin:
		return DeductBattery90
	case c.BatteryPercent >= batteryMidMin:
		return DeductBattery80to89
	default:
		return DeductBattery79
	}
}

func nwType(s domain.NWStatus) (DeductionType, bool) {
	switch s {
	case domain.NWOK:
		return DeductNWOK, true
	case domain.NWTriangle:
		return DeductNWChecking, true
	case domain.NWCross:
		return DeductNWNG, true
	default:
		return "", false
	}
}

func stainType(s domain.CameraStain) (DeductionType, bool) {
	switch s {
	case domain.StainMinor:
		return DeductCameraStain, true
	case domain.StainMajor:
		return DeductCameraStainMajor, true
	default:
		return "", false
	}
}

// buybackTypes resolves every deduction type a condition incurs.
func buybackTypes(c domain.Condition) []DeductionType {
	types := []DeductionType{batteryType(c)}
	if t, ok := nwType(c.NWStatus); ok {
		types = append(types, t)
	}
	if t, ok := stainType(c.CameraStain); ok {
		types = append(types, t)
	}
	if c.CameraBroken {
		types = append(types, DeductCameraBroken)
	}
	if c.RepairHistory {
		types = append(types, DeductRepairHistory)
	}
	return types
}

// Breakdown returns the buyback deduction lines for a condition.
func Breakdown(c domain.Condition, table DeductionTable, model, storage string) []Line {
	if table == nil {
		table = EmptyTable
	}
	types := buybackTypes(c)
	lines := make([]Line, 0, len(types))
	for _, t := range types {
		amount, ok := table.Deduction(model, storage, t)
		lines = append(lines, Line{Type: t, Amount: amount, Gap: !ok})
	}
	return lines
}

// Evaluate returns the total buyback deduction for a condition. Missing table
// rows count as zero, so the result is defined for every condition.
func Evaluate(c domain.Condition, table DeductionTable, model, storage string) int {
	total := 0
	for _, l := range Breakdown(c, table, model, storage) {
		total += l.Amount
	}
	return total
}

// BuybackPrice prices a device for buyback: base price less deductions,
// floored at zero, then reconciled against the guarantee.
func BuybackPrice(
	c domain.Condition,
	basePrice, guaranteePrice int,
	table DeductionTable,
	model, storage string,
) domain.PriceResult {
	deduction := Evaluate(c, table, model, storage)
	raw := max(basePrice-deduction, 0)
	r := Reconcile(raw, guaranteePrice)
	return domain.PriceResult{
		RawPrice:         raw,
		FinalPrice:       r.FinalPrice,
		GuaranteeApplied: r.GuaranteeApplied,
		Deduction:        deduction,
		Recomputed:       true,
	}
}

// ResaleRule configures the percentage battery penalty of the resale mode.
type ResaleRule struct {
	// BatteryThreshold is the battery percentage below which the penalty applies.
	BatteryThreshold int
	// BatteryRate is the fraction of the base price deducted.
	BatteryRate float64
}

// DefaultResaleRule returns the shop's standing resale battery rule.
func DefaultResaleRule() ResaleRule {
	return ResaleRule{BatteryThreshold: 80, BatteryRate: 0.10}
}

// ResaleBreakdown returns the resale deduction lines for a condition.
func ResaleBreakdown(
	c domain.Condition,
	basePrice int,
	table DeductionTable,
	model, storage string,
	rule ResaleRule,
) []Line {
	if table == nil {
		table = EmptyTable
	}

	var lines []Line
	if c.IsServiceState || c.BatteryPercent < rule.BatteryThreshold {
		lines = append(lines, Line{
			Type:   ResaleBatteryRate,
			Amount: int(math.Round(float64(basePrice) * rule.BatteryRate)),
		})
	}

	var types []DeductionType
	switch c.CameraStain {
	case domain.StainMinor:
		types = append(types, ResaleCameraStainMinor)
	case domain.StainMajor:
		types = append(types, ResaleCameraStainMajor)
	}
	switch c.NWStatus {
	case domain.NWTriangle:
		types = append(types, ResaleNWTriangle)
	case domain.NWCross:
		types = append(types, ResaleNWCross)
	}

	for _, t := range types {
		amount, ok := table.Deduction(model, storage, t)
		lines = append(lines, Line{Type: t, Amount: amount, Gap: !ok})
	}
	return lines
}

// EvaluateResale returns the total resale deduction. It never consults a
// guarantee price.
func EvaluateResale(
	c domain.Condition,
	basePrice int,
	table DeductionTable,
	model, storage string,
	rule ResaleRule,
) int {
	total := 0
	for _, l := range ResaleBreakdown(c, basePrice, table, model, storage, rule) {
		total += l.Amount
	}
	return total
}

// ResalePrice returns the adjusted sale price, floored at zero.
func ResalePrice(
	c domain.Condition,
	basePrice int,
	table DeductionTable,
	model, storage string,
	rule ResaleRule,
) int {
	return max(basePrice-EvaluateResale(c, basePrice, table, model, storage, rule), 0)
}
