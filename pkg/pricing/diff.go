package pricing

import (
	"fmt"
	"strconv"

	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

// NewFieldValue parses a canonical token for field and attaches its display
// label. Malformed tokens return a *domain.ValidationError.
func NewFieldValue(field domain.ChangeField, token string) (domain.FieldValue, error) {
	invalid := func(reason string) error {
		return &domain.ValidationError{Field: string(field), Reason: reason}
	}

	switch field {
	case domain.FieldBatteryPercent:
		n, err := strconv.Atoi(token)
		if err != nil || n < 1 || n > 100 {
			return domain.FieldValue{}, invalid(fmt.Sprintf("battery must be 1-100 (got %q)", token))
		}
		return domain.FieldValue{Value: token, Display: token + "%"}, nil

	case domain.FieldServiceState, domain.FieldCameraBroken, domain.FieldRepairHistory:
		b, err := strconv.ParseBool(token)
		if err != nil {
			return domain.FieldValue{}, invalid(fmt.Sprintf("expected true or false (got %q)", token))
		}
		return domain.FieldValue{Value: strconv.FormatBool(b), Display: domain.BoolLabel(b)}, nil

	case domain.FieldNWStatus:
		s := domain.NWStatus(token)
		if !s.Valid() {
			return domain.FieldValue{}, invalid(fmt.Sprintf("unknown network status %q", token))
		}
		return domain.FieldValue{Value: token, Display: s.Label()}, nil

	case domain.FieldCameraStain:
		s := domain.CameraStain(token)
		if !s.Valid() {
			return domain.FieldValue{}, invalid(fmt.Sprintf("unknown camera stain %q", token))
		}
		return domain.FieldValue{Value: token, Display: s.Label()}, nil

	case domain.FieldRank:
		r := domain.Rank(token)
		if !r.Valid() {
			return domain.FieldValue{}, invalid(fmt.Sprintf("unknown rank %q", token))
		}
		return domain.FieldValue{Value: token, Display: token}, nil

	default:
		return domain.FieldValue{}, invalid("untracked field")
	}
}

// currentValue renders an item's preliminary value for field.
func currentValue(field domain.ChangeField, item *domain.RequestItem) domain.FieldValue {
	c := item.Condition
	var token string
	switch field {
	case domain.FieldBatteryPercent:
		token = strconv.Itoa(c.BatteryPercent)
	case domain.FieldServiceState:
		token = strconv.FormatBool(c.IsServiceState)
	case domain.FieldNWStatus:
		token = string(c.NWStatus)
	case domain.FieldCameraStain:
		token = string(c.CameraStain)
	case domain.FieldCameraBroken:
		token = strconv.FormatBool(c.CameraBroken)
	case domain.FieldRepairHistory:
		token = strconv.FormatBool(c.RepairHistory)
	case domain.FieldRank:
		token = string(item.Rank)
	}

	v, err := NewFieldValue(field, token)
	if err != nil {
		// Service-state devices may carry a zero battery reading.
		return domain.FieldValue{Value: token, Display: token}
	}
	return v
}

// SeedChanges builds one unchanged row per tracked field from the item's
// preliminary values.
func SeedChanges(item *domain.RequestItem) []domain.ItemChange {
	changes := make([]domain.ItemChange, 0, len(domain.TrackedFields))
	for _, f := range domain.TrackedFields {
		v := currentValue(f, item)
		changes = append(changes, domain.ItemChange{
			ItemID: item.ID,
			Field:  f,
			Label:  f.Label(),
			Before: v,
			After:  v,
		})
	}
	return changes
}

// SetAfter records a staff edit. HasChanged follows whether the new value
// differs from the preliminary one.
func SetAfter(change *domain.ItemChange, token string) error {
	v, err := NewFieldValue(change.Field, token)
	if err != nil {
		return err
	}
	change.After = v
	change.HasChanged = v.Value != change.Before.Value
	return nil
}

// HasChanges reports whether any row is marked changed.
func HasChanges(changes []domain.ItemChange) bool {
	for _, c := range changes {
		if c.HasChanged {
			return true
		}
	}
	return false
}

// effectiveToken picks After for changed rows and Before otherwise.
func effectiveToken(c domain.ItemChange) string {
	if c.HasChanged {
		return c.After.Value
	}
	return c.Before.Value
}

// EffectiveCondition overlays the rows onto fallback. Fields with no row keep
// their fallback value.
func EffectiveCondition(changes []domain.ItemChange, fallback domain.Condition) (domain.Condition, error) {
	c := fallback
	for _, ch := range changes {
		if ch.Field == domain.FieldRank {
			continue
		}

		token := effectiveToken(ch)
		if _, err := NewFieldValue(ch.Field, token); err != nil {
			if ch.Field == domain.FieldBatteryPercent && !ch.HasChanged {
				continue
			}
			return domain.Condition{}, err
		}

		switch ch.Field {
		case domain.FieldBatteryPercent:
			c.BatteryPercent, _ = strconv.Atoi(token)
		case domain.FieldServiceState:
			c.IsServiceState, _ = strconv.ParseBool(token)
		case domain.FieldNWStatus:
			c.NWStatus = domain.NWStatus(token)
		case domain.FieldCameraStain:
			c.CameraStain = domain.CameraStain(token)
		case domain.FieldCameraBroken:
			c.CameraBroken, _ = strconv.ParseBool(token)
		case domain.FieldRepairHistory:
			c.RepairHistory, _ = strconv.ParseBool(token)
		default:
			return domain.Condition{}, &domain.ValidationError{
				Field:  string(ch.Field),
				Reason: "untracked field",
			}
		}
	}
	return c, nil
}

// EffectiveRank returns the rank row's effective value, or fallback when
// there is no rank row.
func EffectiveRank(changes []domain.ItemChange, fallback domain.Rank) (domain.Rank, error) {
	for _, ch := range changes {
		if ch.Field != domain.FieldRank {
			continue
		}
		token := effectiveToken(ch)
		if _, err := NewFieldValue(ch.Field, token); err != nil {
			return "", err
		}
		return domain.Rank(token), nil
	}
	return fallback, nil
}

// Recomputation is the price Recompute derived, with the deduction lines it
// evaluated. Lines is nil when the preliminary estimate was kept.
type Recomputation struct {
	domain.PriceResult
	Lines []Line
}

// Recompute derives an item's final-assessment price. When no row changed it
// returns the preliminary estimate untouched, so the customer-visible quote
// never drifts because of rounding or table edits. Otherwise the effective
// condition is evaluated against table and reconciled with the guarantee.
func Recompute(
	changes []domain.ItemChange,
	basePrice, guaranteePrice, preliminaryEstimate int,
	table DeductionTable,
	model, storage string,
	fallback domain.Condition,
) (Recomputation, error) {
	if !HasChanges(changes) {
		return Recomputation{PriceResult: domain.PriceResult{
			RawPrice:   preliminaryEstimate,
			FinalPrice: preliminaryEstimate,
		}}, nil
	}

	cond, err := EffectiveCondition(changes, fallback)
	if err != nil {
		return Recomputation{}, err
	}
	if err := cond.Validate(); err != nil {
		return Recomputation{}, err
	}

	return Recomputation{
		PriceResult: BuybackPrice(cond, basePrice, guaranteePrice, table, model, storage),
		Lines:       Breakdown(cond, table, model, storage),
	}, nil
}
