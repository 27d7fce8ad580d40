// Package domain defines the core business types for the mail-in buyback
// assessment service.
package domain

import (
	"fmt"
	"slices"
)

// NWStatus is the carrier network-restriction status of a device.
type NWStatus string

// Network status constants.
const (
	NWOK       NWStatus = "ok"
	NWTriangle NWStatus = "triangle"
	NWCross    NWStatus = "cross"
)

// Valid reports whether s is one of the known network statuses.
func (s NWStatus) Valid() bool {
	switch s {
	case NWOK, NWTriangle, NWCross:
		return true
	default:
		return false
	}
}

// Label returns the display mark used on assessment sheets.
func (s NWStatus) Label() string {
	switch s {
	case NWOK:
		return "○"
	case NWTriangle:
		return "△"
	case NWCross:
		return "×"
	default:
		return string(s)
	}
}

// CameraStain is the severity of stains or dust inside the camera lens.
type CameraStain string

// Camera stain constants.
const (
	StainNone  CameraStain = "none"
	StainMinor CameraStain = "minor"
	StainMajor CameraStain = "major"
)

// Valid reports whether s is one of the known stain severities.
func (s CameraStain) Valid() bool {
	switch s {
	case StainNone, StainMinor, StainMajor:
		return true
	default:
		return false
	}
}

// Label returns the display label.
func (s CameraStain) Label() string {
	switch s {
	case StainNone:
		return "なし"
	case StainMinor:
		return "小"
	case StainMajor:
		return "大"
	default:
		return string(s)
	}
}

// Rank is the cosmetic condition grade of a device.
type Rank string

// Rank constants, best first.
const (
	RankMint   Rank = "超美品"
	RankExcel  Rank = "美品"
	RankGood   Rank = "良品"
	RankFair   Rank = "並品"
	RankRepair Rank = "リペア品"
)

var rankOrder = []Rank{RankMint, RankExcel, RankGood, RankFair, RankRepair}

// Ranks returns all ranks ordered from best to worst.
func Ranks() []Rank {
	return slices.Clone(rankOrder)
}

// Valid reports whether r is a known rank.
func (r Rank) Valid() bool {
	return slices.Contains(rankOrder, r)
}

// Order returns the position of r from best (0) to worst, or -1 if unknown.
func (r Rank) Order() int {
	return slices.Index(rankOrder, r)
}

// BetterThan reports whether r is a strictly better grade than other.
func (r Rank) BetterThan(other Rank) bool {
	return r.Valid() && other.Valid() && r.Order() < other.Order()
}

// Condition describes the assessed physical and functional attributes of a
// device. BatteryPercent is ignored when IsServiceState is set; such devices
// always fall into the lowest battery bracket.
type Condition struct {
	BatteryPercent int         `json:"battery_percent"`
	IsServiceState bool        `json:"is_service_state"`
	NWStatus       NWStatus    `json:"nw_status"`
	CameraStain    CameraStain `json:"camera_stain"`
	CameraBroken   bool        `json:"camera_broken"`
	RepairHistory  bool        `json:"repair_history"`
}

// Validate checks the condition values against their closed sets.
func (c Condition) Validate() error {
	if !c.IsServiceState && (c.BatteryPercent < 1 || c.BatteryPercent > 100) {
		return &ValidationError{
			Field:  "battery_percent",
			Reason: fmt.Sprintf("must be between 1 and 100 (got %d)", c.BatteryPercent),
		}
	}
	if !c.NWStatus.Valid() {
		return &ValidationError{
			Field:  "nw_status",
			Reason: fmt.Sprintf("unknown network status %q", c.NWStatus),
		}
	}
	if !c.CameraStain.Valid() {
		return &ValidationError{
			Field:  "camera_stain",
			Reason: fmt.Sprintf("unknown camera stain %q", c.CameraStain),
		}
	}
	return nil
}

// ValidationError reports a malformed or missing input value. It is returned
// before any write takes place.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// BoolLabel returns the あり/なし label for a yes/no attribute.
func BoolLabel(b bool) string {
	if b {
		return "あり"
	}
	return "なし"
}
