package domain

// ChangeField names a tracked assessment attribute.
type ChangeField string

// Tracked fields. Every Condition field plus rank has exactly one row per item.
const (
	FieldBatteryPercent ChangeField = "battery_percent"
	FieldServiceState   ChangeField = "is_service_state"
	FieldNWStatus       ChangeField = "nw_status"
	FieldCameraStain    ChangeField = "camera_stain"
	FieldCameraBroken   ChangeField = "camera_broken"
	FieldRepairHistory  ChangeField = "repair_history"
	FieldRank           ChangeField = "rank"
)

// TrackedFields lists the fields in sheet order.
var TrackedFields = []ChangeField{
	FieldBatteryPercent,
	FieldServiceState,
	FieldNWStatus,
	FieldCameraStain,
	FieldCameraBroken,
	FieldRepairHistory,
	FieldRank,
}

// Label returns the sheet heading for f.
func (f ChangeField) Label() string {
	switch f {
	case FieldBatteryPercent:
		return "バッテリー最大容量"
	case FieldServiceState:
		return "バッテリーサービス状態"
	case FieldNWStatus:
		return "ネットワーク利用制限"
	case FieldCameraStain:
		return "カメラ染み"
	case FieldCameraBroken:
		return "カメラ故障"
	case FieldRepairHistory:
		return "修理歴"
	case FieldRank:
		return "ランク"
	default:
		return string(f)
	}
}

// FieldValue carries a canonical token together with its display label.
// Computation only ever reads Value.
type FieldValue struct {
	Value   string `json:"value"`
	Display string `json:"display"`
}

// ItemChange records one field's preliminary and final values for an item.
// Rows are seeded when assessment starts and are frozen once the request
// leaves the assessed status.
type ItemChange struct {
	ItemID     string      `json:"item_id"`
	Field      ChangeField `json:"field"`
	Label      string      `json:"label"`
	Before     FieldValue  `json:"before"`
	After      FieldValue  `json:"after"`
	HasChanged bool        `json:"has_changed"`
}
