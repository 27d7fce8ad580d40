package handlers

import (
	"github.com/donaldgifford/mailin-buyback/internal/engine"
	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

// Request bodies mirror the domain types but mark optional fields so the
// generated schema does not require zero values to be sent.

// CustomerBody is the contact block submitted at intake.
type CustomerBody struct {
	Name           string `json:"name"                       doc:"Full name"`
	NameKana       string `json:"name_kana,omitempty"`
	Email          string `json:"email,omitempty"            doc:"Email; email or phone is required"`
	Phone          string `json:"phone,omitempty"            doc:"Phone; email or phone is required"`
	PostalCode     string `json:"postal_code,omitempty"`
	Address        string `json:"address,omitempty"`
	Birthday       string `json:"birthday,omitempty"         doc:"YYYY-MM-DD"`
	Occupation     string `json:"occupation,omitempty"`
	IDDocumentPath string `json:"id_document_path,omitempty" doc:"Storage path of the identity document scan"`
}

func (b *CustomerBody) toDomain() domain.CustomerInfo {
	return domain.CustomerInfo{
		Name:           b.Name,
		NameKana:       b.NameKana,
		Email:          b.Email,
		Phone:          b.Phone,
		PostalCode:     b.PostalCode,
		Address:        b.Address,
		Birthday:       b.Birthday,
		Occupation:     b.Occupation,
		IDDocumentPath: b.IDDocumentPath,
	}
}

// ConditionBody is a device condition as entered on the intake form.
type ConditionBody struct {
	BatteryPercent int    `json:"battery_percent,omitempty"  doc:"Maximum battery capacity, 1-100; ignored in service state" minimum:"0" maximum:"100"`
	IsServiceState bool   `json:"is_service_state,omitempty"`
	NWStatus       string `json:"nw_status"                  enum:"ok,triangle,cross"`
	CameraStain    string `json:"camera_stain"               enum:"none,minor,major"`
	CameraBroken   bool   `json:"camera_broken,omitempty"`
	RepairHistory  bool   `json:"repair_history,omitempty"`
}

func (b *ConditionBody) toDomain() domain.Condition {
	return domain.Condition{
		BatteryPercent: b.BatteryPercent,
		IsServiceState: b.IsServiceState,
		NWStatus:       domain.NWStatus(b.NWStatus),
		CameraStain:    domain.CameraStain(b.CameraStain),
		CameraBroken:   b.CameraBroken,
		RepairHistory:  b.RepairHistory,
	}
}

// ItemBody is one device submitted at intake.
type ItemBody struct {
	Model          string        `json:"model"                     doc:"Model name as listed in the price table"`
	Storage        string        `json:"storage"                   doc:"Storage capacity, e.g. 128GB"`
	Color          string        `json:"color,omitempty"`
	IMEI           string        `json:"imei,omitempty"`
	Rank           string        `json:"rank"                      doc:"Cosmetic grade" enum:"超美品,美品,良品,並品,リペア品"`
	Condition      ConditionBody `json:"condition"`
	GuaranteePrice int           `json:"guarantee_price,omitempty" doc:"Guaranteed minimum price in yen" minimum:"0"`
	BasePrice      *int          `json:"base_price,omitempty"      doc:"Overrides the price table lookup" minimum:"0"`
}

func (b *ItemBody) toNewItem() engine.NewItem {
	return engine.NewItem{
		Model:          b.Model,
		Storage:        b.Storage,
		Color:          b.Color,
		IMEI:           b.IMEI,
		Rank:           domain.Rank(b.Rank),
		Condition:      b.Condition.toDomain(),
		GuaranteePrice: b.GuaranteePrice,
		BasePrice:      b.BasePrice,
	}
}

// ItemEditBody sets one tracked field of one item to its assessed value.
type ItemEditBody struct {
	ItemID string `json:"item_id"`
	Field  string `json:"field" enum:"battery_percent,is_service_state,nw_status,camera_stain,camera_broken,repair_history,rank"`
	Value  string `json:"value" doc:"Canonical token, e.g. 75, true, triangle, 良品"`
}

func toChanges(edits []ItemEditBody) []domain.ItemChange {
	out := make([]domain.ItemChange, len(edits))
	for i, e := range edits {
		out[i] = domain.ItemChange{
			ItemID:     e.ItemID,
			Field:      domain.ChangeField(e.Field),
			After:      domain.FieldValue{Value: e.Value},
			HasChanged: true,
		}
	}
	return out
}

// PhotoBody references an uploaded assessment photo.
type PhotoBody struct {
	Path string `json:"path"`
	Note string `json:"note,omitempty"`
}

func toPhotos(in []PhotoBody) []domain.Photo {
	out := make([]domain.Photo, len(in))
	for i, p := range in {
		out[i] = domain.Photo{Path: p.Path, Note: p.Note}
	}
	return out
}
