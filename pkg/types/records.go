package domain

import "time"

// InventoryStatus is the sales status of an inventory record.
type InventoryStatus string

// Inventory status constants.
const (
	InventorySellable InventoryStatus = "sellable"
	InventorySold     InventoryStatus = "sold"
)

// PaymentBankTransfer is the payment method of every mail-in payout.
const PaymentBankTransfer = "bank_transfer"

// Customer is the durable customer record created on payout completion.
type Customer struct {
	ID string `json:"id" db:"id"`
	CustomerInfo
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Buyback is a purchase header. The condition fields are a denormalized copy
// of the first device for single-item reports.
type Buyback struct {
	ID               string    `json:"id"                     db:"id"`
	CustomerID       string    `json:"customer_id"            db:"customer_id"`
	RequestNumber    string    `json:"request_number"         db:"request_number"`
	TotalPrice       int       `json:"total_price"            db:"total_price"`
	PaymentMethod    string    `json:"payment_method"         db:"payment_method"`
	Model            string    `json:"model"                  db:"model"`
	Storage          string    `json:"storage"                db:"storage"`
	Rank             Rank      `json:"rank"                   db:"rank"`
	IMEI             string    `json:"imei,omitempty"         db:"imei"`
	Condition        Condition `json:"condition"              db:"condition"`
	InventoryID      *string   `json:"inventory_id,omitempty" db:"inventory_id"`
	AgreementDocPath string    `json:"agreement_doc_path"     db:"agreement_doc_path"`
	BoughtAt         time.Time `json:"bought_at"              db:"bought_at"`
}

// InventoryItem is a sellable device created from a completed buyback.
type InventoryItem struct {
	ID               string          `json:"id"                          db:"id"`
	Model            string          `json:"model"                       db:"model"`
	Storage          string          `json:"storage"                     db:"storage"`
	Color            string          `json:"color,omitempty"             db:"color"`
	Rank             Rank            `json:"rank"                        db:"rank"`
	IMEI             string          `json:"imei,omitempty"              db:"imei"`
	ManagementNumber *string         `json:"management_number,omitempty" db:"management_number"`
	Condition        Condition       `json:"condition"                   db:"condition"`
	Status           InventoryStatus `json:"status"                      db:"status"`
	Cost             int             `json:"cost"                        db:"cost"`
	BuybackID        string          `json:"buyback_id"                  db:"buyback_id"`
	CreatedAt        time.Time       `json:"created_at"                  db:"created_at"`
}

// BuybackItem links a purchase header to an inventory record. Sale price and
// profit are filled in later by the sales flow.
type BuybackItem struct {
	ID           string  `json:"id"            db:"id"`
	BuybackID    string  `json:"buyback_id"    db:"buyback_id"`
	InventoryID  string  `json:"inventory_id"  db:"inventory_id"`
	BuybackPrice int     `json:"buyback_price" db:"buyback_price"`
	SalePrice    int     `json:"sale_price"    db:"sale_price"`
	Profit       int     `json:"profit"        db:"profit"`
	MarginRate   float64 `json:"margin_rate"   db:"margin_rate"`
}

// ManagementNumberFromIMEI derives the shop management number from the last
// four characters of the device identifier. It returns nil when imei is empty.
func ManagementNumberFromIMEI(imei string) *string {
	if imei == "" {
		return nil
	}
	r := []rune(imei)
	if len(r) > 4 {
		r = r[len(r)-4:]
	}
	s := string(r)
	return &s
}
