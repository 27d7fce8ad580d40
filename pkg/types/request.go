package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle status of a mail-in buyback request.
type Status string

// Status constants. waiting_payment and return_requested are the canonical
// names for the stages also written as "approved" and "rejected".
const (
	StatusPending         Status = "pending"
	StatusKitSent         Status = "kit_sent"
	StatusAssessed        Status = "assessed"
	StatusWaitingPayment  Status = "waiting_payment"
	StatusReturnRequested Status = "return_requested"
	StatusPaid            Status = "paid"
	StatusReturned        Status = "returned"
)

// statusAliases maps legacy literals onto the canonical vocabulary.
var statusAliases = map[string]Status{
	"approved": StatusWaitingPayment,
	"rejected": StatusReturnRequested,
}

// ParseStatus converts a stored or user-supplied literal into a Status,
// folding the legacy aliases.
func ParseStatus(s string) (Status, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if alias, ok := statusAliases[s]; ok {
		return alias, nil
	}
	st := Status(s)
	switch st {
	case StatusPending, StatusKitSent, StatusAssessed, StatusWaitingPayment,
		StatusReturnRequested, StatusPaid, StatusReturned:
		return st, nil
	default:
		return "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", s)}
	}
}

// Terminal reports whether no further transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusPaid || s == StatusReturned
}

// Decision is the customer's response to a final assessment.
type Decision string

// Decision constants.
const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// CustomerInfo holds the contact, address, and identity fields captured at
// intake.
type CustomerInfo struct {
	Name           string `json:"name"`
	NameKana       string `json:"name_kana,omitempty"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	PostalCode     string `json:"postal_code"`
	Address        string `json:"address"`
	Birthday       string `json:"birthday,omitempty"`
	Occupation     string `json:"occupation,omitempty"`
	IDDocumentPath string `json:"id_document_path,omitempty"`
}

// BankInfo is the bank-transfer destination supplied on approval.
type BankInfo struct {
	BankName      string `json:"bank_name"`
	BranchName    string `json:"branch_name"`
	AccountType   string `json:"account_type"`
	AccountNumber string `json:"account_number"`
	AccountHolder string `json:"account_holder"`
}

// Validate requires every bank field to be present and non-blank.
func (b *BankInfo) Validate() error {
	if b == nil {
		return &ValidationError{Field: "bank_info", Reason: "bank transfer details are required"}
	}

	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"bank_name", b.BankName},
		{"branch_name", b.BranchName},
		{"account_type", b.AccountType},
		{"account_number", b.AccountNumber},
		{"account_holder", b.AccountHolder},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}

	if len(missing) > 0 {
		return &ValidationError{
			Field:  "bank_info",
			Reason: "missing " + strings.Join(missing, ", "),
		}
	}
	return nil
}

// RequestItem is one device in a request, carrying its preliminary condition
// and prices.
type RequestItem struct {
	ID             string    `json:"id"`
	Model          string    `json:"model"`
	Storage        string    `json:"storage"`
	Color          string    `json:"color,omitempty"`
	IMEI           string    `json:"imei,omitempty"`
	Rank           Rank      `json:"rank"`
	Condition      Condition `json:"condition"`
	BasePrice      int       `json:"base_price"`
	GuaranteePrice int       `json:"guarantee_price"`
	EstimatedPrice int       `json:"estimated_price"`
}

// Photo references an assessment photograph by its storage path.
type Photo struct {
	Path string `json:"path"`
	Note string `json:"note,omitempty"`
}

// PriceResult is the outcome of a price computation for one item.
type PriceResult struct {
	RawPrice         int  `json:"raw_price"`
	FinalPrice       int  `json:"final_price"`
	GuaranteeApplied bool `json:"guarantee_applied"`
	Deduction        int  `json:"deduction"`
	Recomputed       bool `json:"recomputed"`
}

// ItemPriceResult ties a PriceResult to the item and base price it was
// computed from.
type ItemPriceResult struct {
	ItemID    string `json:"item_id"`
	BasePrice int    `json:"base_price"`
	PriceResult
}

// AssessmentDetails is the audit trail written on final assessment.
type AssessmentDetails struct {
	ItemChanges []ItemChange      `json:"item_changes"`
	Photos      []Photo           `json:"photos"`
	Results     []ItemPriceResult `json:"results,omitempty"`
	// ComputedPrice is the total the engine derived; it differs from the
	// request's FinalPrice when staff overrode the price.
	ComputedPrice int `json:"computed_price"`
}

// RegisteredItem records the inventory rows written for one device during
// payout completion.
type RegisteredItem struct {
	ItemID        string `json:"item_id"`
	InventoryID   string `json:"inventory_id"`
	BuybackItemID string `json:"buyback_item_id,omitempty"`
}

// Registration tracks the records a payout completion has written for a
// request. A failed completion resumes from it instead of writing the
// customer and purchase again. Complete is set once every inventory and
// purchase line exists; from then on only the request delete remains.
type Registration struct {
	CustomerID string           `json:"customer_id,omitempty"`
	BuybackID  string           `json:"buyback_id,omitempty"`
	Items      []RegisteredItem `json:"items,omitempty"`
	Complete   bool             `json:"complete"`
}

// ItemFor returns the registered rows of one request item.
func (g *Registration) ItemFor(itemID string) (RegisteredItem, bool) {
	if g == nil {
		return RegisteredItem{}, false
	}
	for _, it := range g.Items {
		if it.ItemID == itemID {
			return it, true
		}
	}
	return RegisteredItem{}, false
}

// MailBuybackRequest is the aggregate root of a mail-in buyback submission.
type MailBuybackRequest struct {
	ID                  string             `json:"id"                           db:"id"`
	RequestNumber       string             `json:"request_number"               db:"request_number"`
	Customer            CustomerInfo       `json:"customer"                     db:"customer"`
	Items               []RequestItem      `json:"items"                        db:"items"`
	TotalEstimatedPrice int                `json:"total_estimated_price"        db:"total_estimated_price"`
	FinalPrice          *int               `json:"final_price,omitempty"        db:"final_price"`
	AssessmentDetails   *AssessmentDetails `json:"assessment_details,omitempty" db:"assessment_details"`
	Bank                *BankInfo          `json:"bank,omitempty"               db:"bank"`
	Status              Status             `json:"status"                       db:"status"`
	AgreementDocPath    string             `json:"agreement_doc_path,omitempty" db:"agreement_doc_path"`
	Registration        *Registration      `json:"registration,omitempty"       db:"registration"`

	// Stage timestamps
	CreatedAt  time.Time  `json:"created_at"            db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"            db:"updated_at"`
	KitSentAt  *time.Time `json:"kit_sent_at,omitempty" db:"kit_sent_at"`
	AssessedAt *time.Time `json:"assessed_at,omitempty" db:"assessed_at"`
	ApprovedAt *time.Time `json:"approved_at,omitempty" db:"approved_at"`
	RejectedAt *time.Time `json:"rejected_at,omitempty" db:"rejected_at"`
	PaidAt     *time.Time `json:"paid_at,omitempty"     db:"paid_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty" db:"returned_at"`
}

// Item returns the item with the given ID.
func (r *MailBuybackRequest) Item(id string) (*RequestItem, bool) {
	for i := range r.Items {
		if r.Items[i].ID == id {
			return &r.Items[i], true
		}
	}
	return nil, false
}

// ItemChangesFor returns the assessment rows recorded for one item.
func (r *MailBuybackRequest) ItemChangesFor(itemID string) []ItemChange {
	if r.AssessmentDetails == nil {
		return nil
	}
	var out []ItemChange
	for _, c := range r.AssessmentDetails.ItemChanges {
		if c.ItemID == itemID {
			out = append(out, c)
		}
	}
	return out
}
