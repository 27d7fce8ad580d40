package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

const (
	defaultLimit = 50
	maxLimit     = 500

	orderByCreated = "created_at"
	orderByUpdated = "updated_at"
)

// validOrderBy maps allowed OrderBy values to their SQL column expressions.
var validOrderBy = map[string]string{
	orderByCreated: "created_at DESC",
	orderByUpdated: "updated_at DESC",
}

const defaultOrderBy = "created_at DESC"

const countRequestsSelect = "SELECT COUNT(*) FROM mail_buyback_requests"

// RequestQuery defines optional filters for request listings.
type RequestQuery struct {
	Statuses      []domain.Status
	RequestNumber *string
	Limit         int // default 50
	Offset        int
	OrderBy       string // "created_at", "updated_at"
}

// ToSQL builds the data and count statements for a request listing and the
// positional parameters they share.
func (q *RequestQuery) ToSQL() (dataSQL, countSQL string, args []any) {
	var conditions []string
	paramIdx := 1

	if len(q.Statuses) > 0 {
		placeholders := make([]string, len(q.Statuses))
		for i, s := range q.Statuses {
			placeholders[i] = fmt.Sprintf("$%d", paramIdx)
			args = append(args, string(s))
			paramIdx++
		}
		conditions = append(conditions, fmt.Sprintf(
			"status IN (%s)", strings.Join(placeholders, ", "),
		))
	}

	if q.RequestNumber != nil {
		conditions = append(conditions, fmt.Sprintf("request_number = $%d", paramIdx))
		args = append(args, *q.RequestNumber)
	}

	var whereClause string
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	orderClause := defaultOrderBy
	if col, ok := validOrderBy[q.OrderBy]; ok {
		orderClause = col
	}

	dataSQL = fmt.Sprintf(
		"%s%s ORDER BY %s LIMIT %d OFFSET %d",
		baseRequestsSelect, whereClause, orderClause, q.limit(), max(q.Offset, 0),
	)
	countSQL = countRequestsSelect + whereClause

	return dataSQL, countSQL, args
}

func (q *RequestQuery) limit() int {
	switch {
	case q.Limit <= 0:
		return defaultLimit
	case q.Limit > maxLimit:
		return maxLimit
	default:
		return q.Limit
	}
}

// RequestPatch lists the columns a transition writes. Nil fields are left
// untouched.
type RequestPatch struct {
	Status            *domain.Status
	FinalPrice        *int
	AssessmentDetails *domain.AssessmentDetails
	Bank              *domain.BankInfo
	Registration      *domain.Registration

	KitSentAt  *time.Time
	AssessedAt *time.Time
	ApprovedAt *time.Time
	RejectedAt *time.Time
	PaidAt     *time.Time
	ReturnedAt *time.Time
}

// Apply writes the patch onto r.
func (p *RequestPatch) Apply(r *domain.MailBuybackRequest) {
	if p.Status != nil {
		r.Status = *p.Status
	}
	if p.FinalPrice != nil {
		v := *p.FinalPrice
		r.FinalPrice = &v
	}
	if p.AssessmentDetails != nil {
		r.AssessmentDetails = p.AssessmentDetails
	}
	if p.Bank != nil {
		r.Bank = p.Bank
	}
	if p.Registration != nil {
		reg := *p.Registration
		reg.Items = slices.Clone(p.Registration.Items)
		r.Registration = &reg
	}
	for _, ts := range []struct {
		src *time.Time
		dst **time.Time
	}{
		{p.KitSentAt, &r.KitSentAt},
		{p.AssessedAt, &r.AssessedAt},
		{p.ApprovedAt, &r.ApprovedAt},
		{p.RejectedAt, &r.RejectedAt},
		{p.PaidAt, &r.PaidAt},
		{p.ReturnedAt, &r.ReturnedAt},
	} {
		if ts.src != nil {
			v := *ts.src
			*ts.dst = &v
		}
	}
}

var errEmptyPatch = errors.New("empty patch")

func (p *RequestPatch) empty() bool {
	return p == nil || *p == RequestPatch{}
}

// ToSQL builds a guarded UPDATE that only matches when the row is still in
// the expected status.
func (p *RequestPatch) ToSQL(id string, expected domain.Status) (string, []any, error) {
	if p.empty() {
		return "", nil, errEmptyPatch
	}

	var sets []string
	var args []any

	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if p.Status != nil {
		add("status", string(*p.Status))
	}
	if p.FinalPrice != nil {
		add("final_price", *p.FinalPrice)
	}
	if p.AssessmentDetails != nil {
		data, err := json.Marshal(p.AssessmentDetails)
		if err != nil {
			return "", nil, fmt.Errorf("marshaling assessment details: %w", err)
		}
		add("assessment_details", data)
	}
	if p.Bank != nil {
		data, err := json.Marshal(p.Bank)
		if err != nil {
			return "", nil, fmt.Errorf("marshaling bank info: %w", err)
		}
		add("bank", data)
	}
	if p.Registration != nil {
		data, err := json.Marshal(p.Registration)
		if err != nil {
			return "", nil, fmt.Errorf("marshaling registration: %w", err)
		}
		add("registration", data)
	}
	for _, ts := range []struct {
		col string
		v   *time.Time
	}{
		{"kit_sent_at", p.KitSentAt},
		{"assessed_at", p.AssessedAt},
		{"approved_at", p.ApprovedAt},
		{"rejected_at", p.RejectedAt},
		{"paid_at", p.PaidAt},
		{"returned_at", p.ReturnedAt},
	} {
		if ts.v != nil {
			add(ts.col, *ts.v)
		}
	}

	sets = append(sets, "updated_at = now()")
	args = append(args, id, string(expected))

	query := fmt.Sprintf(
		"UPDATE mail_buyback_requests SET %s WHERE id = $%d AND status = $%d",
		strings.Join(sets, ", "), len(args)-1, len(args),
	)
	return query, args, nil
}
