package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	apiclient "github.com/donaldgifford/mailin-buyback/internal/api/client"
	domain "github.com/donaldgifford/mailin-buyback/pkg/types"
)

const timeLayout = "2006-01-02 15:04"

// tabWriter wraps tabwriter with error tracking.
type tabWriter struct {
	*tabwriter.Writer
	err error
}

func newTabWriter(w io.Writer) *tabWriter {
	return &tabWriter{Writer: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
}

func (tw *tabWriter) writef(format string, args ...any) {
	if tw.err != nil {
		return
	}
	_, tw.err = fmt.Fprintf(tw.Writer, format, args...)
}

func (tw *tabWriter) finish() error {
	if tw.err != nil {
		return tw.err
	}
	return tw.Flush()
}

func printRequestTable(w io.Writer, page *apiclient.RequestPage) error {
	tw := newTabWriter(w)
	tw.writef("NUMBER\tID\tSTATUS\tCUSTOMER\tITEMS\tESTIMATE\tFINAL\tCREATED\n")
	for i := range page.Requests {
		r := &page.Requests[i]
		tw.writef("%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			r.RequestNumber,
			r.ID,
			r.Status,
			truncate(r.Customer.Name, 24),
			len(r.Items),
			yen(r.TotalEstimatedPrice),
			optionalYen(r.FinalPrice),
			r.CreatedAt.Local().Format(timeLayout),
		)
	}
	tw.writef("\nShowing %d of %d (offset %d)\n", len(page.Requests), page.Total, page.Offset)
	return tw.finish()
}

func printRequestDetail(w io.Writer, r *domain.MailBuybackRequest) error {
	tw := newTabWriter(w)
	tw.writef("ID:\t%s\n", r.ID)
	tw.writef("Number:\t%s\n", r.RequestNumber)
	tw.writef("Status:\t%s\n", r.Status)
	tw.writef("Customer:\t%s\n", r.Customer.Name)
	if r.Customer.Email != "" {
		tw.writef("Email:\t%s\n", r.Customer.Email)
	}
	if r.Customer.Phone != "" {
		tw.writef("Phone:\t%s\n", r.Customer.Phone)
	}
	tw.writef("Estimate:\t%s\n", yen(r.TotalEstimatedPrice))
	tw.writef("Final:\t%s\n", optionalYen(r.FinalPrice))
	if r.Bank != nil {
		tw.writef("Bank:\t%s %s (%s)\n", r.Bank.BankName, r.Bank.BranchName, r.Bank.AccountHolder)
	}
	tw.writef("Created:\t%s\n", r.CreatedAt.Local().Format(timeLayout))
	writeStamp(tw, "Kit sent", r.KitSentAt)
	writeStamp(tw, "Assessed", r.AssessedAt)
	writeStamp(tw, "Approved", r.ApprovedAt)
	writeStamp(tw, "Rejected", r.RejectedAt)
	writeStamp(tw, "Paid", r.PaidAt)
	writeStamp(tw, "Returned", r.ReturnedAt)

	tw.writef("\nITEM\tMODEL\tSTORAGE\tRANK\tBATTERY\tESTIMATE\n")
	for i := range r.Items {
		it := &r.Items[i]
		tw.writef("%s\t%s\t%s\t%s\t%s\t%s\n",
			it.ID, it.Model, it.Storage, it.Rank, battery(it.Condition), yen(it.EstimatedPrice))
	}

	if a := r.AssessmentDetails; a != nil && len(a.ItemChanges) > 0 {
		tw.writef("\nITEM\tFIELD\tBEFORE\tAFTER\n")
		for _, c := range a.ItemChanges {
			tw.writef("%s\t%s\t%s\t%s\n", c.ItemID, c.Field, display(c.Before), display(c.After))
		}
	}
	return tw.finish()
}

func writeStamp(tw *tabWriter, label string, t *time.Time) {
	if t != nil {
		tw.writef("%s:\t%s\n", label, t.Local().Format(timeLayout))
	}
}

func printPreview(w io.Writer, p *apiclient.Preview) error {
	tw := newTabWriter(w)
	tw.writef("ITEM\tBASE\tDEDUCTION\tPRICE\tGUARANTEE\n")
	for _, res := range p.Results {
		tw.writef("%s\t%s\t%s\t%s\t%v\n",
			res.ItemID, yen(res.BasePrice), yen(res.Deduction), yen(res.FinalPrice), res.GuaranteeApplied)
	}
	tw.writef("\nComputed price:\t%s\n", yen(p.ComputedPrice))
	return tw.finish()
}

func printCompletion(w io.Writer, c *apiclient.Completion) error {
	tw := newTabWriter(w)
	tw.writef("Request:\t%s (%s)\n", c.RequestNumber, c.RequestID)
	tw.writef("Customer:\t%s\n", c.CustomerID)
	tw.writef("Buyback:\t%s\n", c.BuybackID)
	tw.writef("Retired:\t%v\n", c.Retired)

	tw.writef("\nITEM\tINVENTORY\tMGMT NO\tCOST\n")
	for _, it := range c.Items {
		mgmt := "-"
		if it.ManagementNumber != nil {
			mgmt = *it.ManagementNumber
		}
		tw.writef("%s\t%s\t%s\t%s\n", it.ItemID, it.InventoryID, mgmt, yen(it.Cost))
	}
	for _, warn := range c.Warnings {
		tw.writef("\nWarning:\t%s\n", warn)
	}
	return tw.finish()
}

func printQuote(w io.Writer, q *apiclient.Quote) error {
	tw := newTabWriter(w)
	tw.writef("Base price:\t%s\n", yen(q.BasePrice))
	for _, l := range q.Lines {
		note := ""
		if l.Gap {
			note = " (no table entry)"
		}
		tw.writef("  %s:\t-%s%s\n", l.Type, yen(l.Amount), note)
	}
	tw.writef("Deduction:\t%s\n", yen(q.Deduction))
	tw.writef("Raw price:\t%s\n", yen(q.RawPrice))
	guarantee := ""
	if q.GuaranteeApplied {
		guarantee = " (guarantee)"
	}
	tw.writef("Final price:\t%s%s\n", yen(q.FinalPrice), guarantee)
	return tw.finish()
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

// yen formats an amount with thousands separators, e.g. ¥52,500.
func yen(amount int) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.Itoa(amount)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(d)
	}
	return sign + "¥" + b.String()
}

func optionalYen(amount *int) string {
	if amount == nil {
		return "-"
	}
	return yen(*amount)
}

func display(v domain.FieldValue) string {
	if v.Display != "" {
		return v.Display
	}
	return v.Value
}

func battery(c domain.Condition) string {
	if c.IsServiceState {
		return "service"
	}
	return strconv.Itoa(c.BatteryPercent) + "%"
}
