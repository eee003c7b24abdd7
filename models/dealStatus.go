package models

import (
	"strings"
	"time"
)

// DealStatus is the lifecycle stage of a deal. The order of DealStatuses is
// the order deals move through.
type DealStatus string

const (
	DealStatusNewRequest      DealStatus = "new_request"
	DealStatusPendingApproval DealStatus = "pending_approval"
	DealStatusQuoted          DealStatus = "quoted"
	DealStatusUseConfirmed    DealStatus = "use_confirmed"
	DealStatusBeingDrafted    DealStatus = "being_drafted"
	DealStatusOutForSignature DealStatus = "out_for_signature"
	DealStatusPaymentReceived DealStatus = "payment_received"
	DealStatusCompleted       DealStatus = "completed"
)

type dealStage struct {
	status DealStatus
	label  string
	column string
	date   func(d *Deal) **MyDate
}

// dealStages maps every status to the date field stamped on entering it.
var dealStages = []dealStage{
	{DealStatusNewRequest, "New Request", "pitched_date", func(d *Deal) **MyDate { return &d.PitchedDate }},
	{DealStatusPendingApproval, "Pending Approval", "pending_approval_date", func(d *Deal) **MyDate { return &d.PendingApprovalDate }},
	{DealStatusQuoted, "Quoted", "quoted_date", func(d *Deal) **MyDate { return &d.QuotedDate }},
	{DealStatusUseConfirmed, "Use Confirmed", "use_confirmed_date", func(d *Deal) **MyDate { return &d.UseConfirmedDate }},
	{DealStatusBeingDrafted, "Being Drafted", "being_drafted_date", func(d *Deal) **MyDate { return &d.BeingDraftedDate }},
	{DealStatusOutForSignature, "Out for Signature", "out_for_signature_date", func(d *Deal) **MyDate { return &d.OutForSignatureDate }},
	{DealStatusPaymentReceived, "Payment Received", "payment_received_date", func(d *Deal) **MyDate { return &d.PaymentReceivedDate }},
	{DealStatusCompleted, "Completed", "completed_date", func(d *Deal) **MyDate { return &d.CompletedDate }},
}

// older forms used these values
var dealStatusAliases = map[string]DealStatus{
	"new":       DealStatusNewRequest,
	"pitched":   DealStatusNewRequest,
	"pending":   DealStatusPendingApproval,
	"confirmed": DealStatusUseConfirmed,
	"drafting":  DealStatusBeingDrafted,
	"paid":      DealStatusPaymentReceived,
}

// DealStatuses returns the canonical statuses in lifecycle order.
func DealStatuses() []DealStatus {
	out := make([]DealStatus, len(dealStages))
	for i, s := range dealStages {
		out[i] = s.status
	}
	return out
}

func findStage(status DealStatus) (dealStage, bool) {
	for _, s := range dealStages {
		if s.status == status {
			return s, true
		}
	}
	return dealStage{}, false
}

// ParseDealStatus accepts canonical values, their spaced labels
// ("Out for Signature") and the legacy aliases.
func ParseDealStatus(raw string) (DealStatus, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)
	if key == "" {
		return "", false
	}
	if _, ok := findStage(DealStatus(key)); ok {
		return DealStatus(key), true
	}
	if alias, ok := dealStatusAliases[key]; ok {
		return alias, true
	}
	return "", false
}

func (s DealStatus) Valid() bool {
	_, ok := findStage(s)
	return ok
}

func (s DealStatus) Label() string {
	if stage, ok := findStage(s); ok {
		return stage.label
	}
	return string(s)
}

// Index is the position in the lifecycle, -1 for unknown values.
func (s DealStatus) Index() int {
	for i, stage := range dealStages {
		if stage.status == s {
			return i
		}
	}
	return -1
}

// DateColumn is the deal column stamped for s.
func (s DealStatus) DateColumn() string {
	if stage, ok := findStage(s); ok {
		return stage.column
	}
	return ""
}

// StatusDate returns the lifecycle date recorded for status, if any.
func (d *Deal) StatusDate(status DealStatus) *MyDate {
	stage, ok := findStage(status)
	if !ok {
		return nil
	}
	return *stage.date(d)
}

// StampStatusDate sets the date field belonging to status to now's day when
// it is still empty. Unknown statuses and populated dates are left alone.
// Reports whether a date was written.
func StampStatusDate(d *Deal, status string, now time.Time) bool {
	parsed, ok := ParseDealStatus(status)
	if !ok {
		return false
	}
	stage, _ := findStage(parsed)
	field := stage.date(d)
	if *field != nil {
		return false
	}
	today := NewMyDate(now)
	*field = &today
	return true
}
