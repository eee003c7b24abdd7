package models

import (
	"testing"
	"time"
)

func TestStampStatusDate_OnlyFillsEmptyDate(t *testing.T) {
	first := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)
	later := first.AddDate(0, 1, 0)
	deal := &Deal{}

	if !StampStatusDate(deal, "quoted", first) {
		t.Fatalf("expected quoted date to be stamped")
	}
	if deal.QuotedDate == nil || deal.QuotedDate.String() != "2026-03-02" {
		t.Fatalf("unexpected quoted date %v", deal.QuotedDate)
	}
	if StampStatusDate(deal, "quoted", later) {
		t.Fatalf("second stamp must not overwrite")
	}
	if deal.QuotedDate.String() != "2026-03-02" {
		t.Fatalf("quoted date changed to %s", deal.QuotedDate)
	}
}

func TestStampStatusDate_AcceptsLabelsAndAliases(t *testing.T) {
	now := time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC)
	deal := &Deal{}

	if !StampStatusDate(deal, "Out for Signature", now) || deal.OutForSignatureDate == nil {
		t.Fatalf("label should stamp outForSignatureDate")
	}
	if !StampStatusDate(deal, "paid", now) || deal.PaymentReceivedDate == nil {
		t.Fatalf("alias should stamp paymentReceivedDate")
	}
	if !StampStatusDate(deal, "new_request", now) || deal.PitchedDate == nil {
		t.Fatalf("new_request should stamp pitchedDate")
	}
}

func TestStampStatusDate_UnknownStatusIsNoop(t *testing.T) {
	deal := &Deal{}
	if StampStatusDate(deal, "archived", time.Now()) {
		t.Fatalf("unknown status must not stamp")
	}
	for _, status := range DealStatuses() {
		if deal.StatusDate(status) != nil {
			t.Fatalf("%s date set by unknown status", status)
		}
	}
}

func TestDealStatuses_LifecycleOrder(t *testing.T) {
	statuses := DealStatuses()
	if len(statuses) != 8 {
		t.Fatalf("expected 8 statuses, got %d", len(statuses))
	}
	if statuses[0] != DealStatusNewRequest || statuses[7] != DealStatusCompleted {
		t.Fatalf("unexpected order %v", statuses)
	}
	if DealStatusQuoted.Index() != 2 || DealStatus("nope").Index() != -1 {
		t.Fatalf("unexpected index values")
	}
	if DealStatusUseConfirmed.DateColumn() != "use_confirmed_date" {
		t.Fatalf("unexpected column %q", DealStatusUseConfirmed.DateColumn())
	}
}

func TestParseDealStatus(t *testing.T) {
	cases := map[string]DealStatus{
		"quoted":            DealStatusQuoted,
		" Pending Approval": DealStatusPendingApproval,
		"being-drafted":     DealStatusBeingDrafted,
		"confirmed":         DealStatusUseConfirmed,
		"PITCHED":           DealStatusNewRequest,
	}
	for in, expected := range cases {
		got, ok := ParseDealStatus(in)
		if !ok || got != expected {
			t.Fatalf("ParseDealStatus(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseDealStatus(""); ok {
		t.Fatalf("empty status must not parse")
	}
}
