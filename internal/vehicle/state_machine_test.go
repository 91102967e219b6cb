package vehicle

import (
	"errors"
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	if !CanTransition(StatusAvailable, StatusDraft) {
		t.Fatalf("expected available -> draft allowed")
	}
	if !CanTransition(StatusDraft, StatusSold) {
		t.Fatalf("expected draft -> sold allowed")
	}
	if !CanTransition(StatusDraft, StatusAvailable) {
		t.Fatalf("expected draft -> available allowed")
	}
	if CanTransition(StatusAvailable, StatusSold) {
		t.Fatalf("expected available -> sold not allowed")
	}
	if CanTransition(StatusSold, StatusDraft) {
		t.Fatalf("expected sold -> draft not allowed")
	}
	if CanTransition(StatusSold, StatusAvailable) {
		t.Fatalf("expected sold -> available not allowed")
	}
	if CanTransition(StatusDraft, StatusDraft) {
		t.Fatalf("expected draft -> draft not allowed")
	}
}

func TestSaleState(t *testing.T) {
	if got := SaleState(nil); got != StatusAvailable {
		t.Fatalf("expected available for nil record, got %s", got)
	}
	if got := SaleState(&SaleRecord{Status: StatusDraft}); got != StatusDraft {
		t.Fatalf("expected draft, got %s", got)
	}
}

func TestApplyConfirm(t *testing.T) {
	now := time.Now()

	if err := ApplyConfirm(nil, 100, now); !errors.Is(err, ErrSaleNotInitialized) {
		t.Fatalf("expected ErrSaleNotInitialized for nil record, got %v", err)
	}

	rec := &SaleRecord{Status: StatusDraft, SoldPrice: 90}
	if err := ApplyConfirm(rec, 100, now); err != nil {
		t.Fatalf("ApplyConfirm: %v", err)
	}
	if rec.Status != StatusSold {
		t.Fatalf("expected status sold, got %s", rec.Status)
	}
	if rec.SoldPrice != 100 {
		t.Fatalf("expected sold price refreshed to 100, got %v", rec.SoldPrice)
	}
	if rec.SoldDate == nil || !rec.SoldDate.Equal(now) {
		t.Fatalf("expected sold date %v, got %v", now, rec.SoldDate)
	}

	// 已成交的记录不允许再次确认
	if err := ApplyConfirm(rec, 120, now); !errors.Is(err, ErrAlreadySold) {
		t.Fatalf("expected ErrAlreadySold on repeated confirm, got %v", err)
	}
}

func TestApplyRevert(t *testing.T) {
	if err := ApplyRevert(nil); !errors.Is(err, ErrSaleNotInitialized) {
		t.Fatalf("expected ErrSaleNotInitialized for nil record, got %v", err)
	}
	if err := ApplyRevert(&SaleRecord{Status: StatusDraft}); err != nil {
		t.Fatalf("ApplyRevert draft: %v", err)
	}
	if err := ApplyRevert(&SaleRecord{Status: StatusSold}); !errors.Is(err, ErrAlreadySold) {
		t.Fatalf("expected ErrAlreadySold for completed sale, got %v", err)
	}
}
