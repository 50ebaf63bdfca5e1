package models

import "testing"

func TestStatusPrecedenceOrdering(t *testing.T) {
	ordered := []Status{
		StatusSubmitted, StatusAccepted, StatusInProduction, StatusSuspended,
		StatusCancelled, StatusCompleted, StatusFailed, StatusTerminated,
		StatusDownloaded,
	}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1].Precedence() >= ordered[i].Precedence() {
			t.Errorf("expected %s to precede %s", ordered[i-1], ordered[i])
		}
	}
}

func TestStatusUnknownPrecedesSubmitted(t *testing.T) {
	if Status("Bogus").Precedence() >= StatusSubmitted.Precedence() {
		t.Error("unknown status should sort before Submitted")
	}
	if Status("Bogus").Valid() {
		t.Error("unknown status should not be valid")
	}
}

func TestStatusIsTerminal(t *testing.T) {
	terminal := []Status{StatusCancelled, StatusCompleted, StatusFailed, StatusTerminated, StatusDownloaded}
	for _, s := range terminal {
		if !s.IsTerminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	for _, s := range []Status{StatusSubmitted, StatusAccepted, StatusInProduction, StatusSuspended} {
		if s.IsTerminal() {
			t.Errorf("expected %s to not be terminal", s)
		}
	}
}

func TestBatchStatusIsMinimumOfItems(t *testing.T) {
	batch := Batch{Items: []OrderItem{
		{Status: StatusCompleted},
		{Status: StatusInProduction},
		{Status: StatusFailed},
	}}
	if got := batch.Status(); got != StatusInProduction {
		t.Errorf("expected InProduction, got %s", got)
	}

	batch.Items[1].Status = StatusCompleted
	if got := batch.Status(); got != StatusCompleted {
		t.Errorf("expected Completed, got %s", got)
	}
}

func TestBatchStatusEmpty(t *testing.T) {
	var batch Batch
	if got := batch.Status(); got != StatusSubmitted {
		t.Errorf("expected Submitted for empty batch, got %s", got)
	}
}

func TestValidPackaging(t *testing.T) {
	if !ValidPackaging("zip") {
		t.Error("zip should be accepted")
	}
	if ValidPackaging("bzip2") {
		t.Error("bzip2 is no longer accepted")
	}
}

func TestHasOnlineDataAccess(t *testing.T) {
	item := OrderItem{DeliveryOptions: []SelectedDeliveryOption{
		{Kind: DeliveryKindMediaDelivery, PackageMedium: ToNullString("DVD")},
	}}
	if item.HasOnlineDataAccess() {
		t.Error("media delivery only, expected false")
	}
	item.DeliveryOptions = append(item.DeliveryOptions, SelectedDeliveryOption{
		Kind: DeliveryKindOnlineDataAccess, Protocol: ToNullString("http"),
	})
	if !item.HasOnlineDataAccess() {
		t.Error("expected true after adding online data access")
	}
}
