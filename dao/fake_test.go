package dao

import (
	"testing"
	"time"

	"github.com/earthsight/oseo-server/metadata/models"
)

func submittedOrder(t *testing.T, fake *FakeDAO, status models.Status, items int) models.Order {
	t.Helper()
	user, err := fake.CreateUser(models.OseoUser{Username: "tester"})
	if err != nil {
		t.Fatal(err)
	}
	order := models.Order{
		OrderType: models.OrderTypeProduct,
		UserID:    user.ID,
		Status:    status,
	}
	for i := 0; i < items; i++ {
		order.Items = append(order.Items, models.OrderItem{
			ItemID:       "item-" + string(rune('a'+i)),
			Identifier:   models.ToNullString("product"),
			CollectionID: models.ToNullString("dummy_collection_id"),
		})
	}
	created, err := fake.CreateOrder(&order)
	if err != nil {
		t.Fatal(err)
	}
	return created
}

func TestFakeCreateOrderEnqueuesAcceptedBatches(t *testing.T) {
	fake := NewFakeDAO()
	order := submittedOrder(t, fake, models.StatusAccepted, 2)
	if len(order.Batches) != 1 {
		t.Fatalf("expected one batch, got %d", len(order.Batches))
	}
	if fake.QueueLength() != 1 {
		t.Errorf("expected one queued batch, got %d", fake.QueueLength())
	}
	batch, err := fake.DequeueBatch(time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if batch == nil || len(batch.Items) != 2 {
		t.Fatalf("expected a batch with two items, got %+v", batch)
	}
}

func TestFakeAcceptedOrderItemsStartAccepted(t *testing.T) {
	fake := NewFakeDAO()
	order := submittedOrder(t, fake, models.StatusAccepted, 2)
	for _, item := range order.Items {
		if item.Status != models.StatusAccepted {
			t.Fatalf("item %s created at %s, want Accepted", item.ItemID, item.Status)
		}
	}

	// picking up the first item must not drag the order back below Accepted
	if err := fake.UpdateOrderItemStatus(order.Items[0].ID, models.StatusInProduction, models.NullString{}); err != nil {
		t.Fatal(err)
	}
	got, _ := fake.GetOrder(order.ID)
	if got.Status != models.StatusAccepted {
		t.Errorf("order status = %s after first item pick-up, want Accepted", got.Status)
	}
	if _, err := fake.ApproveOrder(order.ID); err != ErrNotApprovable {
		t.Errorf("expected ErrNotApprovable for an already accepted order, got %v", err)
	}
}

func TestFakeSubmittedOrderWaitsForApproval(t *testing.T) {
	fake := NewFakeDAO()
	order := submittedOrder(t, fake, models.StatusSubmitted, 1)
	if fake.QueueLength() != 0 {
		t.Fatal("submitted order must not be queued before approval")
	}
	approved, err := fake.ApproveOrder(order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if approved.Status != models.StatusAccepted || !approved.Approved {
		t.Errorf("unexpected state after approval: %s approved=%v", approved.Status, approved.Approved)
	}
	if fake.QueueLength() != 1 {
		t.Error("expected the batch to be queued after approval")
	}
	if _, err := fake.ApproveOrder(order.ID); err != ErrNotApprovable {
		t.Errorf("expected ErrNotApprovable on second approval, got %v", err)
	}
}

func TestFakeItemStatusDerivesOrderStatus(t *testing.T) {
	fake := NewFakeDAO()
	order := submittedOrder(t, fake, models.StatusAccepted, 2)

	if err := fake.UpdateOrderItemStatus(order.Items[0].ID, models.StatusCompleted, models.NullString{}); err != nil {
		t.Fatal(err)
	}
	got, _ := fake.GetOrder(order.ID)
	if got.Status != models.StatusAccepted {
		t.Errorf("order must stay at the minimum of its items, got %s", got.Status)
	}

	if err := fake.UpdateOrderItemStatus(order.Items[1].ID, models.StatusCompleted, models.NullString{}); err != nil {
		t.Fatal(err)
	}
	got, _ = fake.GetOrder(order.ID)
	if got.Status != models.StatusCompleted {
		t.Errorf("expected Completed once all items completed, got %s", got.Status)
	}
	if !got.CompletedOn.Valid {
		t.Error("expected completed_on to be set")
	}

	// terminal items do not regress
	if err := fake.UpdateOrderItemStatus(order.Items[0].ID, models.StatusInProduction, models.NullString{}); err != nil {
		t.Fatal(err)
	}
	got, _ = fake.GetOrder(order.ID)
	if got.Items[0].Status != models.StatusCompleted {
		t.Errorf("terminal item must not change, got %s", got.Items[0].Status)
	}
}

func TestFakeCancelBeforeProduction(t *testing.T) {
	fake := NewFakeDAO()
	order := submittedOrder(t, fake, models.StatusAccepted, 1)

	cancelled, err := fake.CancelOrder(order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if cancelled.Status != models.StatusCancelled {
		t.Errorf("expected immediate cancel, got %s", cancelled.Status)
	}
	if fake.QueueLength() != 0 {
		t.Error("expected queued batch to be removed on cancel")
	}

	// idempotent
	again, err := fake.CancelOrder(order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if again.Status != models.StatusCancelled {
		t.Errorf("expected cancel to remain, got %s", again.Status)
	}
}

func TestFakeCancelDuringProductionRaisesFlagOnly(t *testing.T) {
	fake := NewFakeDAO()
	order := submittedOrder(t, fake, models.StatusAccepted, 2)
	if err := fake.UpdateOrderItemStatus(order.Items[0].ID, models.StatusInProduction, models.NullString{}); err != nil {
		t.Fatal(err)
	}
	got, err := fake.CancelOrder(order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.CancelRequested {
		t.Error("expected cancel flag to be raised")
	}
	if got.Status == models.StatusCancelled {
		t.Error("order in production must not be cancelled outright")
	}
}

func TestFakeDownloadedTransition(t *testing.T) {
	fake := NewFakeDAO()
	order := submittedOrder(t, fake, models.StatusAccepted, 1)
	itemID := order.Items[0].ID

	file, err := fake.CreateOseoFile(&models.OseoFile{
		OrderItemID: itemID,
		URL:         "tester/order_01/product",
		Name:        "product",
	})
	if err != nil {
		t.Fatal(err)
	}
	// replay with the same url must not duplicate
	if _, err := fake.CreateOseoFile(&models.OseoFile{
		OrderItemID: itemID,
		URL:         "tester/order_01/product",
		Name:        "product",
	}); err != nil {
		t.Fatal(err)
	}
	got, _ := fake.GetOrder(order.ID)
	if len(got.Items[0].Files) != 1 {
		t.Fatalf("expected one file after replay, got %d", len(got.Items[0].Files))
	}

	if err := fake.UpdateOrderItemStatus(itemID, models.StatusCompleted, models.NullString{}); err != nil {
		t.Fatal(err)
	}
	if err := fake.RecordDownload(file.ID); err != nil {
		t.Fatal(err)
	}
	got, _ = fake.GetOrder(order.ID)
	if got.Status != models.StatusDownloaded {
		t.Errorf("expected Downloaded after every file fetched, got %s", got.Status)
	}
}

func TestFakeExpiryAndTermination(t *testing.T) {
	fake := NewFakeDAO()
	order := submittedOrder(t, fake, models.StatusAccepted, 1)
	itemID := order.Items[0].ID

	past := time.Now().UTC().Add(-48 * time.Hour)
	if _, err := fake.CreateOseoFile(&models.OseoFile{
		OrderItemID: itemID,
		URL:         "tester/order_01/product",
		Name:        "product",
		ExpiresOn:   models.ToNullTime(past),
	}); err != nil {
		t.Fatal(err)
	}
	if err := fake.UpdateOrderItemStatus(itemID, models.StatusCompleted, models.NullString{}); err != nil {
		t.Fatal(err)
	}

	expired, err := fake.ExpireFiles(time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if len(expired) != 1 {
		t.Fatalf("expected one expired file, got %d", len(expired))
	}

	terminated, err := fake.TerminateUnavailableOrders(time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if terminated != 1 {
		t.Fatalf("expected one terminated order, got %d", terminated)
	}
	got, _ := fake.GetOrder(order.ID)
	if got.Status != models.StatusTerminated {
		t.Errorf("expected Terminated, got %s", got.Status)
	}
}

func TestFakeSearchOrders(t *testing.T) {
	fake := NewFakeDAO()
	order := submittedOrder(t, fake, models.StatusAccepted, 1)

	results, err := fake.SearchOrders(OrderFilter{UserID: order.UserID})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one order, got %d", len(results))
	}

	results, err = fake.SearchOrders(OrderFilter{
		UserID:   order.UserID,
		Statuses: []models.Status{models.StatusFailed},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no failed orders, got %d", len(results))
	}

	if _, err := fake.SearchOrders(OrderFilter{}); err != ErrMissingUserID {
		t.Errorf("expected ErrMissingUserID, got %v", err)
	}
}
