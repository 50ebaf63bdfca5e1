package dao

import (
	"os"
	"testing"
	"time"

	"github.com/earthsight/oseo-server/config"
	"github.com/earthsight/oseo-server/metadata/models"
)

// testDAO connects to the database named by the OSEO_TEST_DB_* environment
// variables. Tests depending on it are skipped when no database is
// configured or in short mode.
func testDAO(t *testing.T) *DataAccessLayer {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	host := os.Getenv("OSEO_TEST_DB_HOST")
	if host == "" {
		t.Skip("OSEO_TEST_DB_HOST not set, skipping database test")
	}
	conf := config.DatabaseConfiguration{
		Driver:   "mysql",
		Username: config.GetEnvOrDefault("OSEO_TEST_DB_USERNAME", "oseo"),
		Password: config.GetEnvOrDefault("OSEO_TEST_DB_PASSWORD", "oseo"),
		Protocol: "tcp",
		Host:     host,
		Port:     config.GetEnvOrDefault("OSEO_TEST_DB_PORT", "3306"),
		Schema:   config.GetEnvOrDefault("OSEO_TEST_DB_SCHEMA", "oseo_test"),
	}
	d, _, err := NewDataAccessLayer(conf)
	if err != nil {
		t.Fatalf("cannot connect to test database: %v", err)
	}
	return d
}

func TestOrderRoundTrip(t *testing.T) {
	d := testDAO(t)

	user, err := d.CreateUser(models.OseoUser{Username: "roundtrip-" + time.Now().Format("150405.000000")})
	if err != nil {
		t.Fatal(err)
	}

	order := models.Order{
		OrderType:          models.OrderTypeProduct,
		UserID:             user.ID,
		Status:             models.StatusAccepted,
		Reference:          models.ToNullString("roundtrip"),
		Packaging:          models.ToNullString("zip"),
		StatusNotification: "None",
		Items: []models.OrderItem{
			{
				ItemID:       "item-a",
				Identifier:   models.ToNullString("product-1"),
				CollectionID: models.ToNullString("dummy_collection_id"),
				DeliveryOptions: []models.SelectedDeliveryOption{
					{Kind: models.DeliveryKindOnlineDataAccess, Protocol: models.ToNullString("http")},
				},
			},
		},
	}
	created, err := d.CreateOrder(&order)
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == 0 || len(created.Items) != 1 || len(created.Batches) != 1 {
		t.Fatalf("unexpected created order %+v", created)
	}
	if len(created.Items[0].DeliveryOptions) != 1 {
		t.Error("expected item delivery option to round trip")
	}

	batch, err := d.DequeueBatch(time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if batch == nil || batch.OrderID != created.ID {
		t.Fatalf("expected the created batch, got %+v", batch)
	}

	if err := d.UpdateOrderItemStatus(created.Items[0].ID, models.StatusCompleted, models.NullString{}); err != nil {
		t.Fatal(err)
	}
	got, err := d.GetOrder(created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusCompleted {
		t.Errorf("expected derived Completed, got %s", got.Status)
	}

	if err := d.AckBatch(batch.ID); err != nil {
		t.Fatal(err)
	}
}

func TestSearchOrdersFilters(t *testing.T) {
	d := testDAO(t)

	user, err := d.CreateUser(models.OseoUser{Username: "search-" + time.Now().Format("150405.000000")})
	if err != nil {
		t.Fatal(err)
	}
	order := models.Order{
		OrderType: models.OrderTypeProduct,
		UserID:    user.ID,
		Status:    models.StatusSubmitted,
		Reference: models.ToNullString("search-ref"),
		Items:     []models.OrderItem{{ItemID: "item-a"}},
	}
	if _, err := d.CreateOrder(&order); err != nil {
		t.Fatal(err)
	}

	results, err := d.SearchOrders(OrderFilter{
		UserID:    user.ID,
		Reference: models.ToNullString("search-ref"),
		Statuses:  []models.Status{models.StatusSubmitted},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one match, got %d", len(results))
	}

	results, err = d.SearchOrders(OrderFilter{
		UserID:     user.ID,
		LastUpdate: models.ToNullTime(time.Now().Add(time.Hour)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("expected no matches in the future window, got %d", len(results))
	}
}
