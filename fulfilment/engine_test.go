package fulfilment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/earthsight/oseo-server/config"
	"github.com/earthsight/oseo-server/dao"
	"github.com/earthsight/oseo-server/metadata/models"
	"github.com/earthsight/oseo-server/processor"
)

func testOrdering(processorName string) *config.OrderingConfiguration {
	return &config.OrderingConfiguration{
		OrderTypes: map[string]config.OrderTypeConfiguration{
			"PRODUCT_ORDER": {Enabled: true, ItemProcessor: processorName, ItemAvailabilityDays: 14},
		},
		Collections: []config.CollectionConfiguration{{
			Name:                 "Optical scenes",
			CollectionIdentifier: "OPTICAL_SCENES",
		}},
	}
}

func testConf() config.FulfilmentConfiguration {
	return config.FulfilmentConfiguration{
		Workers:             1,
		PollIntervalSeconds: 1,
		MaxItemRetries:      2,
		ItemDeadlineSeconds: 10,
	}
}

func directoryRegistry(t *testing.T, rootDir string) *processor.Registry {
	t.Helper()
	registry := processor.NewRegistry()
	registry.Register(processor.DirectoryProcessorName, processor.NewDirectoryProcessor)
	if err := registry.Configure(processor.DirectoryProcessorName, map[string]string{"root_dir": rootDir}); err != nil {
		t.Fatal(err)
	}
	return registry
}

func acceptedOrder(t *testing.T, fake *dao.FakeDAO, itemIDs ...string) models.Order {
	t.Helper()
	order := models.Order{
		OrderType: models.OrderTypeProduct,
		UserID:    1,
		Username:  "alice",
		Status:    models.StatusAccepted,
	}
	for _, id := range itemIDs {
		order.Items = append(order.Items, models.OrderItem{
			ItemID:       id,
			Identifier:   models.ToNullString("scene-" + id),
			CollectionID: models.ToNullString("OPTICAL_SCENES"),
		})
	}
	created, err := fake.CreateOrder(&order)
	if err != nil {
		t.Fatal(err)
	}
	return created
}

func TestEngineCompletesOrder(t *testing.T) {
	fake := dao.NewFakeDAO()
	rootDir := t.TempDir()
	engine := NewEngine(fake, testOrdering(processor.DirectoryProcessorName), testConf(), directoryRegistry(t, rootDir), zap.NewNop())

	order := acceptedOrder(t, fake, "item-1")

	processed, err := engine.ProcessOne(context.Background())
	if err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}
	if !processed {
		t.Fatal("queue was empty")
	}

	got, err := fake.GetOrder(order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusCompleted {
		t.Fatalf("order status = %q, want Completed", got.Status)
	}
	item := got.Items[0]
	if len(item.Files) != 1 {
		t.Fatalf("got %d files, want 1", len(item.Files))
	}
	if !item.Files[0].ExpiresOn.Valid {
		t.Error("file has no expiry")
	}
	onDisk := filepath.Join(rootDir, filepath.FromSlash(item.Files[0].URL))
	if _, err := os.Stat(onDisk); err != nil {
		t.Errorf("produced file missing on disk: %v", err)
	}
	if fake.QueueLength() != 0 {
		t.Errorf("queue length = %d after ack, want 0", fake.QueueLength())
	}
}

func TestEngineIdleQueue(t *testing.T) {
	fake := dao.NewFakeDAO()
	engine := NewEngine(fake, testOrdering(""), testConf(), processor.NewRegistry(), zap.NewNop())

	processed, err := engine.ProcessOne(context.Background())
	if err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}
	if processed {
		t.Error("processed on an empty queue")
	}
}

// failingProcessor counts attempts and always fails.
type failingProcessor struct{ calls int }

func (p *failingProcessor) ParseOption(name, value string) (string, error) { return value, nil }

func (p *failingProcessor) ProcessItemOnlineAccess(ctx context.Context, req processor.Request) ([]string, string, error) {
	p.calls++
	return nil, "", errors.New("production backend unavailable")
}

func (p *failingProcessor) PackageFiles(ctx context.Context, req processor.Request, fileURLs []string) ([]string, error) {
	return nil, errors.New("production backend unavailable")
}

func (p *failingProcessor) CleanFiles(fileURLs []string) error { return nil }

func TestEngineRetriesThenFails(t *testing.T) {
	fake := dao.NewFakeDAO()
	failing := &failingProcessor{}
	registry := processor.NewRegistry()
	registry.Register("failing", func(settings map[string]string) (processor.ItemProcessor, error) {
		return failing, nil
	})
	if err := registry.Configure("failing", nil); err != nil {
		t.Fatal(err)
	}
	conf := testConf()
	conf.RetryBackoffSeconds = 0
	engine := NewEngine(fake, testOrdering("failing"), conf, registry, zap.NewNop())

	order := acceptedOrder(t, fake, "item-1")

	if _, err := engine.ProcessOne(context.Background()); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}
	if want := conf.MaxItemRetries + 1; failing.calls != want {
		t.Errorf("processor called %d times, want %d", failing.calls, want)
	}

	got, err := fake.GetOrder(order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusFailed {
		t.Errorf("order status = %q, want Failed", got.Status)
	}
	if got.Items[0].AdditionalStatusInfo.String != "production backend unavailable" {
		t.Errorf("status info = %q", got.Items[0].AdditionalStatusInfo.String)
	}
	if fake.QueueLength() != 0 {
		t.Errorf("failed batch left in queue")
	}
}

func TestEngineHonoursCancelFlag(t *testing.T) {
	fake := dao.NewFakeDAO()
	rootDir := t.TempDir()
	engine := NewEngine(fake, testOrdering(processor.DirectoryProcessorName), testConf(), directoryRegistry(t, rootDir), zap.NewNop())

	order := acceptedOrder(t, fake, "item-1", "item-2")
	if err := fake.SetCancelRequested(order.ID); err != nil {
		t.Fatal(err)
	}

	if _, err := engine.ProcessOne(context.Background()); err != nil {
		t.Fatalf("ProcessOne: %v", err)
	}

	got, err := fake.GetOrder(order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusCancelled {
		t.Errorf("order status = %q, want Cancelled", got.Status)
	}
	for _, item := range got.Items {
		if item.Status != models.StatusCancelled {
			t.Errorf("item %s status = %q, want Cancelled", item.ItemID, item.Status)
		}
	}
}

func TestEngineReplaySkipsSettledItems(t *testing.T) {
	fake := dao.NewFakeDAO()
	rootDir := t.TempDir()
	engine := NewEngine(fake, testOrdering(processor.DirectoryProcessorName), testConf(), directoryRegistry(t, rootDir), zap.NewNop())

	order := acceptedOrder(t, fake, "item-1")
	if _, err := engine.ProcessOne(context.Background()); err != nil {
		t.Fatal(err)
	}

	got, err := fake.GetOrder(order.ID)
	if err != nil {
		t.Fatal(err)
	}
	batchID := got.Batches[0].ID
	if err := fake.EnqueueBatch(batchID); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.ProcessOne(context.Background()); err != nil {
		t.Fatal(err)
	}

	got, err = fake.GetOrder(order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusCompleted {
		t.Errorf("order status after replay = %q, want Completed", got.Status)
	}
	if len(got.Items[0].Files) != 1 {
		t.Errorf("replay duplicated files: %d", len(got.Items[0].Files))
	}
}

func TestMaintenanceSweeps(t *testing.T) {
	fake := dao.NewFakeDAO()
	rootDir := t.TempDir()
	registry := directoryRegistry(t, rootDir)
	engine := NewEngine(fake, testOrdering(processor.DirectoryProcessorName), testConf(), registry, zap.NewNop())

	order := acceptedOrder(t, fake, "item-1")
	if _, err := engine.ProcessOne(context.Background()); err != nil {
		t.Fatal(err)
	}

	// rewind the file's expiry so the sweep sees it as long gone
	got, err := fake.GetOrder(order.ID)
	if err != nil {
		t.Fatal(err)
	}
	file := got.Items[0].Files[0]
	if _, err := fake.CreateOseoFile(&models.OseoFile{
		OrderItemID: file.OrderItemID,
		URL:         file.URL,
		Name:        file.Name,
		ExpiresOn:   models.ToNullTime(time.Now().Add(-48 * time.Hour)),
	}); err != nil {
		t.Fatal(err)
	}

	conf := testConf()
	conf.UnavailableTerminationDays = 1
	conf.FailedOrderMaxAgeDays = 1
	m := NewMaintenance(fake, conf, registry, zap.NewNop())
	m.SweepExpired()

	got, err = fake.GetOrder(order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.StatusTerminated {
		t.Errorf("order status = %q, want Terminated (id %s)", got.Status, strconv.FormatInt(order.ID, 10))
	}
	onDisk := filepath.Join(rootDir, filepath.FromSlash(file.URL))
	if _, err := os.Stat(onDisk); !os.IsNotExist(err) {
		t.Errorf("expired file still on disk: %v", err)
	}
}
