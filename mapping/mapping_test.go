package mapping

import (
	"testing"

	"github.com/earthsight/oseo-server/config"
	"github.com/earthsight/oseo-server/metadata/models"
	"github.com/earthsight/oseo-server/protocol"
)

func TestDeliveryOptionsRoundTrip(t *testing.T) {
	in := &protocol.DeliveryOptions{
		OnlineDataAccess: &protocol.OnlineDataAccess{Protocol: "http"},
		NumberOfCopies:   2,
	}
	rows := DeliveryOptionsFromProtocol(in)
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	if rows[0].Kind != models.DeliveryKindOnlineDataAccess || rows[0].Protocol.String != "http" {
		t.Errorf("unexpected row %+v", rows[0])
	}
	if rows[0].Copies != 2 {
		t.Errorf("expected copies to carry over, got %d", rows[0].Copies)
	}
	back := DeliveryOptionsToProtocol(rows)
	if back == nil || back.OnlineDataAccess == nil || back.OnlineDataAccess.Protocol != "http" {
		t.Errorf("unexpected round trip %+v", back)
	}
	if DeliveryOptionsToProtocol(nil) != nil {
		t.Error("expected nil for no rows")
	}
}

func TestOrderToMonitorMassiveFace(t *testing.T) {
	order := models.Order{
		ID:        7,
		OrderType: models.OrderTypeMassive,
		Status:    models.StatusInProduction,
		Reference: models.ToNullString("internal-ref"),
		Items: []models.OrderItem{
			{ItemID: "item-a", Status: models.StatusInProduction},
		},
	}
	brief := OrderToMonitor(order, "MASSIVE", false)
	if brief.OrderType != string(models.OrderTypeProduct) {
		t.Errorf("massive orders must be reported as product orders, got %s", brief.OrderType)
	}
	if brief.OrderReference != "MASSIVE" {
		t.Errorf("expected the massive marker as reference, got %s", brief.OrderReference)
	}
	if len(brief.OrderItem) != 0 {
		t.Error("brief presentation must omit items")
	}
	full := OrderToMonitor(order, "MASSIVE", true)
	if len(full.OrderItem) != 1 || full.OrderItem[0].ItemID != "item-a" {
		t.Errorf("unexpected items %+v", full.OrderItem)
	}
}

func testOrdering(t *testing.T) *config.OrderingConfiguration {
	t.Helper()
	ordering := &config.OrderingConfiguration{
		OrderTypes: map[string]config.OrderTypeConfiguration{
			string(models.OrderTypeProduct):      {Enabled: true},
			string(models.OrderTypeMassive):      {Enabled: true},
			string(models.OrderTypeSubscription): {},
			string(models.OrderTypeTasking):      {},
		},
		ProcessingOptions: []config.OptionConfiguration{
			{Name: "ProductType", Choices: []string{"L1", "L2"}},
		},
		Collections: []config.CollectionConfiguration{
			{
				Name:                 "Dummy",
				CollectionIdentifier: "dummy_collection_id",
				OrderTypes: map[string]config.CollectionOrderTypeConfiguration{
					string(models.OrderTypeProduct): {
						Enabled:          true,
						Options:          []string{"ProductType"},
						OnlineDataAccess: []string{"http", "ftp"},
					},
					string(models.OrderTypeMassive):      {},
					string(models.OrderTypeSubscription): {},
					string(models.OrderTypeTasking):      {},
				},
			},
		},
	}
	return ordering
}

func TestCollectionOrderOptions(t *testing.T) {
	ordering := testOrdering(t)
	blocks := CollectionOrderOptions(ordering, &ordering.Collections[0])
	if len(blocks) != 1 {
		t.Fatalf("expected one enabled block, got %d", len(blocks))
	}
	block := blocks[0]
	if block.OrderType != string(models.OrderTypeProduct) {
		t.Errorf("unexpected order type %s", block.OrderType)
	}
	if block.ProductOrderOptionsID != "dummy_collection_id_PRODUCT_ORDER" {
		t.Errorf("unexpected options id %s", block.ProductOrderOptionsID)
	}
	if len(block.Option) != 1 || block.Option[0].Name != "ProductType" {
		t.Errorf("unexpected options %+v", block.Option)
	}
	if block.ProductDeliveryOptions == nil || len(block.ProductDeliveryOptions.OnlineDataAccess) != 2 {
		t.Errorf("unexpected delivery choices %+v", block.ProductDeliveryOptions)
	}
}

func TestCapabilitiesDocument(t *testing.T) {
	ordering := testOrdering(t)
	caps := CapabilitiesDocument(ordering)
	if caps.Version != "1.0.0" {
		t.Errorf("unexpected version %s", caps.Version)
	}
	if len(caps.OperationsMetadata.Operation) != len(protocol.SupportedOperations) {
		t.Error("expected every supported operation to be advertised")
	}
	for _, ot := range caps.Contents.SupportedOrderType {
		if ot == string(models.OrderTypeMassive) {
			t.Error("massive order type must not be advertised")
		}
	}
	if len(caps.Contents.SupportedOrderType) != 1 {
		t.Errorf("unexpected order types %v", caps.Contents.SupportedOrderType)
	}
}
