package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/earthsight/oseo-server/metadata/models"
)

var testYAML = `
database:
  username: oseo
  password: secret
  host: dbhost
  port: "3306"
  schema: oseo
server:
  port: "8080"
  external_host: ordering.example.com
ordering:
  massive_order_reference: Massive order
  order_types:
    PRODUCT_ORDER:
      enabled: true
      automatic_approval: true
      item_processor: directory
      item_availability_days: 10
  processing_options:
    - name: ProductType
      data_type: string
      choices: [L1, L2]
  collections:
    - name: dummy collection
      collection_identifier: dummy_collection_id
      catalogue_endpoint: http://csw.example.com/csw
      authorized_groups: [users]
      order_types:
        PRODUCT_ORDER:
          enabled: true
          options: [ProductType]
          online_data_access: [http]
`

func writeTestConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oseo.yml")
	if err := ioutil.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewAppConfiguration(t *testing.T) {
	conf, err := NewAppConfiguration(writeTestConfig(t, testYAML))
	if err != nil {
		t.Fatal(err)
	}
	if conf.DatabaseConnection.Username != "oseo" {
		t.Errorf("unexpected db username %q", conf.DatabaseConnection.Username)
	}
	if conf.DatabaseConnection.Driver != "mysql" {
		t.Errorf("expected mysql driver default, got %q", conf.DatabaseConnection.Driver)
	}
	if conf.Ordering.MaxOrderItems != 200 {
		t.Errorf("expected max order items default 200, got %d", conf.Ordering.MaxOrderItems)
	}
	if conf.Fulfilment.ItemDeadlineSeconds != 3600 {
		t.Errorf("expected one hour item deadline default, got %d", conf.Fulfilment.ItemDeadlineSeconds)
	}

	c, ok := conf.Ordering.CollectionByID("dummy_collection_id")
	if !ok {
		t.Fatal("expected to find dummy_collection_id")
	}
	if !c.GroupAuthorized("users") {
		t.Error("expected group users to be authorized")
	}
	if c.GroupAuthorized("strangers") {
		t.Error("expected group strangers to not be authorized")
	}

	sub := c.ConfigurationFor(models.OrderTypeProduct)
	if !sub.Enabled {
		t.Error("expected PRODUCT_ORDER to be enabled for the collection")
	}
	if !sub.AllowsDelivery(models.DeliveryKindOnlineDataAccess, "http", "") {
		t.Error("expected http online data access to be allowed")
	}
	if sub.AllowsDelivery(models.DeliveryKindOnlineDataAccess, "ftp", "") {
		t.Error("expected ftp online data access to be rejected")
	}

	// the normalize invariant: one sub-configuration per order type
	for _, orderType := range models.AllOrderTypes {
		if _, ok := c.OrderTypes[string(orderType)]; !ok {
			t.Errorf("expected a sub-configuration for %s", orderType)
		}
	}
	if c.ConfigurationFor(models.OrderTypeTasking).Enabled {
		t.Error("expected TASKING_ORDER to default to disabled")
	}
}

func TestNewAppConfigurationEnvOverride(t *testing.T) {
	os.Setenv("OSEO_DB_HOST", "otherhost")
	defer os.Unsetenv("OSEO_DB_HOST")
	conf, err := NewAppConfiguration(writeTestConfig(t, testYAML))
	if err != nil {
		t.Fatal(err)
	}
	if conf.DatabaseConnection.Host != "otherhost" {
		t.Errorf("expected env override for db host, got %q", conf.DatabaseConnection.Host)
	}
}

func TestNewAppConfigurationRejectsUnknownOption(t *testing.T) {
	badYAML := `
ordering:
  collections:
    - name: broken
      collection_identifier: broken_id
      order_types:
        PRODUCT_ORDER:
          enabled: true
          options: [NoSuchOption]
`
	if _, err := NewAppConfiguration(writeTestConfig(t, badYAML)); err == nil {
		t.Error("expected an error for an unregistered option reference")
	}
}

func TestDatabaseConfigurationDSN(t *testing.T) {
	conf := DatabaseConfiguration{
		Driver: "mysql", Username: "u", Password: "p", Protocol: "tcp",
		Host: "h", Port: "3306", Schema: "oseo",
	}
	dsn := conf.buildDSN()
	want := "u:p@tcp(h:3306)/oseo?parseTime=true&collation=utf8mb4_unicode_ci&readTimeout=30s"
	if dsn != want {
		t.Errorf("dsn mismatch:\n got %s\nwant %s", dsn, want)
	}
}
