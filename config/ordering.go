package config

import (
	"fmt"

	"github.com/earthsight/oseo-server/metadata/models"
)

// OrderingConfiguration is the process-wide ordering registry: order types,
// collections, options and delivery options. Loaded at startup, immutable
// thereafter.
type OrderingConfiguration struct {
	// MaxOrderItems bounds the number of items accepted in one Submit.
	MaxOrderItems int `yaml:"max_order_items"`
	// MassiveOrderReference reclassifies a PRODUCT_ORDER whose
	// orderReference equals this marker as MASSIVE_ORDER.
	MassiveOrderReference string `yaml:"massive_order_reference"`
	// AuthenticationClass selects the authenticator: noauth or usernametoken.
	AuthenticationClass string `yaml:"authentication_class"`
	// VendorTokenType, when set, requires Password/@Type on the WSSE token
	// to equal this value.
	VendorTokenType string `yaml:"vendor_token_type"`
	// OnlineDataAccessHTTPRootDir is the filesystem root served for http
	// online access orders.
	OnlineDataAccessHTTPRootDir string `yaml:"online_data_access_http_root_dir"`
	// OnlineDataAccessFTPRootDir is the filesystem root for ftp deliveries.
	OnlineDataAccessFTPRootDir string `yaml:"online_data_access_ftp_root_dir"`
	// FTPHost is the host used when building ftp retrieval URLs.
	FTPHost string `yaml:"ftp_host"`

	OrderTypes              map[string]OrderTypeConfiguration `yaml:"order_types"`
	ProcessingOptions       []OptionConfiguration             `yaml:"processing_options"`
	OnlineDataAccessOptions []ProtocolFeeConfiguration        `yaml:"online_data_access_options"`
	Collections             []CollectionConfiguration         `yaml:"collections"`
}

// OrderTypeConfiguration holds the per-order-type flags.
type OrderTypeConfiguration struct {
	Enabled              bool   `yaml:"enabled"`
	AutomaticApproval    bool   `yaml:"automatic_approval"`
	NotifyCreation       bool   `yaml:"notify_creation"`
	ItemProcessor        string `yaml:"item_processor"`
	ItemAvailabilityDays int    `yaml:"item_availability_days"`
}

// OptionConfiguration registers a named order option. An option with no
// collections listed is global and applies to every collection.
type OptionConfiguration struct {
	Name     string   `yaml:"name"`
	DataType string   `yaml:"data_type"`
	Choices  []string `yaml:"choices"`
	// Collections scopes the option. Empty means global.
	Collections []string `yaml:"collections"`
}

// Global reports whether the option applies to every collection.
func (o OptionConfiguration) Global() bool {
	return len(o.Collections) == 0
}

// AppliesTo reports whether the option is usable with the collection.
func (o OptionConfiguration) AppliesTo(collectionID string) bool {
	if o.Global() {
		return true
	}
	for _, c := range o.Collections {
		if c == collectionID {
			return true
		}
	}
	return false
}

// ProtocolFeeConfiguration prices an online data access protocol.
type ProtocolFeeConfiguration struct {
	Protocol string  `yaml:"protocol"`
	Fee      float64 `yaml:"fee"`
}

// CollectionConfiguration describes one orderable product family.
type CollectionConfiguration struct {
	// Name is the short human-readable name.
	Name string `yaml:"name"`
	// CollectionIdentifier matches the CSW dataset-series identifier.
	CollectionIdentifier string `yaml:"collection_identifier"`
	// CatalogueEndpoint is the CSW endpoint products of this collection
	// are resolved against.
	CatalogueEndpoint   string  `yaml:"catalogue_endpoint"`
	ProductPrice        float64 `yaml:"product_price"`
	GenerationFrequency string  `yaml:"generation_frequency"`
	// ItemProcessor overrides the order type's processor for this
	// collection, when set.
	ItemProcessor string `yaml:"item_processor"`
	// AuthorizedGroups lists the groups whose members may order from this
	// collection.
	AuthorizedGroups []string `yaml:"authorized_groups"`

	OrderTypes map[string]CollectionOrderTypeConfiguration `yaml:"order_types"`
}

// GroupAuthorized reports whether members of the group may order from the
// collection. A collection with no authorized groups listed is open to all.
func (c CollectionConfiguration) GroupAuthorized(group string) bool {
	if len(c.AuthorizedGroups) == 0 {
		return true
	}
	for _, g := range c.AuthorizedGroups {
		if g == group {
			return true
		}
	}
	return false
}

// ConfigurationFor returns the collection's sub-configuration for an order
// type. normalize guarantees one exists for each of the four types.
func (c CollectionConfiguration) ConfigurationFor(t models.OrderType) CollectionOrderTypeConfiguration {
	return c.OrderTypes[string(t)]
}

// CollectionOrderTypeConfiguration is the per-(collection, order type)
// configuration.
type CollectionOrderTypeConfiguration struct {
	Enabled       bool    `yaml:"enabled"`
	ProcessingFee float64 `yaml:"processing_fee"`
	// Options names the registered options usable with this configuration.
	Options []string `yaml:"options"`
	// OnlineDataAccess lists allowed online data access protocols.
	OnlineDataAccess []string `yaml:"online_data_access"`
	// OnlineDataDelivery lists allowed online data delivery protocols.
	OnlineDataDelivery []string `yaml:"online_data_delivery"`
	// MediaDelivery lists allowed physical delivery media.
	MediaDelivery []MediaDeliveryConfiguration `yaml:"media_delivery"`
	// PaymentOptions lists allowed payment option names.
	PaymentOptions []string `yaml:"payment_options"`
	// SceneSelectionOptions lists allowed scene selection option names.
	SceneSelectionOptions []string `yaml:"scene_selection_options"`
}

// MediaDeliveryConfiguration is one allowed medium with its shipping mode.
type MediaDeliveryConfiguration struct {
	PackageMedium        string `yaml:"package_medium"`
	ShippingInstructions string `yaml:"shipping_instructions"`
}

// AllowsOption reports whether the named option is usable with this
// configuration.
func (c CollectionOrderTypeConfiguration) AllowsOption(name string) bool {
	for _, o := range c.Options {
		if o == name {
			return true
		}
	}
	return false
}

// AllowsDelivery reports whether the requested sub-kind with its protocol or
// medium is present in the configuration's delivery options.
func (c CollectionOrderTypeConfiguration) AllowsDelivery(kind models.DeliveryOptionKind, protocol, medium string) bool {
	switch kind {
	case models.DeliveryKindOnlineDataAccess:
		for _, p := range c.OnlineDataAccess {
			if p == protocol {
				return true
			}
		}
	case models.DeliveryKindOnlineDataDelivery:
		for _, p := range c.OnlineDataDelivery {
			if p == protocol {
				return true
			}
		}
	case models.DeliveryKindMediaDelivery:
		for _, m := range c.MediaDelivery {
			if m.PackageMedium == medium {
				return true
			}
		}
	}
	return false
}

// CollectionByID returns the collection whose identifier matches.
func (o *OrderingConfiguration) CollectionByID(collectionID string) (*CollectionConfiguration, bool) {
	for i := range o.Collections {
		if o.Collections[i].CollectionIdentifier == collectionID {
			return &o.Collections[i], true
		}
	}
	return nil, false
}

// OrderType returns the configuration for a given order type name.
func (o *OrderingConfiguration) OrderType(t models.OrderType) (OrderTypeConfiguration, bool) {
	otc, ok := o.OrderTypes[string(t)]
	return otc, ok
}

// OptionByName returns a registered option.
func (o *OrderingConfiguration) OptionByName(name string) (*OptionConfiguration, bool) {
	for i := range o.ProcessingOptions {
		if o.ProcessingOptions[i].Name == name {
			return &o.ProcessingOptions[i], true
		}
	}
	return nil, false
}

// OptionsForCollection returns the union of the collection-scoped and global
// options, in registration order.
func (o *OrderingConfiguration) OptionsForCollection(collectionID string) []OptionConfiguration {
	var out []OptionConfiguration
	for _, opt := range o.ProcessingOptions {
		if opt.AppliesTo(collectionID) {
			out = append(out, opt)
		}
	}
	return out
}

// EnabledOrderTypes returns the order types enabled process-wide.
func (o *OrderingConfiguration) EnabledOrderTypes() []models.OrderType {
	var out []models.OrderType
	for _, t := range models.AllOrderTypes {
		if otc, ok := o.OrderTypes[string(t)]; ok && otc.Enabled {
			out = append(out, t)
		}
	}
	return out
}

// DeliveryProtocols returns the distinct protocols configured across all
// collections, for the capabilities document.
func (o *OrderingConfiguration) DeliveryProtocols() []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range o.Collections {
		for _, sub := range c.OrderTypes {
			for _, p := range append(append([]string{}, sub.OnlineDataAccess...), sub.OnlineDataDelivery...) {
				if !seen[p] {
					seen[p] = true
					out = append(out, p)
				}
			}
		}
	}
	return out
}

// CatalogueEndpointsForGroup returns the catalogue endpoints of every
// collection visible to the group, deduplicated.
func (o *OrderingConfiguration) CatalogueEndpointsForGroup(group string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range o.Collections {
		if !c.GroupAuthorized(group) || c.CatalogueEndpoint == "" {
			continue
		}
		if !seen[c.CatalogueEndpoint] {
			seen[c.CatalogueEndpoint] = true
			out = append(out, c.CatalogueEndpoint)
		}
	}
	return out
}

// ProcessorFor resolves the item processor name for a collection and order
// type: the collection override wins, then the order type default.
func (o *OrderingConfiguration) ProcessorFor(collection *CollectionConfiguration, t models.OrderType) string {
	if collection != nil && collection.ItemProcessor != "" {
		return collection.ItemProcessor
	}
	if otc, ok := o.OrderTypes[string(t)]; ok {
		return otc.ItemProcessor
	}
	return ""
}

func (o *OrderingConfiguration) applyDefaults() {
	if o.MaxOrderItems == 0 {
		o.MaxOrderItems = 200
	}
	if o.AuthenticationClass == "" {
		o.AuthenticationClass = "noauth"
	}
	if o.OrderTypes == nil {
		o.OrderTypes = make(map[string]OrderTypeConfiguration)
	}
	for _, t := range models.AllOrderTypes {
		if _, ok := o.OrderTypes[string(t)]; !ok {
			o.OrderTypes[string(t)] = OrderTypeConfiguration{}
		}
	}
}

// normalize enforces the registry invariants: every collection carries
// exactly one sub-configuration per order type, configured options are a
// subset of the registered options, and protocols and media are drawn from
// the accepted sets.
func (o *OrderingConfiguration) normalize() error {
	for name := range o.OrderTypes {
		if !models.OrderType(name).Valid() {
			return fmt.Errorf("ordering: unknown order type %q", name)
		}
	}
	for i := range o.Collections {
		c := &o.Collections[i]
		if c.CollectionIdentifier == "" {
			return fmt.Errorf("ordering: collection %q has no collection_identifier", c.Name)
		}
		if c.OrderTypes == nil {
			c.OrderTypes = make(map[string]CollectionOrderTypeConfiguration)
		}
		for name := range c.OrderTypes {
			if !models.OrderType(name).Valid() {
				return fmt.Errorf("ordering: collection %q: unknown order type %q", c.Name, name)
			}
		}
		for _, t := range models.AllOrderTypes {
			if _, ok := c.OrderTypes[string(t)]; !ok {
				c.OrderTypes[string(t)] = CollectionOrderTypeConfiguration{}
			}
		}
		for name, sub := range c.OrderTypes {
			for _, optName := range sub.Options {
				if _, ok := o.OptionByName(optName); !ok {
					return fmt.Errorf("ordering: collection %q %s: option %q is not registered", c.Name, name, optName)
				}
			}
			for _, p := range append(append([]string{}, sub.OnlineDataAccess...), sub.OnlineDataDelivery...) {
				if !models.ValidProtocol(p) {
					return fmt.Errorf("ordering: collection %q %s: unknown protocol %q", c.Name, name, p)
				}
			}
			for _, m := range sub.MediaDelivery {
				if !models.ValidPackageMedium(m.PackageMedium) {
					return fmt.Errorf("ordering: collection %q %s: unknown medium %q", c.Name, name, m.PackageMedium)
				}
				if m.ShippingInstructions != "" && !models.ValidShippingInstructions(m.ShippingInstructions) {
					return fmt.Errorf("ordering: collection %q %s: unknown shipping instructions %q", c.Name, name, m.ShippingInstructions)
				}
			}
		}
	}
	return nil
}
