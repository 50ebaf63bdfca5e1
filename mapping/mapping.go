// Package mapping converts between the wire types of the protocol package
// and the persistence types of the models package, and renders the
// configured ordering registry as protocol documents.
package mapping

import (
	"strconv"
	"time"

	"github.com/earthsight/oseo-server/config"
	"github.com/earthsight/oseo-server/metadata/models"
	"github.com/earthsight/oseo-server/protocol"
)

// OptionsFromProtocol converts submitted option values.
func OptionsFromProtocol(in []protocol.Option) []models.SelectedOption {
	out := make([]models.SelectedOption, 0, len(in))
	for _, o := range in {
		out = append(out, models.SelectedOption{Name: o.Name, Value: o.Value})
	}
	return out
}

// DeliveryOptionsFromProtocol flattens a submitted deliveryOptions element
// into rows, one per sub-kind present.
func DeliveryOptionsFromProtocol(in *protocol.DeliveryOptions) []models.SelectedDeliveryOption {
	if in == nil {
		return nil
	}
	common := models.SelectedDeliveryOption{
		Copies:              in.NumberOfCopies,
		Annotation:          optionalString(in.ProductAnnotation),
		SpecialInstructions: optionalString(in.SpecialInstructions),
	}
	var out []models.SelectedDeliveryOption
	if in.OnlineDataAccess != nil {
		row := common
		row.Kind = models.DeliveryKindOnlineDataAccess
		row.Protocol = optionalString(in.OnlineDataAccess.Protocol)
		out = append(out, row)
	}
	if in.OnlineDataDelivery != nil {
		row := common
		row.Kind = models.DeliveryKindOnlineDataDelivery
		row.Protocol = optionalString(in.OnlineDataDelivery.Protocol)
		out = append(out, row)
	}
	if in.MediaDelivery != nil {
		row := common
		row.Kind = models.DeliveryKindMediaDelivery
		row.PackageMedium = optionalString(in.MediaDelivery.PackageMedium)
		row.ShippingInstructions = optionalString(in.MediaDelivery.ShippingInstructions)
		out = append(out, row)
	}
	return out
}

// DeliveryOptionsToProtocol rebuilds a deliveryOptions element from stored
// rows. Returns nil when there are none.
func DeliveryOptionsToProtocol(in []models.SelectedDeliveryOption) *protocol.DeliveryOptions {
	if len(in) == 0 {
		return nil
	}
	out := &protocol.DeliveryOptions{
		NumberOfCopies:      in[0].Copies,
		ProductAnnotation:   in[0].Annotation.String,
		SpecialInstructions: in[0].SpecialInstructions.String,
	}
	for _, row := range in {
		switch row.Kind {
		case models.DeliveryKindOnlineDataAccess:
			out.OnlineDataAccess = &protocol.OnlineDataAccess{Protocol: row.Protocol.String}
		case models.DeliveryKindOnlineDataDelivery:
			out.OnlineDataDelivery = &protocol.OnlineDataDelivery{Protocol: row.Protocol.String}
		case models.DeliveryKindMediaDelivery:
			out.MediaDelivery = &protocol.MediaDelivery{
				PackageMedium:        row.PackageMedium.String,
				ShippingInstructions: row.ShippingInstructions.String,
			}
		}
	}
	return out
}

// AddressFromProtocol converts a postal address.
func AddressFromProtocol(in *protocol.DeliveryAddress) *models.DeliveryAddress {
	if in == nil {
		return nil
	}
	return &models.DeliveryAddress{
		FirstName:       optionalString(in.FirstName),
		LastName:        optionalString(in.LastName),
		CompanyRef:      optionalString(in.CompanyRef),
		StreetAddress:   optionalString(in.StreetAddress),
		City:            optionalString(in.City),
		State:           optionalString(in.State),
		PostalCode:      optionalString(in.PostalCode),
		Country:         optionalString(in.Country),
		PostBox:         optionalString(in.PostBox),
		TelephoneNumber: optionalString(in.TelephoneNumber),
		FacsimileNumber: optionalString(in.FacsimileNumber),
	}
}

// DeliveryInformationFromProtocol converts the deliveryInformation element.
func DeliveryInformationFromProtocol(in *protocol.DeliveryInformation) *models.DeliveryInformation {
	if in == nil {
		return nil
	}
	out := &models.DeliveryInformation{MailAddress: AddressFromProtocol(in.MailAddress)}
	for _, oa := range in.OnlineAddress {
		out.OnlineAddresses = append(out.OnlineAddresses, models.OnlineAddress{
			Protocol:      oa.Protocol,
			ServerAddress: oa.ServerAddress,
			UserName:      optionalString(oa.UserName),
			UserPassword:  optionalString(oa.UserPassword),
			Path:          optionalString(oa.Path),
		})
	}
	return out
}

// OrderToMonitor renders an order for GetStatus. Massive orders are reported
// under their public PRODUCT_ORDER face with the massive order marker as the
// reference. Items are included only under full presentation.
func OrderToMonitor(order models.Order, massiveReference string, full bool) protocol.CommonOrderMonitorSpecification {
	out := protocol.CommonOrderMonitorSpecification{
		OrderID:        strconv.FormatInt(order.ID, 10),
		OrderType:      string(order.OrderType),
		OrderReference: order.Reference.String,
		OrderStatusInfo: protocol.StatusInfo{
			Status:                    string(order.Status),
			AdditionalStatusInfo:      order.AdditionalStatusInfo.String,
			MissionSpecificStatusInfo: order.MissionSpecificStatusInfo.String,
		},
	}
	if order.OrderType == models.OrderTypeMassive {
		out.OrderType = string(models.OrderTypeProduct)
		out.OrderReference = massiveReference
	}
	if full {
		for _, item := range order.Items {
			out.OrderItem = append(out.OrderItem, protocol.OrderItemStatus{
				ItemID:       item.ItemID,
				Identifier:   item.Identifier.String,
				CollectionID: item.CollectionID.String,
				ItemStatusInfo: protocol.StatusInfo{
					Status:                    string(item.Status),
					AdditionalStatusInfo:      item.AdditionalStatusInfo.String,
					MissionSpecificStatusInfo: item.MissionSpecificStatusInfo.String,
				},
				DeliveryOptions: DeliveryOptionsToProtocol(item.DeliveryOptions),
			})
		}
	}
	return out
}

// CollectionOrderOptions renders the ordering options of one collection for
// GetOptions: one orderOptions block per enabled order type.
func CollectionOrderOptions(ordering *config.OrderingConfiguration, collection *config.CollectionConfiguration) []protocol.CommonOrderOptions {
	var out []protocol.CommonOrderOptions
	for _, t := range ordering.EnabledOrderTypes() {
		sub := collection.ConfigurationFor(t)
		if !sub.Enabled {
			continue
		}
		block := protocol.CommonOrderOptions{
			ProductOrderOptionsID: collection.CollectionIdentifier + "_" + string(t),
			Description:           collection.Name,
			OrderType:             string(t),
		}
		for _, opt := range ordering.OptionsForCollection(collection.CollectionIdentifier) {
			if !sub.AllowsOption(opt.Name) {
				continue
			}
			block.Option = append(block.Option, protocol.OptionChoices{
				Name:     opt.Name,
				DataType: opt.DataType,
				Value:    opt.Choices,
			})
		}
		block.ProductDeliveryOptions = deliveryChoices(sub)
		out = append(out, block)
	}
	return out
}

// CapabilitiesDocument renders the capabilities from the live configuration.
func CapabilitiesDocument(ordering *config.OrderingConfiguration) protocol.Capabilities {
	operations := make([]protocol.Operation, 0, len(protocol.SupportedOperations))
	for _, name := range protocol.SupportedOperations {
		operations = append(operations, protocol.Operation{Name: name})
	}
	orderTypes := ordering.EnabledOrderTypes()
	contents := protocol.CapabilitiesContents{
		DeliveryProtocol: ordering.DeliveryProtocols(),
	}
	for _, t := range orderTypes {
		// the massive variant is an internal reclassification, not a public
		// order type
		if t == models.OrderTypeMassive {
			continue
		}
		contents.SupportedOrderType = append(contents.SupportedOrderType, string(t))
	}
	return protocol.Capabilities{
		Version: "1.0.0",
		ServiceIdentification: &protocol.ServiceIdentification{
			Title:              "Earth observation product ordering service",
			ServiceType:        "OSEO",
			ServiceTypeVersion: "1.0.0",
		},
		OperationsMetadata: &protocol.OperationsMetadata{Operation: operations},
		Contents:           &contents,
	}
}

// FormatTime renders a timestamp the way responses carry them.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func deliveryChoices(sub config.CollectionOrderTypeConfiguration) *protocol.DeliveryOptionsChoices {
	if len(sub.OnlineDataAccess) == 0 && len(sub.OnlineDataDelivery) == 0 && len(sub.MediaDelivery) == 0 {
		return nil
	}
	out := &protocol.DeliveryOptionsChoices{
		OnlineDataAccess:   sub.OnlineDataAccess,
		OnlineDataDelivery: sub.OnlineDataDelivery,
	}
	for _, m := range sub.MediaDelivery {
		out.MediaDelivery = append(out.MediaDelivery, protocol.MediaDelivery{
			PackageMedium:        m.PackageMedium,
			ShippingInstructions: m.ShippingInstructions,
		})
	}
	return out
}

func optionalString(s string) models.NullString {
	if s == "" {
		return models.NullString{}
	}
	return models.ToNullString(s)
}
