package server

import (
	"context"
	"encoding/xml"
	"strconv"

	"github.com/earthsight/oseo-server/config"
	"github.com/earthsight/oseo-server/mapping"
	"github.com/earthsight/oseo-server/metadata/models"
	"github.com/earthsight/oseo-server/processor"
	"github.com/earthsight/oseo-server/protocol"
	"github.com/earthsight/oseo-server/soap"
)

// submit validates and persists a new order. Validation walks the order
// specification top down: the order envelope first, then every item against
// its collection's configuration, then the order-global options against
// every collection the order touches.
func (h AppServer) submit(ctx context.Context, msg *soap.Message) ([]byte, *protocol.OseoError) {
	user, _ := UserFromContext(ctx)

	var request protocol.Submit
	if err := xml.Unmarshal(msg.Payload, &request); err != nil {
		return nil, protocol.NewClientError(protocol.ExceptionInvalidRequest, "malformed Submit request", "")
	}

	if request.QuotationID != "" {
		return nil, &protocol.OseoError{
			Code:        protocol.ExceptionNotImplemented,
			Text:        "quotation-based submission is not implemented",
			Locator:     "quotationId",
			ServerFault: true,
		}
	}
	spec := request.OrderSpecification
	if spec == nil {
		return nil, protocol.NewClientError(protocol.ExceptionInvalidRequest,
			"Submit requires an orderSpecification", "orderSpecification")
	}
	if request.StatusNotification != "" && request.StatusNotification != "None" {
		return nil, &protocol.OseoError{
			Code:        protocol.ExceptionNotImplemented,
			Text:        "status notification is not implemented",
			Locator:     "statusNotification",
			ServerFault: true,
		}
	}

	orderType, oerr := h.resolveOrderType(spec)
	if oerr != nil {
		return nil, oerr
	}
	typeConf, _ := h.Ordering.OrderType(orderType)
	if !typeConf.Enabled {
		return nil, protocol.NewClientError(protocol.ExceptionOperationNotSupported,
			"order type "+string(orderType)+" is not enabled", "orderType")
	}

	if spec.Packaging != "" && !models.ValidPackaging(spec.Packaging) {
		return nil, protocol.NewClientError(protocol.ExceptionInvalidParameterValue,
			"unsupported packaging "+spec.Packaging, "packaging")
	}
	if spec.Priority != "" && !stringIn(spec.Priority, models.PriorityValues) {
		return nil, protocol.NewClientError(protocol.ExceptionInvalidParameterValue,
			"unsupported priority "+spec.Priority, "priority")
	}
	if len(spec.OrderItem) == 0 {
		return nil, protocol.NewClientError(protocol.ExceptionInvalidRequest,
			"order has no items", "orderItem")
	}
	if len(spec.OrderItem) > h.Ordering.MaxOrderItems {
		return nil, protocol.NewClientError(protocol.ExceptionInvalidParameterValue,
			"order exceeds the maximum of "+strconv.Itoa(h.Ordering.MaxOrderItems)+" items", "orderItem")
	}

	order := models.Order{
		OrderType:           orderType,
		UserID:              user.ID,
		Username:            user.Username,
		Reference:           optionalString(spec.OrderReference),
		Remark:              optionalString(spec.OrderRemark),
		Packaging:           optionalString(spec.Packaging),
		Priority:            optionalString(spec.Priority),
		StatusNotification:  "None",
		DeliveryInformation: mapping.DeliveryInformationFromProtocol(spec.DeliveryInformation),
		InvoiceAddress:      mapping.AddressFromProtocol(spec.InvoiceAddress),
		Options:             mapping.OptionsFromProtocol(spec.Option),
		DeliveryOptions:     mapping.DeliveryOptionsFromProtocol(spec.DeliveryOptions),
	}

	// collections touched by the order, for validating the order-global
	// options and delivery options
	touched := make(map[string]*config.CollectionConfiguration)

	seenItemIDs := make(map[string]bool)
	for i := range spec.OrderItem {
		item, collection, oerr := h.validateOrderItem(ctx, &spec.OrderItem[i], orderType, user.GroupName.String)
		if oerr != nil {
			return nil, oerr
		}
		if seenItemIDs[item.ItemID] {
			return nil, protocol.NewClientError(protocol.ExceptionInvalidParameterValue,
				"duplicate itemId "+item.ItemID, "itemId")
		}
		seenItemIDs[item.ItemID] = true
		if collection != nil {
			touched[collection.CollectionIdentifier] = collection
		}
		order.Items = append(order.Items, *item)
	}

	for _, collection := range touched {
		sub := collection.ConfigurationFor(orderType)
		proc := h.processorFor(collection, orderType)
		if oerr := h.validateOptions(order.Options, collection, sub, proc); oerr != nil {
			return nil, oerr
		}
		if oerr := validateDeliveryOptions(order.DeliveryOptions, sub); oerr != nil {
			return nil, oerr
		}
	}

	if typeConf.AutomaticApproval {
		order.Status = models.StatusAccepted
		order.Approved = true
	} else {
		order.Status = models.StatusSubmitted
	}

	created, err := h.RootDAO.CreateOrder(&order)
	if err != nil {
		return nil, protocol.NewServerError(protocol.ExceptionNoApplicableCode, "could not store order", err)
	}

	ack := protocol.SubmitAck{
		Status:         protocol.StatusSuccess,
		OrderID:        strconv.FormatInt(created.ID, 10),
		OrderReference: spec.OrderReference,
	}
	payload, err := xml.Marshal(ack)
	if err != nil {
		return nil, protocol.NewServerError(protocol.ExceptionNoApplicableCode, "could not serialise acknowledgement", err)
	}
	return payload, nil
}

// resolveOrderType maps the submitted order type, reclassifying a product
// order whose reference equals the configured massive order marker. The
// massive variant itself is never accepted on the wire.
func (h AppServer) resolveOrderType(spec *protocol.OrderSpecification) (models.OrderType, *protocol.OseoError) {
	t := models.OrderType(spec.OrderType)
	if !t.Valid() || t == models.OrderTypeMassive {
		return "", protocol.NewClientError(protocol.ExceptionInvalidParameterValue,
			"unsupported order type "+spec.OrderType, "orderType")
	}
	if t == models.OrderTypeProduct &&
		h.Ordering.MassiveOrderReference != "" &&
		spec.OrderReference == h.Ordering.MassiveOrderReference {
		return models.OrderTypeMassive, nil
	}
	return t, nil
}

// validateOrderItem checks one submitted item against the registry and
// converts it. The returned collection is nil for tasking items.
func (h AppServer) validateOrderItem(ctx context.Context, in *protocol.SubmitOrderItem, orderType models.OrderType, group string) (*models.OrderItem, *config.CollectionConfiguration, *protocol.OseoError) {
	if in.ItemID == "" {
		return nil, nil, protocol.NewClientError(protocol.ExceptionInvalidRequest,
			"order item has no itemId", "itemId")
	}

	item := models.OrderItem{
		ItemID:          in.ItemID,
		Remark:          optionalString(in.OrderItemRemark),
		Options:         mapping.OptionsFromProtocol(in.Option),
		DeliveryOptions: mapping.DeliveryOptionsFromProtocol(in.DeliveryOptions),
	}

	var collectionID string
	switch orderType {
	case models.OrderTypeProduct, models.OrderTypeMassive:
		if in.ProductID == nil || in.ProductID.Identifier == "" {
			return nil, nil, protocol.NewClientError(protocol.ExceptionInvalidRequest,
				"order item "+in.ItemID+" has no productId", "productId")
		}
		item.Identifier = models.ToNullString(in.ProductID.Identifier)
		collectionID = in.ProductID.CollectionID
		if collectionID == "" {
			resolved, oerr := h.resolveProductCollection(ctx, in.ProductID.Identifier, group)
			if oerr != nil {
				return nil, nil, oerr
			}
			collectionID = resolved
		}
	case models.OrderTypeSubscription:
		if in.SubscriptionID == nil || in.SubscriptionID.Identifier == "" {
			return nil, nil, protocol.NewClientError(protocol.ExceptionInvalidRequest,
				"order item "+in.ItemID+" has no subscriptionId", "subscriptionId")
		}
		item.Identifier = models.ToNullString(in.SubscriptionID.Identifier)
		collectionID = in.SubscriptionID.CollectionID
		if collectionID == "" {
			collectionID = in.SubscriptionID.Identifier
		}
	case models.OrderTypeTasking:
		if in.TaskingRequestID == "" {
			return nil, nil, protocol.NewClientError(protocol.ExceptionInvalidRequest,
				"order item "+in.ItemID+" has no taskingRequestId", "taskingRequestId")
		}
		item.Identifier = models.ToNullString(in.TaskingRequestID)
		// tasking items carry no collection
		return &item, nil, nil
	}

	collection, ok := h.Ordering.CollectionByID(collectionID)
	if !ok {
		return nil, nil, protocol.NewClientError(protocol.ExceptionUnsupportedCollection,
			"unknown collection "+collectionID, "collectionId")
	}
	if !collection.GroupAuthorized(group) {
		return nil, nil, protocol.NewClientError(protocol.ExceptionAuthorizationFailed,
			"not authorised to order from collection "+collectionID, "collectionId")
	}
	sub := collection.ConfigurationFor(orderType)
	if !sub.Enabled {
		return nil, nil, protocol.NewClientError(protocol.ExceptionInvalidOrderOptionsID,
			"collection "+collectionID+" does not accept "+string(orderType), "collectionId")
	}
	item.CollectionID = models.ToNullString(collectionID)

	proc := h.processorFor(collection, orderType)
	if oerr := h.validateOptions(item.Options, collection, sub, proc); oerr != nil {
		return nil, nil, oerr
	}
	if oerr := validateDeliveryOptions(item.DeliveryOptions, sub); oerr != nil {
		return nil, nil, oerr
	}
	return &item, collection, nil
}

// resolveProductCollection asks the catalogues visible to the caller's group
// which collection a product belongs to.
func (h AppServer) resolveProductCollection(ctx context.Context, identifier, group string) (string, *protocol.OseoError) {
	endpoints := h.Ordering.CatalogueEndpointsForGroup(group)
	for _, endpoint := range endpoints {
		collectionID, err := h.Catalogue.ResolveCollection(ctx, endpoint, identifier)
		if err == nil {
			return collectionID, nil
		}
		LoggerFromContext(ctx).Debug("catalogue lookup missed")
	}
	return "", protocol.NewClientError(protocol.ExceptionUnsupportedCollection,
		"could not determine the collection of product "+identifier, "productId")
}

// validateOptions checks option names and values against the registry. A
// value that does not literally match a configured choice gets one more
// chance through the processor's ParseOption.
func (h AppServer) validateOptions(options []models.SelectedOption, collection *config.CollectionConfiguration, sub config.CollectionOrderTypeConfiguration, proc processor.ItemProcessor) *protocol.OseoError {
	for i := range options {
		opt := &options[i]
		registered, ok := h.Ordering.OptionByName(opt.Name)
		if !ok || !registered.AppliesTo(collection.CollectionIdentifier) || !sub.AllowsOption(opt.Name) {
			return protocol.NewClientError(protocol.ExceptionInvalidParameterValue,
				"option "+opt.Name+" is not available for collection "+collection.CollectionIdentifier, opt.Name)
		}
		if stringIn(opt.Value, registered.Choices) {
			continue
		}
		if proc != nil {
			parsed, err := proc.ParseOption(opt.Name, opt.Value)
			if err != nil {
				return protocol.NewServerError(protocol.ExceptionNoApplicableCode,
					"could not parse option "+opt.Name, err)
			}
			if stringIn(parsed, registered.Choices) {
				opt.Value = parsed
				continue
			}
		}
		return protocol.NewClientError(protocol.ExceptionInvalidParameterValue,
			"value "+opt.Value+" is not valid for option "+opt.Name, opt.Name)
	}
	return nil
}

func validateDeliveryOptions(options []models.SelectedDeliveryOption, sub config.CollectionOrderTypeConfiguration) *protocol.OseoError {
	for _, dopt := range options {
		if !sub.AllowsDelivery(dopt.Kind, dopt.Protocol.String, dopt.PackageMedium.String) {
			return protocol.NewClientError(protocol.ExceptionInvalidParameterValue,
				"requested delivery is not available for this collection", "deliveryOptions")
		}
	}
	return nil
}

func (h AppServer) processorFor(collection *config.CollectionConfiguration, orderType models.OrderType) processor.ItemProcessor {
	if h.Processors == nil {
		return nil
	}
	name := h.Ordering.ProcessorFor(collection, orderType)
	if name == "" {
		return nil
	}
	proc, err := h.Processors.Get(name)
	if err != nil {
		return nil
	}
	return proc
}

func optionalString(s string) models.NullString {
	if s == "" {
		return models.NullString{}
	}
	return models.ToNullString(s)
}

func stringIn(a string, list []string) bool {
	for _, b := range list {
		if b == a {
			return true
		}
	}
	return false
}
