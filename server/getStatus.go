package server

import (
	"context"
	"encoding/xml"
	"strconv"
	"time"

	"github.com/earthsight/oseo-server/dao"
	"github.com/earthsight/oseo-server/mapping"
	"github.com/earthsight/oseo-server/metadata/models"
	"github.com/earthsight/oseo-server/protocol"
	"github.com/earthsight/oseo-server/soap"
)

// getStatus reports one order by id or searches the caller's orders by
// filtering criteria. Callers only ever see their own orders.
func (h AppServer) getStatus(ctx context.Context, msg *soap.Message) ([]byte, *protocol.OseoError) {
	user, _ := UserFromContext(ctx)

	var request protocol.GetStatus
	if err := xml.Unmarshal(msg.Payload, &request); err != nil {
		return nil, protocol.NewClientError(protocol.ExceptionInvalidRequest, "malformed GetStatus request", "")
	}

	presentation := request.Presentation
	if presentation == "" {
		presentation = protocol.PresentationBrief
	}
	if presentation != protocol.PresentationBrief && presentation != protocol.PresentationFull {
		return nil, protocol.NewClientError(protocol.ExceptionInvalidParameterValue,
			"unsupported presentation "+presentation, "presentation")
	}
	full := presentation == protocol.PresentationFull

	var orders []models.Order
	if request.OrderID != "" {
		order, oerr := h.fetchOwnOrder(request.OrderID, user)
		if oerr != nil {
			return nil, oerr
		}
		if full && order.OrderType != models.OrderTypeProduct && order.OrderType != models.OrderTypeMassive {
			return nil, protocol.NewClientError(protocol.ExceptionOperationNotSupported,
				"full presentation is only available for product orders", "presentation")
		}
		orders = []models.Order{order}
	} else {
		filter := dao.OrderFilter{UserID: user.ID}
		if request.FilteringCriteria != nil {
			var oerr *protocol.OseoError
			filter, oerr = searchFilter(user.ID, request.FilteringCriteria)
			if oerr != nil {
				return nil, oerr
			}
		}
		var err error
		orders, err = h.RootDAO.SearchOrders(filter)
		if err != nil {
			return nil, protocol.NewServerError(protocol.ExceptionNoApplicableCode, "could not search orders", err)
		}
	}

	response := protocol.GetStatusResponse{Status: protocol.StatusSuccess}
	for _, order := range orders {
		// item breakdown only makes sense for product orders; a massive
		// order's public face is a product order without items
		includeItems := full &&
			order.OrderType == models.OrderTypeProduct
		response.OrderMonitorSpecification = append(response.OrderMonitorSpecification,
			mapping.OrderToMonitor(order, h.Ordering.MassiveOrderReference, includeItems))
	}

	payload, err := xml.Marshal(response)
	if err != nil {
		return nil, protocol.NewServerError(protocol.ExceptionNoApplicableCode, "could not serialise status", err)
	}
	return payload, nil
}

// fetchOwnOrder loads an order by its textual id and verifies ownership.
func (h AppServer) fetchOwnOrder(orderID string, user models.OseoUser) (models.Order, *protocol.OseoError) {
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return models.Order{}, protocol.NewClientError(protocol.ExceptionInvalidOrderIdentifier,
			"orderId "+orderID+" is not a valid order identifier", "orderId")
	}
	order, err := h.RootDAO.GetOrder(id)
	if err == dao.ErrNoRows {
		return models.Order{}, protocol.NewClientError(protocol.ExceptionInvalidOrderIdentifier,
			"no order with id "+orderID, "orderId")
	}
	if err != nil {
		return models.Order{}, protocol.NewServerError(protocol.ExceptionNoApplicableCode, "could not load order", err)
	}
	if order.UserID != user.ID {
		return models.Order{}, protocol.NewClientError(protocol.ExceptionAuthorizationFailed,
			"order "+orderID+" belongs to another user", "orderId")
	}
	return order, nil
}

func searchFilter(userID int64, fc *protocol.FilteringCriteria) (dao.OrderFilter, *protocol.OseoError) {
	filter := dao.OrderFilter{UserID: userID}
	if fc.LastUpdate != "" {
		t, err := parseFilterTime(fc.LastUpdate)
		if err != nil {
			return filter, protocol.NewClientError(protocol.ExceptionInvalidParameterValue,
				"cannot parse lastUpdate "+fc.LastUpdate, "lastUpdate")
		}
		filter.LastUpdate = models.ToNullTime(t)
	}
	if fc.LastUpdateEnd != "" {
		t, err := parseFilterTime(fc.LastUpdateEnd)
		if err != nil {
			return filter, protocol.NewClientError(protocol.ExceptionInvalidParameterValue,
				"cannot parse lastUpdateEnd "+fc.LastUpdateEnd, "lastUpdateEnd")
		}
		filter.LastUpdateEnd = models.ToNullTime(t)
	}
	if fc.OrderReference != "" {
		filter.Reference = models.ToNullString(fc.OrderReference)
	}
	for _, s := range fc.OrderStatus {
		status := models.Status(s)
		if !status.Valid() {
			return filter, protocol.NewClientError(protocol.ExceptionInvalidParameterValue,
				"unknown order status "+s, "orderStatus")
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	return filter, nil
}

// parseFilterTime accepts a full timestamp or a bare date.
func parseFilterTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}
