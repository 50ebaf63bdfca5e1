package server

import (
	"context"
	"encoding/xml"
	"strconv"

	"github.com/earthsight/oseo-server/dao"
	"github.com/earthsight/oseo-server/protocol"
	"github.com/earthsight/oseo-server/soap"
)

// cancel requests cancellation of an order. Orders not yet in production are
// cancelled immediately; in-production orders get the cancel flag set and
// finish cooperatively. Cancelling a cancelled order acknowledges again.
func (h AppServer) cancel(ctx context.Context, msg *soap.Message) ([]byte, *protocol.OseoError) {
	user, _ := UserFromContext(ctx)

	var request protocol.Cancel
	if err := xml.Unmarshal(msg.Payload, &request); err != nil {
		return nil, protocol.NewClientError(protocol.ExceptionInvalidRequest, "malformed Cancel request", "")
	}

	order, oerr := h.fetchOwnOrder(request.OrderID, user)
	if oerr != nil {
		return nil, oerr
	}

	cancelled, err := h.RootDAO.CancelOrder(order.ID)
	if err == dao.ErrTerminalOrder {
		return nil, protocol.NewClientError(protocol.ExceptionInvalidOrderIdentifier,
			"order "+request.OrderID+" has already finished", "orderId")
	}
	if err != nil {
		return nil, protocol.NewServerError(protocol.ExceptionNoApplicableCode, "could not cancel order", err)
	}

	ack := protocol.CancelAck{
		Status:  protocol.StatusSuccess,
		OrderID: strconv.FormatInt(cancelled.ID, 10),
	}
	payload, err := xml.Marshal(ack)
	if err != nil {
		return nil, protocol.NewServerError(protocol.ExceptionNoApplicableCode, "could not serialise acknowledgement", err)
	}
	return payload, nil
}
