package server

import (
	"context"
	"encoding/xml"
	"time"

	"github.com/earthsight/oseo-server/mapping"
	"github.com/earthsight/oseo-server/metadata/models"
	"github.com/earthsight/oseo-server/protocol"
	"github.com/earthsight/oseo-server/soap"
)

// describeResultAccess reports the retrieval URLs of an order's produced
// files. The allReady sub-function lists everything currently retrievable,
// nextReady only what became retrievable since the previous call.
func (h AppServer) describeResultAccess(ctx context.Context, msg *soap.Message) ([]byte, *protocol.OseoError) {
	user, _ := UserFromContext(ctx)

	var request protocol.DescribeResultAccess
	if err := xml.Unmarshal(msg.Payload, &request); err != nil {
		return nil, protocol.NewClientError(protocol.ExceptionInvalidRequest, "malformed DescribeResultAccess request", "")
	}

	subFunction := request.SubFunction
	if subFunction == "" {
		subFunction = protocol.SubFunctionAllReady
	}
	if subFunction != protocol.SubFunctionAllReady && subFunction != protocol.SubFunctionNextReady {
		return nil, protocol.NewClientError(protocol.ExceptionInvalidParameterValue,
			"unsupported subFunction "+subFunction, "subFunction")
	}

	order, oerr := h.fetchOwnOrder(request.OrderID, user)
	if oerr != nil {
		return nil, oerr
	}

	var since time.Time
	if subFunction == protocol.SubFunctionNextReady && order.LastDescribeResultAccessRequest.Valid {
		since = order.LastDescribeResultAccessRequest.Time
	}

	now := time.Now()
	response := protocol.DescribeResultAccessResponse{Status: protocol.StatusSuccess}
	for _, item := range order.Items {
		if item.Status != models.StatusCompleted && item.Status != models.StatusDownloaded {
			continue
		}
		// nextReady keeps items completed at or after the previous call
		if !since.IsZero() && item.CompletedOn.Valid && item.CompletedOn.Time.Before(since) {
			continue
		}
		for _, file := range item.Files {
			if !file.Available {
				continue
			}
			if file.ExpiresOn.Valid && !file.ExpiresOn.Time.After(now) {
				continue
			}
			url := h.retrievalURL(order.Username, item, file)
			entry := protocol.ItemURL{ItemID: item.ItemID, ProductURL: url}
			if file.ExpiresOn.Valid {
				entry.ExpirationDate = mapping.FormatTime(file.ExpiresOn.Time)
			}
			response.ItemURL = append(response.ItemURL, entry)
		}
	}

	if err := h.RootDAO.SetLastDescribeResultAccessRequest(order.ID, now); err != nil {
		return nil, protocol.NewServerError(protocol.ExceptionNoApplicableCode, "could not record request time", err)
	}

	payload, err := xml.Marshal(response)
	if err != nil {
		return nil, protocol.NewServerError(protocol.ExceptionNoApplicableCode, "could not serialise result access", err)
	}
	return payload, nil
}

// retrievalURL turns a stored server-relative file URL into an absolute one.
// Files delivered over ftp point at the ftp host, everything else at this
// server's external address.
func (h AppServer) retrievalURL(username string, item models.OrderItem, file models.OseoFile) string {
	for _, d := range item.DeliveryOptions {
		if d.Kind == models.DeliveryKindOnlineDataAccess && d.Protocol.String == "ftp" {
			return "ftp://" + username + "@" + h.Ordering.FTPHost + "/" + file.URL
		}
	}
	return h.Conf.ExternalScheme + "://" + h.Conf.ExternalHost + h.ServicePrefix + "/" + file.URL
}
