package server

import (
	"context"
	"encoding/xml"

	"github.com/earthsight/oseo-server/mapping"
	"github.com/earthsight/oseo-server/protocol"
	"github.com/earthsight/oseo-server/soap"
)

// getOptions reports the ordering options of a collection. The identifier
// and taskingRequestId selectors are not offered by this server.
func (h AppServer) getOptions(ctx context.Context, msg *soap.Message) ([]byte, *protocol.OseoError) {
	var request protocol.GetOptions
	if err := xml.Unmarshal(msg.Payload, &request); err != nil {
		return nil, protocol.NewClientError(protocol.ExceptionInvalidRequest, "malformed GetOptions request", "")
	}

	if request.Identifier != "" {
		return nil, protocol.NewClientError(protocol.ExceptionOperationNotSupported,
			"GetOptions by product identifier is not supported", "identifier")
	}
	if request.TaskingRequestID != "" {
		return nil, protocol.NewClientError(protocol.ExceptionOperationNotSupported,
			"GetOptions by tasking request is not supported", "taskingRequestId")
	}
	if request.CollectionID == "" {
		return nil, protocol.NewClientError(protocol.ExceptionInvalidRequest,
			"GetOptions requires a collectionId", "collectionId")
	}

	collection, ok := h.Ordering.CollectionByID(request.CollectionID)
	if !ok {
		return nil, protocol.NewClientError(protocol.ExceptionUnsupportedCollection,
			"unknown collection "+request.CollectionID, "collectionId")
	}

	response := protocol.GetOptionsResponse{
		Status:       protocol.StatusSuccess,
		OrderOptions: mapping.CollectionOrderOptions(h.Ordering, collection),
	}
	payload, err := xml.Marshal(response)
	if err != nil {
		return nil, protocol.NewServerError(protocol.ExceptionNoApplicableCode, "could not serialise options", err)
	}
	return payload, nil
}
