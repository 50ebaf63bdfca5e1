package server

import (
	"context"
	"encoding/xml"

	"github.com/earthsight/oseo-server/mapping"
	"github.com/earthsight/oseo-server/protocol"
	"github.com/earthsight/oseo-server/soap"
)

// getCapabilities renders the capabilities document from the live ordering
// registry, so the advertised order types and protocols always match what
// Submit would accept.
func (h AppServer) getCapabilities(ctx context.Context, msg *soap.Message) ([]byte, *protocol.OseoError) {
	var request protocol.GetCapabilities
	if err := xml.Unmarshal(msg.Payload, &request); err != nil {
		return nil, protocol.NewClientError(protocol.ExceptionInvalidRequest, "malformed GetCapabilities request", "")
	}

	capabilities := mapping.CapabilitiesDocument(h.Ordering)
	payload, err := xml.Marshal(capabilities)
	if err != nil {
		return nil, protocol.NewServerError(protocol.ExceptionNoApplicableCode, "could not serialise capabilities", err)
	}
	return payload, nil
}
