package server

import (
	"context"
	"encoding/xml"
	"io"
	"io/ioutil"
	"net/http"

	"go.uber.org/zap"

	"github.com/earthsight/oseo-server/protocol"
	"github.com/earthsight/oseo-server/soap"
)

// maxRequestBytes bounds the size of an accepted request document.
const maxRequestBytes = 4 << 20

// operationHandler processes one decoded request payload and returns the
// serialised response payload.
type operationHandler func(ctx context.Context, msg *soap.Message) ([]byte, *protocol.OseoError)

// postOseo is the single service endpoint. It decodes the optional SOAP
// envelope, authenticates the caller, dispatches on the payload root element
// and encodes the response or fault in the same envelope version.
func (h AppServer) postOseo(ctx context.Context, w http.ResponseWriter, r *http.Request) *AppError {
	logger := LoggerFromContext(ctx)

	raw, err := ioutil.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		return NewAppError(400, err, "could not read request body")
	}

	msg, err := soap.Decode(raw)
	if err != nil {
		oerr := protocol.NewClientError(protocol.ExceptionInvalidRequest, err.Error(), "")
		h.sendFault(logger, w, soap.VersionNone, "request", oerr)
		return nil
	}

	principal, err := h.Authenticator.Authenticate(msg)
	if err != nil {
		oerr := protocol.NewClientError(protocol.ExceptionAuthenticationFailed, err.Error(), "")
		h.sendFault(logger, w, msg.Version, "authenticate", oerr)
		return nil
	}
	ctx = ContextWithPrincipal(ctx, principal)

	user, err := h.FetchUser(principal)
	if err != nil {
		oerr := protocol.NewServerError(protocol.ExceptionNoApplicableCode, "could not load user", err)
		h.sendFault(logger, w, msg.Version, "authenticate", oerr)
		return nil
	}
	ctx = ContextWithUser(ctx, user)

	root, err := soap.RootElement(msg.Payload)
	if err != nil {
		oerr := protocol.NewClientError(protocol.ExceptionInvalidRequest, "request payload is not well-formed xml", "")
		h.sendFault(logger, w, msg.Version, "request", oerr)
		return nil
	}
	if root.Space != protocol.NamespaceOSEO {
		oerr := protocol.NewClientError(protocol.ExceptionInvalidRequest,
			"request element is not in the oseo namespace", root.Local)
		h.sendFault(logger, w, msg.Version, root.Local, oerr)
		return nil
	}

	var handler operationHandler
	switch root.Local {
	case protocol.OpGetCapabilities:
		handler = h.getCapabilities
	case protocol.OpGetOptions:
		handler = h.getOptions
	case protocol.OpSubmit:
		handler = h.submit
	case protocol.OpGetStatus:
		handler = h.getStatus
	case protocol.OpDescribeResultAccess:
		handler = h.describeResultAccess
	case protocol.OpCancel:
		handler = h.cancel
	default:
		oerr := protocol.NewClientError(protocol.ExceptionOperationNotSupported,
			"unknown operation "+root.Local, root.Local)
		h.sendFault(logger, w, msg.Version, root.Local, oerr)
		return nil
	}

	payload, oerr := handler(ctx, msg)
	if oerr != nil {
		h.sendFault(logger, w, msg.Version, root.Local, oerr)
		return nil
	}

	w.Header().Set("Content-Type", soap.ContentType(msg.Version))
	w.Write(soap.Encode(msg.Version, payload))
	logger.Info("operation complete",
		zap.String("operation", root.Local),
		zap.String("principal", principal.Username),
	)
	return nil
}

// sendFault serialises an exception report into a fault matching the
// envelope version. Enveloped faults go out with HTTP 500 as SOAP over HTTP
// requires; bare reports carry 400 or 500 by fault role.
func (h AppServer) sendFault(logger *zap.Logger, w http.ResponseWriter, v soap.Version, operation string, oerr *protocol.OseoError) {
	report, err := xml.Marshal(oerr.Report())
	if err != nil {
		logger.Error("could not serialise exception report", zap.Error(err))
		http.Error(w, "internal error", 500)
		return
	}

	status := 500
	if v == soap.VersionNone && !oerr.ServerFault {
		status = 400
	}

	fields := []zap.Field{
		zap.String("operation", operation),
		zap.String("exceptionCode", oerr.Code),
		zap.String("locator", oerr.Locator),
	}
	if oerr.Cause != nil {
		fields = append(fields, zap.Error(oerr.Cause))
	}
	if oerr.ServerFault {
		logger.Error("operation fault", fields...)
	} else {
		logger.Warn("operation fault", fields...)
	}

	w.Header().Set("Content-Type", soap.ContentType(v))
	w.WriteHeader(status)
	w.Write(soap.EncodeFault(v, oerr.Text, report, oerr.ServerFault))
}
