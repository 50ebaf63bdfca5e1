// Package soap detects and strips SOAP 1.1 and 1.2 envelopes from incoming
// requests, and wraps typed responses and faults in an envelope matching the
// request version. Plain (unenveloped) XML passes through unchanged.
package soap

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// Version identifies the envelope of a request.
type Version int

// Envelope versions.
const (
	VersionNone Version = iota
	Version11
	Version12
)

// Envelope namespaces.
const (
	Namespace11 = "http://schemas.xmlsoap.org/soap/envelope/"
	Namespace12 = "http://www.w3.org/2003/05/soap-envelope"
)

// Decoding errors.
var (
	ErrMalformed = errors.New("soap: malformed xml")
	ErrEmptyBody = errors.New("soap: envelope has an empty body")
)

// Message is a decoded request: the envelope version, the raw XML of the
// payload element and, for enveloped requests, the raw inner XML of the
// Header element.
type Message struct {
	Version Version
	Payload []byte
	Header  []byte
}

type envelope struct {
	Header innerXML `xml:"Header"`
	Body   innerXML `xml:"Body"`
}

type innerXML struct {
	Inner []byte `xml:",innerxml"`
}

// Decode parses raw request bytes into a Message. The envelope version is
// taken from the namespace of the document root.
func Decode(raw []byte) (*Message, error) {
	root, err := RootElement(raw)
	if err != nil {
		return nil, ErrMalformed
	}

	var version Version
	switch {
	case root.Local == "Envelope" && root.Space == Namespace12:
		version = Version12
	case root.Local == "Envelope" && root.Space == Namespace11:
		version = Version11
	default:
		return &Message{Version: VersionNone, Payload: raw}, nil
	}

	var env envelope
	if err := xml.Unmarshal(raw, &env); err != nil {
		return nil, ErrMalformed
	}
	payload := bytes.TrimSpace(env.Body.Inner)
	if len(payload) == 0 {
		return nil, ErrEmptyBody
	}
	return &Message{
		Version: version,
		Payload: payload,
		Header:  bytes.TrimSpace(env.Header.Inner),
	}, nil
}

// RootElement returns the name of the first element of an XML document.
func RootElement(raw []byte) (xml.Name, error) {
	decoder := xml.NewDecoder(bytes.NewReader(raw))
	for {
		token, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				return xml.Name{}, ErrMalformed
			}
			return xml.Name{}, err
		}
		if start, ok := token.(xml.StartElement); ok {
			return start.Name, nil
		}
	}
}

// ContentType returns the response content type for an envelope version.
func ContentType(v Version) string {
	switch v {
	case Version12:
		return "application/soap+xml"
	case Version11:
		return "text/xml"
	default:
		return "application/xml"
	}
}

// Encode wraps a serialised response payload in an envelope matching the
// request version.
func Encode(v Version, payload []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	switch v {
	case Version12:
		fmt.Fprintf(&buf, `<soap:Envelope xmlns:soap=%q><soap:Body>`, Namespace12)
		buf.Write(payload)
		buf.WriteString(`</soap:Body></soap:Envelope>`)
	case Version11:
		fmt.Fprintf(&buf, `<soap:Envelope xmlns:soap=%q><soap:Body>`, Namespace11)
		buf.Write(payload)
		buf.WriteString(`</soap:Body></soap:Envelope>`)
	default:
		buf.Write(payload)
	}
	return buf.Bytes()
}

// EncodeFault wraps a serialised exception report in a soap Fault of the
// given version. serverFault selects the Receiver/Server fault role over
// Sender/Client. For plain requests the report is returned bare.
func EncodeFault(v Version, reason string, report []byte, serverFault bool) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	switch v {
	case Version12:
		code := "soap:Sender"
		if serverFault {
			code = "soap:Receiver"
		}
		fmt.Fprintf(&buf, `<soap:Envelope xmlns:soap=%q><soap:Body><soap:Fault>`, Namespace12)
		fmt.Fprintf(&buf, `<soap:Code><soap:Value>%s</soap:Value></soap:Code>`, code)
		fmt.Fprintf(&buf, `<soap:Reason><soap:Text xml:lang="en">%s</soap:Text></soap:Reason>`, xmlEscape(reason))
		buf.WriteString(`<soap:Detail>`)
		buf.Write(report)
		buf.WriteString(`</soap:Detail>`)
		buf.WriteString(`</soap:Fault></soap:Body></soap:Envelope>`)
	case Version11:
		code := "soap:Client"
		if serverFault {
			code = "soap:Server"
		}
		fmt.Fprintf(&buf, `<soap:Envelope xmlns:soap=%q><soap:Body><soap:Fault>`, Namespace11)
		fmt.Fprintf(&buf, `<faultcode>%s</faultcode>`, code)
		fmt.Fprintf(&buf, `<faultstring>%s</faultstring>`, xmlEscape(reason))
		buf.WriteString(`<detail>`)
		buf.Write(report)
		buf.WriteString(`</detail>`)
		buf.WriteString(`</soap:Fault></soap:Body></soap:Envelope>`)
	default:
		buf.Write(report)
	}
	return buf.Bytes()
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
