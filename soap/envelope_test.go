package soap

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payload = `<GetStatus xmlns="http://www.opengis.net/oseo/1.0"><orderId>1</orderId></GetStatus>`

func TestDecodeSoap11(t *testing.T) {
	raw := `<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/">` +
		`<soap:Header><wsse:Security xmlns:wsse="x"><t/></wsse:Security></soap:Header>` +
		`<soap:Body>` + payload + `</soap:Body></soap:Envelope>`

	msg, err := Decode([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, Version11, msg.Version)
	assert.Equal(t, payload, string(msg.Payload))
	assert.Contains(t, string(msg.Header), "Security")
}

func TestDecodeSoap12(t *testing.T) {
	raw := `<env:Envelope xmlns:env="http://www.w3.org/2003/05/soap-envelope">` +
		`<env:Body>` + payload + `</env:Body></env:Envelope>`

	msg, err := Decode([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, Version12, msg.Version)
	assert.Equal(t, payload, string(msg.Payload))
	assert.Empty(t, msg.Header)
}

func TestDecodePlain(t *testing.T) {
	msg, err := Decode([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, VersionNone, msg.Version)
	assert.Equal(t, payload, string(msg.Payload))
}

func TestDecodeMalformed(t *testing.T) {
	_, err := Decode([]byte("this is not xml"))
	assert.Equal(t, ErrMalformed, err)

	_, err = Decode([]byte(`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body></soap:Body></soap:Envelope>`))
	assert.Equal(t, ErrEmptyBody, err)
}

func TestRootElement(t *testing.T) {
	name, err := RootElement([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, "GetStatus", name.Local)
	assert.Equal(t, "http://www.opengis.net/oseo/1.0", name.Space)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/soap+xml", ContentType(Version12))
	assert.Equal(t, "text/xml", ContentType(Version11))
	assert.Equal(t, "application/xml", ContentType(VersionNone))
}

func TestEncodeRoundTrip(t *testing.T) {
	for _, v := range []Version{Version11, Version12} {
		wrapped := Encode(v, []byte(payload))
		msg, err := Decode(wrapped)
		require.NoError(t, err)
		assert.Equal(t, v, msg.Version)
		assert.Equal(t, payload, string(msg.Payload))
	}
	assert.Equal(t, xml.Header+payload, string(Encode(VersionNone, []byte(payload))))
}

func TestEncodeFault12(t *testing.T) {
	report := []byte(`<ows:ExceptionReport xmlns:ows="http://www.opengis.net/ows/2.0"/>`)
	out := string(EncodeFault(Version12, "order not found", report, false))
	assert.Contains(t, out, "<soap:Value>soap:Sender</soap:Value>")
	assert.Contains(t, out, `<soap:Text xml:lang="en">order not found</soap:Text>`)
	assert.Contains(t, out, "ExceptionReport")

	out = string(EncodeFault(Version12, "boom", report, true))
	assert.Contains(t, out, "soap:Receiver")
}

func TestEncodeFault11(t *testing.T) {
	report := []byte(`<ows:ExceptionReport xmlns:ows="http://www.opengis.net/ows/2.0"/>`)
	out := string(EncodeFault(Version11, "bad & worse", report, false))
	assert.Contains(t, out, "<faultcode>soap:Client</faultcode>")
	assert.Contains(t, out, "<faultstring>bad &amp; worse</faultstring>")

	out = string(EncodeFault(Version11, "boom", report, true))
	assert.Contains(t, out, "<faultcode>soap:Server</faultcode>")
}

func TestEncodeFaultPlain(t *testing.T) {
	report := []byte(`<ows:ExceptionReport xmlns:ows="http://www.opengis.net/ows/2.0"/>`)
	out := string(EncodeFault(VersionNone, "ignored", report, false))
	assert.True(t, strings.HasSuffix(out, string(report)))
	assert.NotContains(t, out, "Fault")
}
