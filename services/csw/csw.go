// Package csw implements the OGC CSW 2.0.2 client used to resolve a product
// identifier to the collection it belongs to.
package csw

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/karlseguin/ccache/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Error is our error type.
type Error string

func (e Error) Error() string { return string(e) }

// ErrNotResolved is returned when the catalogue record does not yield a
// parent collection identifier.
const ErrNotResolved = Error("csw: record has no parent identifier")

const (
	namespaceCSW = "http://www.opengis.net/cat/csw/2.0.2"
	namespaceGMD = "http://www.isotc211.org/2005/gmd"
	namespaceGCO = "http://www.isotc211.org/2005/gco"
)

// Client queries CSW catalogues for record metadata. Resolutions are cached
// because catalogue records are immutable for practical purposes.
type Client struct {
	httpClient *http.Client
	cache      *ccache.Cache
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// Opt sets an option on a Client.
type Opt func(*Client)

// WithLogger sets a custom logger on a Client.
func WithLogger(logger *zap.Logger) Opt {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout overrides the default 30 second per-call deadline.
func WithTimeout(d time.Duration) Opt {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// NewClient constructs a Client with defaults and options.
func NewClient(opts ...Opt) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cache:      ccache.New(ccache.Configure().MaxSize(5000).ItemsToPrune(100)),
		cacheTTL:   time.Hour,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type getRecordByIDResponse struct {
	XMLName  xml.Name `xml:"GetRecordByIdResponse"`
	Metadata struct {
		ParentIdentifier struct {
			CharacterString string `xml:"CharacterString"`
		} `xml:"parentIdentifier"`
	} `xml:"MD_Metadata"`
}

// ResolveCollection queries a catalogue endpoint with GetRecordById and
// returns the collection identifier of the record's parent dataset series.
func (c *Client) ResolveCollection(ctx context.Context, endpoint, identifier string) (string, error) {
	cacheKey := endpoint + "|" + identifier
	if item := c.cache.Get(cacheKey); item != nil && !item.Expired() {
		return item.Value().(string), nil
	}

	body := buildGetRecordByID(identifier)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "csw: building request")
	}
	req.Header.Set("Content-Type", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "csw: querying %s", endpoint)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(ioutil.Discard, resp.Body)
		return "", errors.Errorf("csw: %s returned status %d", endpoint, resp.StatusCode)
	}

	raw, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "csw: reading response")
	}

	var parsed getRecordByIDResponse
	if err := xml.Unmarshal(raw, &parsed); err != nil {
		return "", errors.Wrap(err, "csw: parsing response")
	}

	collectionID := parsed.Metadata.ParentIdentifier.CharacterString
	if collectionID == "" {
		c.logger.Info("csw record did not resolve",
			zap.String("endpoint", endpoint), zap.String("identifier", identifier))
		return "", ErrNotResolved
	}

	c.cache.Set(cacheKey, collectionID, c.cacheTTL)
	return collectionID, nil
}

func buildGetRecordByID(identifier string) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	fmt.Fprintf(&buf, `<csw:GetRecordById xmlns:csw=%q service="CSW" version="2.0.2" outputSchema=%q>`,
		namespaceCSW, namespaceGMD)
	fmt.Fprintf(&buf, `<csw:Id>%s</csw:Id>`, xmlEscape(identifier))
	buf.WriteString(`<csw:ElementSetName>summary</csw:ElementSetName>`)
	buf.WriteString(`</csw:GetRecordById>`)
	return buf.Bytes()
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
