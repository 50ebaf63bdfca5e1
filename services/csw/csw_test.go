package csw

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gmdResponse = `<?xml version="1.0" encoding="UTF-8"?>
<csw:GetRecordByIdResponse xmlns:csw="http://www.opengis.net/cat/csw/2.0.2"
    xmlns:gmd="http://www.isotc211.org/2005/gmd"
    xmlns:gco="http://www.isotc211.org/2005/gco">
  <gmd:MD_Metadata>
    <gmd:parentIdentifier>
      <gco:CharacterString>dummy_collection_id</gco:CharacterString>
    </gmd:parentIdentifier>
  </gmd:MD_Metadata>
</csw:GetRecordByIdResponse>`

func TestResolveCollection(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "POST", r.Method)
		body := make([]byte, r.ContentLength)
		r.Body.Read(body)
		assert.Contains(t, string(body), "GetRecordById")
		assert.Contains(t, string(body), "<csw:Id>img-1</csw:Id>")
		assert.Contains(t, string(body), "summary")
		fmt.Fprint(w, gmdResponse)
	}))
	defer srv.Close()

	client := NewClient()
	collectionID, err := client.ResolveCollection(context.Background(), srv.URL, "img-1")
	require.NoError(t, err)
	assert.Equal(t, "dummy_collection_id", collectionID)

	// second resolution is served from the cache
	collectionID, err = client.ResolveCollection(context.Background(), srv.URL, "img-1")
	require.NoError(t, err)
	assert.Equal(t, "dummy_collection_id", collectionID)
	assert.Equal(t, 1, calls)
}

func TestResolveCollectionNotResolved(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<csw:GetRecordByIdResponse xmlns:csw="http://www.opengis.net/cat/csw/2.0.2"/>`)
	}))
	defer srv.Close()

	client := NewClient()
	_, err := client.ResolveCollection(context.Background(), srv.URL, "unknown")
	assert.Equal(t, ErrNotResolved, err)
}

func TestResolveCollectionHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "broken", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient()
	_, err := client.ResolveCollection(context.Background(), srv.URL, "img-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestResolveCollectionTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, gmdResponse)
	}))
	defer srv.Close()

	client := NewClient(WithTimeout(20 * time.Millisecond))
	_, err := client.ResolveCollection(context.Background(), srv.URL, "img-1")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "querying") || strings.Contains(err.Error(), "deadline"))
}
