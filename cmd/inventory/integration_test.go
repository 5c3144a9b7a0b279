package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/diwise/inventory/pkg/inventory"
	"github.com/diwise/inventory/pkg/storage/client"
	"github.com/diwise/inventory/pkg/storage/storagetest"
	testutils "github.com/diwise/service-chassis/pkg/test/http"
	"github.com/diwise/service-chassis/pkg/test/http/expects"
	"github.com/diwise/service-chassis/pkg/test/http/response"

	"github.com/matryer/is"
)

var Expects = testutils.Expects
var Returns = testutils.Returns
var method = expects.RequestMethod
var bodyContaining = expects.RequestBodyContaining

func TestIntegrateRetrieveItemWithReferences(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	s := storagetest.NewServer()
	defer s.Close()

	is.NoErr(s.Seed(storagetest.MaterialTypesPath, inventory.Reference{ID: "book", Name: "Book"}))
	is.NoErr(s.Seed(storagetest.ItemsPath, map[string]any{"id": "fd5ab5b9", "title": "Nod", "materialTypeId": "book"}))

	handler, teardown, err := initialize(ctx, testConfig(t, s.URL(), ""))
	is.NoErr(err)
	defer teardown()

	ts := httptest.NewServer(handler)
	defer ts.Close()

	resp, body := testRequest(is, ts.URL, http.MethodGet, "/inventory/items/fd5ab5b9", nil)

	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, `"materialType":{"id":"book","name":"Book"}`))
}

func TestIntegrateCreateInstanceNotifiesChange(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	s := storagetest.NewServer()
	defer s.Close()

	ms := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPost),
			bodyContaining(`"operation":"created"`),
			bodyContaining(`"type":"instance"`),
		),
		Returns(
			response.Code(http.StatusOK),
		),
	)
	defer ms.Close()

	handler, teardown, err := initialize(ctx, testConfig(t, s.URL(), ms.URL()))
	is.NoErr(err)

	ts := httptest.NewServer(handler)
	defer ts.Close()

	resp, _ := testRequest(is, ts.URL, http.MethodPost, "/inventory/instances", bytes.NewBufferString(`{"title":"Uprooted"}`))
	is.Equal(resp.StatusCode, http.StatusCreated)

	teardown()

	is.Equal(ms.RequestCount(), 1)
}

func TestIntegrateTenantConfigurationRejectsUnknownTenant(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	s := storagetest.NewServer()
	defer s.Close()

	cfg := testConfig(t, s.URL(), "")
	is.NoErr(os.WriteFile(cfg.configPath, []byte("tenants:\n  - id: branch\n"), 0644))

	handler, teardown, err := initialize(ctx, cfg)
	is.NoErr(err)
	defer teardown()

	ts := httptest.NewServer(handler)
	defer ts.Close()

	resp, body := testRequest(is, ts.URL, http.MethodGet, "/inventory/items", nil)

	is.Equal(resp.StatusCode, http.StatusNotFound)
	is.True(strings.Contains(body, `unknown tenant \"diku\"`))
	is.Equal(s.RequestCountWithPrefix("/"), 0)
}

func TestIntegrateMetricsAreExposed(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	s := storagetest.NewServer()
	defer s.Close()

	is.NoErr(s.Seed(storagetest.ItemsPath, map[string]any{"id": "1", "title": "Nod", "materialTypeId": "book"}))

	handler, teardown, err := initialize(ctx, testConfig(t, s.URL(), ""))
	is.NoErr(err)
	defer teardown()

	ts := httptest.NewServer(handler)
	defer ts.Close()

	resp, _ := testRequest(is, ts.URL, http.MethodGet, "/inventory/items", nil)
	is.Equal(resp.StatusCode, http.StatusOK)

	resp, body := testRequest(is, ts.URL, http.MethodGet, "/metrics", nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, "inventory_reference_lookups_total"))
}

func TestServeWaitsForInFlightRequests(t *testing.T) {
	is := is.New(t)

	started := make(chan struct{})
	var completed atomic.Bool

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		time.Sleep(300 * time.Millisecond)
		completed.Store(true)
		w.WriteHeader(http.StatusNoContent)
	})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	is.NoErr(err)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)

	go func() {
		served <- serve(ctx, &http.Server{Handler: handler}, listener)
	}()

	responded := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://" + listener.Addr().String() + "/slow")
		if err != nil {
			responded <- 0
			return
		}
		resp.Body.Close()
		responded <- resp.StatusCode
	}()

	<-started
	cancel()

	is.NoErr(<-served)
	is.True(completed.Load())
	is.Equal(<-responded, http.StatusNoContent)
}

func testConfig(t *testing.T, storageURL, notifierEndpoint string) AppConfig {
	return AppConfig{
		servicePort:      "0",
		storageURL:       storageURL,
		configPath:       filepath.Join(t.TempDir(), "inventory.yaml"),
		notifierEndpoint: notifierEndpoint,
		debugClient:      "false",
	}
}

func testRequest(is *is.I, baseURL, method, path string, body io.Reader) (*http.Response, string) {
	req, _ := http.NewRequest(method, baseURL+path, body)
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add(client.TenantHeader, "diku")

	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err)
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	return resp, string(respBody)
}
