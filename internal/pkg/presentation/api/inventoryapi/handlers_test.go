package inventoryapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diwise/inventory/internal/pkg/application/gateway"
	"github.com/diwise/inventory/pkg/inventory"
	"github.com/diwise/inventory/pkg/storage/client"
	"github.com/diwise/inventory/pkg/storage/storagetest"
	"github.com/go-chi/chi/v5"
	"github.com/matryer/is"
)

func TestCreateAndRetrieveItem(t *testing.T) {
	is, ts, s := setupTest(t)
	defer ts.Close()
	defer s.Close()

	resp, _ := newTestRequest(is, ts, s, http.MethodPost, ItemsPath, bytes.NewBufferString(itemJSON))
	is.Equal(resp.StatusCode, http.StatusCreated) // Check status code

	location := resp.Header.Get("Location")
	is.True(strings.HasPrefix(location, ts.URL+ItemsPath+"/"))

	resp, body := newTestRequest(is, ts, s, http.MethodGet, strings.TrimPrefix(location, ts.URL), nil)
	is.Equal(resp.StatusCode, http.StatusOK)

	item := map[string]any{}
	is.NoErr(json.Unmarshal([]byte(body), &item))

	is.Equal(item["materialType"], map[string]any{"id": "book", "name": "Book"})
	is.Equal(item["permanentLocation"], map[string]any{"id": "main-library", "name": "Main Library"})
	is.Equal(item["links"], map[string]any{"self": location})
}

func TestRetrieveMissingItemIsNotFound(t *testing.T) {
	is, ts, s := setupTest(t)
	defer ts.Close()
	defer s.Close()

	resp, _ := newTestRequest(is, ts, s, http.MethodGet, ItemsPath+"/missing", nil)
	is.Equal(resp.StatusCode, http.StatusNotFound)
}

func TestCreateItemWithDuplicateBarcodeIsBadRequest(t *testing.T) {
	is, ts, s := setupTest(t)
	defer ts.Close()
	defer s.Close()

	resp, _ := newTestRequest(is, ts, s, http.MethodPost, ItemsPath, bytes.NewBufferString(itemJSON))
	is.Equal(resp.StatusCode, http.StatusCreated)

	resp, body := newTestRequest(is, ts, s, http.MethodPost, ItemsPath, bytes.NewBufferString(itemJSON))
	is.Equal(resp.StatusCode, http.StatusBadRequest)
	is.True(strings.Contains(body, "Barcode must be unique, 645398607547 is already assigned to another item"))
}

func TestQueryItemsWithNonNumericPagingIsBadRequest(t *testing.T) {
	is, ts, s := setupTest(t)
	defer ts.Close()
	defer s.Close()

	resp, body := newTestRequest(is, ts, s, http.MethodGet, ItemsPath+"?limit=ten", nil)
	is.Equal(resp.StatusCode, http.StatusBadRequest)
	is.True(strings.Contains(body, "limit and offset must be numeric when supplied"))
}

func TestQueryItemsPagesThroughStorage(t *testing.T) {
	is, ts, s := setupTest(t)
	defer ts.Close()
	defer s.Close()

	is.NoErr(s.Seed(storagetest.ItemsPath,
		map[string]any{"id": "1", "title": "Nod", "materialTypeId": "book"},
		map[string]any{"id": "2", "title": "Uprooted", "materialTypeId": "book"},
		map[string]any{"id": "3", "title": "Long Way Down", "materialTypeId": "book"},
	))

	resp, body := newTestRequest(is, ts, s, http.MethodGet, ItemsPath+"?limit=2&offset=1", nil)
	is.Equal(resp.StatusCode, http.StatusOK)

	result := struct {
		Items []struct {
			Title        string              `json:"title"`
			MaterialType inventory.Reference `json:"materialType"`
		} `json:"items"`
		TotalRecords int `json:"totalRecords"`
	}{}
	is.NoErr(json.Unmarshal([]byte(body), &result))

	is.Equal(result.TotalRecords, 3)
	is.Equal(len(result.Items), 2)
	is.Equal(result.Items[0].Title, "Uprooted")
	is.Equal(result.Items[1].MaterialType.Name, "Book")
	is.Equal(s.RequestCount(storagetest.MaterialTypesPath+"/book"), 1)
}

func TestStorageFailureIsRelayed(t *testing.T) {
	is, ts, s := setupTest(t)
	defer ts.Close()
	defer s.Close()

	s.Fail(storagetest.ItemsPath+"/broken", http.StatusServiceUnavailable)

	resp, body := newTestRequest(is, ts, s, http.MethodGet, ItemsPath+"/broken", nil)
	is.Equal(resp.StatusCode, http.StatusServiceUnavailable)
	is.Equal(resp.Header.Get("Content-Type"), "text/plain")
	is.Equal(body, "Service Unavailable")
}

func TestCreateInstanceWithoutTitleIsBadRequest(t *testing.T) {
	is, ts, s := setupTest(t)
	defer ts.Close()
	defer s.Close()

	resp, body := newTestRequest(is, ts, s, http.MethodPost, InstancesPath, bytes.NewBufferString(`{"source":"Local"}`))
	is.Equal(resp.StatusCode, http.StatusBadRequest)
	is.True(strings.Contains(body, "Title must be provided for an instance"))
}

func TestUpdateAndDeleteInstance(t *testing.T) {
	is, ts, s := setupTest(t)
	defer ts.Close()
	defer s.Close()

	resp, _ := newTestRequest(is, ts, s, http.MethodPost, InstancesPath, bytes.NewBufferString(instanceJSON))
	is.Equal(resp.StatusCode, http.StatusCreated)
	path := strings.TrimPrefix(resp.Header.Get("Location"), ts.URL)

	resp, _ = newTestRequest(is, ts, s, http.MethodPut, path, bytes.NewBufferString(`{"title":"Uprooted (paperback)"}`))
	is.Equal(resp.StatusCode, http.StatusNoContent)

	resp, body := newTestRequest(is, ts, s, http.MethodGet, path, nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.True(strings.Contains(body, `"title":"Uprooted (paperback)"`))

	resp, _ = newTestRequest(is, ts, s, http.MethodDelete, path, nil)
	is.Equal(resp.StatusCode, http.StatusNoContent)

	resp, _ = newTestRequest(is, ts, s, http.MethodGet, path, nil)
	is.Equal(resp.StatusCode, http.StatusNotFound)
}

func TestServeInstanceContext(t *testing.T) {
	is, ts, s := setupTest(t)
	defer ts.Close()
	defer s.Close()

	resp, body := newTestRequest(is, ts, s, http.MethodGet, InstancesPath+"/context", nil)
	is.Equal(resp.StatusCode, http.StatusOK)
	is.Equal(body, `{"@context":{"dcterms":"http://purl.org/dc/terms/","title":"dcterms:title"}}`)
}

func TestCreateItemWithWrongContentTypeReturnsUnsupportedMediaType(t *testing.T) {
	is, ts, s := setupTest(t)
	defer ts.Close()
	defer s.Close()

	req, _ := http.NewRequest(http.MethodPost, ts.URL+ItemsPath, bytes.NewBufferString(itemJSON))
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")
	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err) // http request failed
	defer resp.Body.Close()

	is.Equal(resp.StatusCode, http.StatusUnsupportedMediaType) // Check status code
}

func newTestRequest(is *is.I, ts *httptest.Server, s *storagetest.Server, method, path string, body io.Reader) (*http.Response, string) {
	req, _ := http.NewRequest(method, ts.URL+path, body)
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add(client.TenantHeader, "diku")
	req.Header.Add(client.TokenHeader, "token")
	req.Header.Add(client.StorageURLHeader, s.URL())

	resp, err := http.DefaultClient.Do(req)
	is.NoErr(err) // http request failed
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	return resp, string(respBody)
}

func setupTest(t *testing.T) (*is.I, *httptest.Server, *storagetest.Server) {
	is := is.New(t)
	ctx := context.Background()

	s := storagetest.NewServer()
	is.NoErr(s.Seed(storagetest.MaterialTypesPath, inventory.Reference{ID: "book", Name: "Book"}))
	is.NoErr(s.Seed(storagetest.LocationsPath, inventory.Reference{ID: "main-library", Name: "Main Library"}))

	app, err := gateway.New(ctx, gateway.Config{})
	is.NoErr(err)

	r := chi.NewRouter()
	RegisterHandlers(ctx, r, app)

	return is, httptest.NewServer(r), s
}

const itemJSON string = `{
	"title": "Nod",
	"barcode": "645398607547",
	"status": {"name": "Available"},
	"materialType": {"id": "book"},
	"permanentLoanType": {"id": "can-circulate"},
	"permanentLocation": {"id": "main-library"}
}`

const instanceJSON string = `{
	"title": "Uprooted",
	"identifiers": [{"identifierTypeId": "isbn", "value": "9781447294146"}]
}`
