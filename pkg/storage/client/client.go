package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/diwise/inventory/pkg/storage/errors"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CollectionClient issues requests against a single collection of the storage service
type CollectionClient interface {
	Get(ctx context.Context, id string) (*Response, error)
	GetAll(ctx context.Context, paging Paging) (*Response, error)
	GetByQuery(ctx context.Context, query string, paging Paging) (*Response, error)
	Create(ctx context.Context, body []byte) (*Response, error)
	Update(ctx context.Context, id string, body []byte) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) error
}

const (
	TenantHeader     string = "X-Okapi-Tenant"
	TokenHeader      string = "X-Okapi-Token"
	StorageURLHeader string = "X-Okapi-Url"
)

// Response is a storage response that the client did not treat as a failure
type Response struct {
	StatusCode  int
	ContentType string
	Location    string
	Body        []byte
}

// Found is false when a single record fetch was answered with 404
func (r Response) Found() bool {
	return r.StatusCode == http.StatusOK
}

func Debug(enabled string) func(*collectionClient) {
	return func(c *collectionClient) {
		c.debug = (enabled == "true")
	}
}

func Tenant(tenant string) func(*collectionClient) {
	return func(c *collectionClient) {
		c.tenant = tenant
	}
}

func Token(token string) func(*collectionClient) {
	return func(c *collectionClient) {
		c.token = token
	}
}

// StorageURL sets the storage base address forwarded to the storage service
func StorageURL(storageURL string) func(*collectionClient) {
	return func(c *collectionClient) {
		c.storageURL = storageURL
	}
}

func WithHTTPClient(httpClient *http.Client) func(*collectionClient) {
	return func(c *collectionClient) {
		c.httpClient = httpClient
	}
}

// NewCollectionClient creates a client for the collection found at collectionURL,
// e.g. http://storage:9130/item-storage/items
func NewCollectionClient(collectionURL string, options ...func(*collectionClient)) CollectionClient {
	c := &collectionClient{
		collectionURL: strings.TrimSuffix(collectionURL, "/"),
		debug:         false,
	}

	for _, option := range options {
		option(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return c
}

const (
	TraceAttributeCollection string = "collection"
	TraceAttributeRecordID   string = "record-id"
	TraceAttributeTenant     string = "tenant"
)

var tracer = otel.Tracer("inventory/storage-client")

type collectionClient struct {
	collectionURL string
	storageURL    string
	tenant        string
	token         string
	debug         bool

	httpClient *http.Client
}

func (c collectionClient) Get(ctx context.Context, id string) (*Response, error) {
	var err error

	ctx, span := tracer.Start(ctx, "get-record",
		trace.WithAttributes(attribute.String(TraceAttributeTenant, c.tenant)),
		trace.WithAttributes(attribute.String(TraceAttributeCollection, c.collectionURL)),
		trace.WithAttributes(attribute.String(TraceAttributeRecordID, id)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	response, err := c.callStorage(ctx, http.MethodGet, c.recordURL(id), nil)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK && response.StatusCode != http.StatusNotFound {
		err = errors.NewFailureFromResponse(response.StatusCode, response.ContentType, response.Body)
		return nil, err
	}

	return response, nil
}

func (c collectionClient) GetAll(ctx context.Context, paging Paging) (*Response, error) {
	var err error

	ctx, span := tracer.Start(ctx, "get-records",
		trace.WithAttributes(attribute.String(TraceAttributeTenant, c.tenant)),
		trace.WithAttributes(attribute.String(TraceAttributeCollection, c.collectionURL)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	response, err := c.getMany(ctx, paging.Decorators()...)
	return response, err
}

func (c collectionClient) GetByQuery(ctx context.Context, query string, paging Paging) (*Response, error) {
	var err error

	ctx, span := tracer.Start(ctx, "query-records",
		trace.WithAttributes(attribute.String(TraceAttributeTenant, c.tenant)),
		trace.WithAttributes(attribute.String(TraceAttributeCollection, c.collectionURL)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	q, err := Query(query)
	if err != nil {
		return nil, err
	}

	response, err := c.getMany(ctx, append(paging.Decorators(), q)...)
	return response, err
}

func (c collectionClient) Create(ctx context.Context, body []byte) (*Response, error) {
	var err error

	ctx, span := tracer.Start(ctx, "create-record",
		trace.WithAttributes(attribute.String(TraceAttributeTenant, c.tenant)),
		trace.WithAttributes(attribute.String(TraceAttributeCollection, c.collectionURL)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	response, err := c.callStorage(ctx, http.MethodPost, c.collectionURL, body)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusCreated {
		err = errors.NewFailureFromResponse(response.StatusCode, response.ContentType, response.Body)
		return nil, err
	}

	if response.Location == "" {
		logging.GetFromContext(ctx).Warn("storage failed to provide a location header with created response")
	}

	return response, nil
}

func (c collectionClient) Update(ctx context.Context, id string, body []byte) error {
	var err error

	ctx, span := tracer.Start(ctx, "update-record",
		trace.WithAttributes(attribute.String(TraceAttributeTenant, c.tenant)),
		trace.WithAttributes(attribute.String(TraceAttributeCollection, c.collectionURL)),
		trace.WithAttributes(attribute.String(TraceAttributeRecordID, id)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	err = c.expectNoContent(ctx, http.MethodPut, c.recordURL(id), body)
	return err
}

func (c collectionClient) Delete(ctx context.Context, id string) error {
	var err error

	ctx, span := tracer.Start(ctx, "delete-record",
		trace.WithAttributes(attribute.String(TraceAttributeTenant, c.tenant)),
		trace.WithAttributes(attribute.String(TraceAttributeCollection, c.collectionURL)),
		trace.WithAttributes(attribute.String(TraceAttributeRecordID, id)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	err = c.expectNoContent(ctx, http.MethodDelete, c.recordURL(id), nil)
	return err
}

func (c collectionClient) DeleteAll(ctx context.Context) error {
	var err error

	ctx, span := tracer.Start(ctx, "delete-records",
		trace.WithAttributes(attribute.String(TraceAttributeTenant, c.tenant)),
		trace.WithAttributes(attribute.String(TraceAttributeCollection, c.collectionURL)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	err = c.expectNoContent(ctx, http.MethodDelete, c.collectionURL, nil)
	return err
}

func (c collectionClient) recordURL(id string) string {
	return c.collectionURL + "/" + url.PathEscape(id)
}

func (c collectionClient) getMany(ctx context.Context, parameters ...RequestDecoratorFunc) (*Response, error) {
	params := make([]string, 0, 3)
	for _, rdf := range parameters {
		params = rdf(params)
	}

	urlparams := ""
	if len(params) > 0 {
		urlparams = "?" + strings.Join(params, "&")
	}

	response, err := c.callStorage(ctx, http.MethodGet, c.collectionURL+urlparams, nil)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		return nil, errors.NewFailureFromResponse(response.StatusCode, response.ContentType, response.Body)
	}

	return response, nil
}

func (c collectionClient) expectNoContent(ctx context.Context, method, endpoint string, body []byte) error {
	response, err := c.callStorage(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	if response.StatusCode != http.StatusNoContent {
		return errors.NewFailureFromResponse(response.StatusCode, response.ContentType, response.Body)
	}

	return nil
}

func (c collectionClient) callStorage(ctx context.Context, method, endpoint string, body []byte) (*Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, errors.NewTransportFailure(fmt.Sprintf("failed to create request: %s", err.Error()), errors.ErrInternal)
	}

	req.Header.Add("Accept", "application/json, text/plain")
	if body != nil {
		req.Header.Add("Content-Type", "application/json")
	}

	if c.tenant != "" {
		req.Header.Add(TenantHeader, c.tenant)
	}

	if c.token != "" {
		req.Header.Add(TokenHeader, c.token)
	}

	if c.storageURL != "" {
		req.Header.Add(StorageURLHeader, c.storageURL)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewTransportFailure(fmt.Sprintf("failed to send request: %s", err.Error()), errors.ErrRequest)
	}

	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewTransportFailure(fmt.Sprintf("failed to read response body: %s", err.Error()), errors.ErrBadResponse)
	}

	if c.debug && resp.StatusCode >= http.StatusBadRequest && resp.StatusCode != http.StatusNotFound {
		reqbytes, _ := httputil.DumpRequest(req, false)
		respbytes, _ := httputil.DumpResponse(resp, false)

		log := logging.GetFromContext(ctx)
		log.Error("request failed", "request", string(reqbytes), "response", string(respbytes))
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Location:    resp.Header.Get("Location"),
		Body:        respBody,
	}, nil
}
