package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
)

type Notifier interface {
	Start() error
	Stop() error

	RecordCreated(ctx context.Context, tenant, recordType, id string)
	RecordUpdated(ctx context.Context, tenant, recordType, id string)
	RecordDeleted(ctx context.Context, tenant, recordType, id string)
}

const (
	OperationCreated string = "created"
	OperationUpdated string = "updated"
	OperationDeleted string = "deleted"
)

type Change struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Tenant    string `json:"tenant,omitempty"`
	Operation string `json:"operation"`
}

type Notification struct {
	ID             string   `json:"id"`
	Type           string   `json:"type"`
	SubscriptionID string   `json:"subscriptionId"`
	NotifiedAt     string   `json:"notifiedAt"`
	Data           []Change `json:"data"`
}

func NewNotification(c Change) *Notification {
	return &Notification{
		ID:             uuid.New().String(),
		Type:           "Notification",
		SubscriptionID: "notimplemented",
		NotifiedAt:     time.Now().UTC().Format(time.RFC3339Nano),
		Data:           []Change{c},
	}
}

var tracer = otel.Tracer("inventory/notifier")

const queueSize int = 32

type action func()

type notifier struct {
	mu      sync.Mutex
	started bool
	stopped chan struct{}

	endpoint   string
	httpClient http.Client
	queue      chan action
}

func NewNotifier(ctx context.Context, endpoint string) (Notifier, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("a notification endpoint is required")
	}

	return &notifier{
		endpoint: endpoint,
		httpClient: http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   10 * time.Second,
		},
	}, nil
}

func (n *notifier) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.started {
		return fmt.Errorf("already started")
	}

	n.started = true
	n.queue = make(chan action, queueSize)
	n.stopped = make(chan struct{})

	go run(n.queue, n.stopped)

	return nil
}

// Stop waits for queued notifications to be posted. Changes recorded after
// Stop has been called are ignored.
func (n *notifier) Stop() error {
	n.mu.Lock()
	if !n.started {
		n.mu.Unlock()
		return nil
	}

	n.started = false
	queue, stopped := n.queue, n.stopped
	n.mu.Unlock()

	queue <- nil
	<-stopped

	return nil
}

func (n *notifier) RecordCreated(ctx context.Context, tenant, recordType, id string) {
	n.enqueue(ctx, Change{ID: id, Type: recordType, Tenant: tenant, Operation: OperationCreated})
}

func (n *notifier) RecordUpdated(ctx context.Context, tenant, recordType, id string) {
	n.enqueue(ctx, Change{ID: id, Type: recordType, Tenant: tenant, Operation: OperationUpdated})
}

func (n *notifier) RecordDeleted(ctx context.Context, tenant, recordType, id string) {
	n.enqueue(ctx, Change{ID: id, Type: recordType, Tenant: tenant, Operation: OperationDeleted})
}

// enqueue never blocks the caller. A change is dropped, with a warning, if
// the queue is full.
func (n *notifier) enqueue(ctx context.Context, c Change) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.started {
		return
	}

	logger := logging.GetFromContext(ctx)

	ctx, span := tracer.Start(
		tracing.ExtractHeaders(context.Background(), tracing.InjectHeaders(ctx)),
		"post-notification",
	)

	post := func() {
		err := n.post(ctx, NewNotification(c))
		if err != nil {
			logger.Error("failed to post notification", "record_id", c.ID, "operation", c.Operation, "err", err.Error())
		}
		tracing.RecordAnyErrorAndEndSpan(err, span)
	}

	select {
	case n.queue <- post:
	default:
		err := fmt.Errorf("notification queue is full")
		tracing.RecordAnyErrorAndEndSpan(err, span)
		logger.Warn("notification queue full, dropping notification", "record_id", c.ID, "operation", c.Operation)
	}
}

func (n *notifier) post(ctx context.Context, notification *Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("marshalling error (%w)", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("unable to create new request (%w)", err)
	}

	req.Header.Add("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request (%w)", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("notification endpoint returned status code %d", resp.StatusCode)
	}

	return nil
}

func run(queue chan action, stopped chan struct{}) {
	defer close(stopped)

	for action := range queue {
		if action == nil {
			return
		}

		action()
	}
}
