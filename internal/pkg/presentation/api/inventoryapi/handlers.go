package inventoryapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/diwise/inventory/internal/pkg/application/gateway"
	"github.com/diwise/inventory/pkg/storage/client"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	ItemsPath     string = "/inventory/items"
	InstancesPath string = "/inventory/instances"

	TraceAttributeTenant string = "tenant"
)

var tracer = otel.Tracer("inventory/api")

func RegisterHandlers(ctx context.Context, r chi.Router, app gateway.InventoryManager) {
	r.Route("/inventory", func(r chi.Router) {
		r.Use(
			Logger(logging.GetFromContext(ctx)),
			OkapiMiddleware(),
			RequiredContentTypes([]string{"application/json"}),
		)

		r.Route("/items", func(r chi.Router) {
			r.Get("/", NewQueryItemsHandler(app))
			r.Post("/", NewCreateItemHandler(app))
			r.Delete("/", NewDeleteAllItemsHandler(app))

			r.Get("/{id}", NewRetrieveItemHandler(app))
			r.Put("/{id}", NewUpdateItemHandler(app))
			r.Delete("/{id}", NewDeleteItemHandler(app))
		})

		r.Route("/instances", func(r chi.Router) {
			r.Get("/", NewQueryInstancesHandler(app))
			r.Post("/", NewCreateInstanceHandler(app))
			r.Delete("/", NewDeleteAllInstancesHandler(app))

			r.Get("/context", NewServeInstanceContextHandler())

			r.Get("/{id}", NewRetrieveInstanceHandler(app))
			r.Put("/{id}", NewUpdateInstanceHandler(app))
			r.Delete("/{id}", NewDeleteInstanceHandler(app))
		})
	})
}

type storageContextKey struct {
	name string
}

var storageCtxKey = &storageContextKey{"okapi-storage-context"}

func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			_, ctx, _ = o11y.AddTraceIDToLoggerAndStoreInContext(
				trace.SpanFromContext(ctx),
				logger,
				ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequiredContentTypes(validTypes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			contentType := r.Header.Get("Content-Type")
			isValidContentType := true

			if len(contentType) > 0 && r.ContentLength != 0 {
				isValidContentType = false

				for _, t := range validTypes {
					if strings.HasPrefix(contentType, t) {
						isValidContentType = true
						break
					}
				}
			}

			if isValidContentType {
				next.ServeHTTP(w, r)
			} else {
				http.Error(w, "unsupported media type", http.StatusUnsupportedMediaType)
			}
		})
	}
}

// OkapiMiddleware packs the tenant, token and storage address headers into the context
func OkapiMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sc := gateway.StorageContext{
				URL:    r.Header.Get(client.StorageURLHeader),
				Tenant: r.Header.Get(client.TenantHeader),
				Token:  r.Header.Get(client.TokenHeader),
			}

			if labeler, found := otelhttp.LabelerFromContext(r.Context()); found {
				labeler.Add(attribute.String(TraceAttributeTenant, sc.Tenant))
			}

			ctx := context.WithValue(r.Context(), storageCtxKey, sc)

			ctx = logging.NewContextWithLogger(
				ctx,
				logging.GetFromContext(r.Context()),
				"tenant",
				sc.Tenant,
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetStorageContextFromContext extracts the storage context, if any, from the provided context
func GetStorageContextFromContext(ctx context.Context) gateway.StorageContext {
	sc, ok := ctx.Value(storageCtxKey).(gateway.StorageContext)

	if !ok {
		return gateway.StorageContext{}
	}

	return sc
}
