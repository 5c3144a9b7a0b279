package router

import (
	"net/http"

	"github.com/diwise/inventory/pkg/storage/client"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
	"github.com/rs/cors"
)

// New returns a router that lets browser clients send the storage context
// headers and read the Location of created records
func New(serviceName string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept", "Content-Type",
			client.TenantHeader, client.TokenHeader, client.StorageURLHeader,
		},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: true,
		Debug:            false,
	}).Handler)

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(otelchi.Middleware(serviceName, otelchi.WithChiRoutes(r)))

	return r
}
