package inventoryapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/diwise/inventory/internal/pkg/application/gateway"
	"github.com/diwise/inventory/internal/pkg/presentation/api/inventoryapi/problems"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/go-chi/chi/v5"
)

func NewQueryInstancesHandler(app gateway.InstanceManager) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "query-instances")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		paging, ok := pagingFromRequest(r)
		if !ok {
			problems.ReportNewBadRequestData(w, pagingError)
			return
		}

		result, err := app.QueryInstances(ctx, GetStorageContextFromContext(ctx), r.URL.Query().Get("query"), paging)
		if err != nil {
			reportError(w, err)
			return
		}

		response := instancesRepresentation{
			Instances:    make([]instanceRepresentation, 0, len(result.Instances)),
			TotalRecords: result.TotalRecords,
		}

		for _, instance := range result.Instances {
			response.Instances = append(response.Instances, instanceToRepresentation(r, instance))
		}

		writeJSON(w, http.StatusOK, response)
	})
}

func NewCreateInstanceHandler(app gateway.InstanceManager) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "create-instance")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		ir := instanceRepresentation{}
		err = json.NewDecoder(r.Body).Decode(&ir)
		if err != nil {
			problems.ReportNewInvalidRequest(w, fmt.Sprintf("unable to decode request payload: %s", err.Error()))
			return
		}

		created, err := app.CreateInstance(ctx, GetStorageContextFromContext(ctx), representationToInstance(ir))
		if err != nil {
			reportError(w, err)
			return
		}

		w.Header().Add("Location", absoluteURL(r, fmt.Sprintf("%s/%s", InstancesPath, created.ID)))
		writeJSON(w, http.StatusCreated, instanceToRepresentation(r, created))
	})
}

func NewRetrieveInstanceHandler(app gateway.InstanceManager) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "retrieve-instance")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		instance, err := app.RetrieveInstance(ctx, GetStorageContextFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			reportError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, instanceToRepresentation(r, instance))
	})
}

func NewUpdateInstanceHandler(app gateway.InstanceManager) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "update-instance")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		ir := instanceRepresentation{}
		err = json.NewDecoder(r.Body).Decode(&ir)
		if err != nil {
			problems.ReportNewInvalidRequest(w, fmt.Sprintf("unable to decode request payload: %s", err.Error()))
			return
		}

		instance := representationToInstance(ir)
		instance.ID = chi.URLParam(r, "id")

		err = app.UpdateInstance(ctx, GetStorageContextFromContext(ctx), instance)
		if err != nil {
			reportError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

func NewDeleteInstanceHandler(app gateway.InstanceManager) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "delete-instance")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		err = app.DeleteInstance(ctx, GetStorageContextFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			reportError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

func NewDeleteAllInstancesHandler(app gateway.InstanceManager) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "delete-all-instances")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		err = app.DeleteAllInstances(ctx, GetStorageContextFromContext(ctx))
		if err != nil {
			reportError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

// NewServeInstanceContextHandler serves the JSON-LD context referenced by instance representations
func NewServeInstanceContextHandler() http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, instanceContext)
	})
}
