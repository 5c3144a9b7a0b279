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

// NewQueryItemsHandler handles GET requests for a page of items, optionally filtered by a CQL query
func NewQueryItemsHandler(app gateway.ItemManager) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "query-items")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		paging, ok := pagingFromRequest(r)
		if !ok {
			problems.ReportNewBadRequestData(w, pagingError)
			return
		}

		result, err := app.QueryItems(ctx, GetStorageContextFromContext(ctx), r.URL.Query().Get("query"), paging)
		if err != nil {
			reportError(w, err)
			return
		}

		response := itemsRepresentation{
			Items:        make([]itemRepresentation, 0, len(result.Items)),
			TotalRecords: result.TotalRecords,
		}

		for _, item := range result.Items {
			response.Items = append(response.Items, itemToRepresentation(r, item))
		}

		writeJSON(w, http.StatusOK, response)
	})
}

func NewCreateItemHandler(app gateway.ItemManager) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "create-item")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		ir := itemRepresentation{}
		err = json.NewDecoder(r.Body).Decode(&ir)
		if err != nil {
			problems.ReportNewInvalidRequest(w, fmt.Sprintf("unable to decode request payload: %s", err.Error()))
			return
		}

		created, err := app.CreateItem(ctx, GetStorageContextFromContext(ctx), representationToItem(ir))
		if err != nil {
			reportError(w, err)
			return
		}

		w.Header().Add("Location", absoluteURL(r, fmt.Sprintf("%s/%s", ItemsPath, created.ID)))
		writeJSON(w, http.StatusCreated, itemToRepresentation(r, created))
	})
}

func NewRetrieveItemHandler(app gateway.ItemManager) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "retrieve-item")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		item, err := app.RetrieveItem(ctx, GetStorageContextFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			reportError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, itemToRepresentation(r, item))
	})
}

func NewUpdateItemHandler(app gateway.ItemManager) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "update-item")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		ir := itemRepresentation{}
		err = json.NewDecoder(r.Body).Decode(&ir)
		if err != nil {
			problems.ReportNewInvalidRequest(w, fmt.Sprintf("unable to decode request payload: %s", err.Error()))
			return
		}

		item := representationToItem(ir)
		item.ID = chi.URLParam(r, "id")

		err = app.UpdateItem(ctx, GetStorageContextFromContext(ctx), item)
		if err != nil {
			reportError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

func NewDeleteItemHandler(app gateway.ItemManager) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "delete-item")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		err = app.DeleteItem(ctx, GetStorageContextFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			reportError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

func NewDeleteAllItemsHandler(app gateway.ItemManager) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "delete-all-items")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

		err = app.DeleteAllItems(ctx, GetStorageContextFromContext(ctx))
		if err != nil {
			reportError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		problems.ReportNewInternalError(w, fmt.Sprintf("failed to encode response: %s", err.Error()))
		return
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(b)
}
