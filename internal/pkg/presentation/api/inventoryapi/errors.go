package inventoryapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/diwise/inventory/internal/pkg/presentation/api/inventoryapi/problems"
	"github.com/diwise/inventory/pkg/storage/client"
	storageerrors "github.com/diwise/inventory/pkg/storage/errors"
)

// reportError writes err to w. Responses from the storage service are relayed as they were received.
func reportError(w http.ResponseWriter, err error) {
	var failure *storageerrors.Failure

	if errors.As(err, &failure) {
		if failure.HasStatus() {
			w.Header().Set("Content-Type", failure.ContentType)
			w.WriteHeader(failure.StatusCode)
			w.Write([]byte(failure.Reason))
			return
		}

		problems.ReportStorageUnavailable(w, failure.Error())
		return
	}

	switch {
	case errors.Is(err, storageerrors.ErrUnknownTenant):
		problems.ReportUnknownTenantError(w, err.Error())
	case errors.Is(err, storageerrors.ErrNotFound):
		problems.ReportNotFoundError(w, err.Error())
	case errors.Is(err, storageerrors.ErrBadRequest):
		problems.ReportNewBadRequestData(w, err.Error())
	case errors.Is(err, storageerrors.ErrEncoding):
		problems.ReportNewBadRequestData(w, err.Error())
	case errors.Is(err, storageerrors.ErrBadResponse):
		problems.ReportStorageUnavailable(w, err.Error())
	default:
		problems.ReportNewInternalError(w, err.Error())
	}
}

const pagingError string = "limit and offset must be numeric when supplied"

func pagingFromRequest(r *http.Request) (client.Paging, bool) {
	paging := client.DefaultPaging()

	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			return paging, false
		}
		paging.Limit = n
	}

	if offset := r.URL.Query().Get("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil {
			return paging, false
		}
		paging.Offset = n
	}

	return paging, true
}
