package problems

import (
	"encoding/json"
	"net/http"
)

// ProblemDetails stores details about a certain problem according to RFC7807
// See https://tools.ietf.org/html/rfc7807
type ProblemDetails interface {
	ContentType() string
	Type() string
	Title() string
	Detail() string
	MarshalJSON() ([]byte, error)
	WriteResponse(w http.ResponseWriter)
}

type ProblemDetailsImpl struct {
	typ    string
	title  string
	detail string
	code   int
}

const (
	// ProblemReportContentType as required by https://tools.ietf.org/html/rfc7807
	ProblemReportContentType string = "application/problem+json"

	problemTypePrefix string = "urn:diwise:inventory:errors:"
)

// BadRequestData reports that the request includes input data which does not meet the requirements of the operation
type BadRequestData struct {
	ProblemDetailsImpl
}

func NewBadRequestData(detail string) *BadRequestData {
	return &BadRequestData{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:    problemTypePrefix + "BadRequestData",
			title:  "Bad Request Data",
			detail: detail,
			code:   http.StatusBadRequest,
		},
	}
}

func ReportNewBadRequestData(w http.ResponseWriter, detail string) {
	NewBadRequestData(detail).WriteResponse(w)
}

// InvalidRequest reports that the request is syntactically invalid, e.g. a body that can not be decoded
type InvalidRequest struct {
	ProblemDetailsImpl
}

func NewInvalidRequest(detail string) *InvalidRequest {
	return &InvalidRequest{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:    problemTypePrefix + "InvalidRequest",
			title:  "Invalid Request",
			detail: detail,
			code:   http.StatusBadRequest,
		},
	}
}

func ReportNewInvalidRequest(w http.ResponseWriter, detail string) {
	NewInvalidRequest(detail).WriteResponse(w)
}

type InternalError struct {
	ProblemDetailsImpl
}

func NewInternalError(detail string) *InternalError {
	return &InternalError{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:    problemTypePrefix + "InternalError",
			title:  "Internal Error",
			detail: detail,
			code:   http.StatusInternalServerError,
		},
	}
}

func ReportNewInternalError(w http.ResponseWriter, detail string) {
	NewInternalError(detail).WriteResponse(w)
}

// StorageUnavailable reports that the storage service could not be reached
type StorageUnavailable struct {
	ProblemDetailsImpl
}

func NewStorageUnavailable(detail string) *StorageUnavailable {
	return &StorageUnavailable{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:    problemTypePrefix + "StorageUnavailable",
			title:  "Storage Unavailable",
			detail: detail,
			code:   http.StatusBadGateway,
		},
	}
}

func ReportStorageUnavailable(w http.ResponseWriter, detail string) {
	NewStorageUnavailable(detail).WriteResponse(w)
}

type NotFound struct {
	ProblemDetailsImpl
}

func NewNotFound(detail string) *NotFound {
	return &NotFound{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:    problemTypePrefix + "ResourceNotFound",
			title:  "Not Found",
			detail: detail,
			code:   http.StatusNotFound,
		},
	}
}

func ReportNotFoundError(w http.ResponseWriter, detail string) {
	NewNotFound(detail).WriteResponse(w)
}

// UnknownTenant reports that the request tries to interact with an unknown tenant
type UnknownTenant struct {
	ProblemDetailsImpl
}

func NewUnknownTenant(detail string) *UnknownTenant {
	return &UnknownTenant{
		ProblemDetailsImpl: ProblemDetailsImpl{
			typ:    problemTypePrefix + "NonexistentTenant",
			title:  "Non Existent Tenant",
			detail: detail,
			code:   http.StatusNotFound,
		},
	}
}

func ReportUnknownTenantError(w http.ResponseWriter, detail string) {
	NewUnknownTenant(detail).WriteResponse(w)
}

func (p *ProblemDetailsImpl) ContentType() string {
	return ProblemReportContentType
}

func (p *ProblemDetailsImpl) Type() string {
	return p.typ
}

func (p *ProblemDetailsImpl) Title() string {
	return p.title
}

func (p *ProblemDetailsImpl) Detail() string {
	return p.detail
}

func (p *ProblemDetailsImpl) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type   string `json:"type"`
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}{
		Type:   p.typ,
		Title:  p.title,
		Detail: p.detail,
	})
}

// ResponseCode returns the HTTP response code to be used when returning a specific problem
func (p *ProblemDetailsImpl) ResponseCode() int {

	if p.code != 0 {
		return p.code
	}

	return http.StatusBadRequest
}

func (p *ProblemDetailsImpl) WriteResponse(w http.ResponseWriter) {
	w.Header().Add("Content-Type", p.ContentType())
	w.Header().Add("Content-Language", "en")
	w.WriteHeader(p.ResponseCode())

	pdbytes, err := json.MarshalIndent(p, "", "  ")
	if err == nil {
		w.Write(pdbytes)
	}
}
