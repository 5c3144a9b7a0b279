package errors

import (
	"fmt"
	"net/http"
	"strings"
)

var ErrBadRequest = fmt.Errorf("bad request")
var ErrBadResponse = fmt.Errorf("bad response")
var ErrEncoding = fmt.Errorf("encoding error")
var ErrInternal = fmt.Errorf("internal error")
var ErrNotFound = fmt.Errorf("not found")
var ErrRequest = fmt.Errorf("request error")
var ErrUnexpectedStatus = fmt.Errorf("unexpected status")
var ErrUnknownTenant = fmt.Errorf("unknown tenant")

type myError struct {
	msg    string
	target error
}

func (m myError) Error() string        { return m.msg }
func (m myError) Is(target error) bool { return target == m.target }

func NewBadRequestError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrBadRequest,
	}
}

func NewBadResponseError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrBadResponse,
	}
}

func NewEncodingError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrEncoding,
	}
}

func NewNotFoundError(msg string) error {
	return &myError{
		msg:    msg,
		target: ErrNotFound,
	}
}

func NewUnknownTenantError(tenant string) error {
	return &myError{
		msg:    fmt.Sprintf("unknown tenant \"%s\"", tenant),
		target: ErrUnknownTenant,
	}
}

// Failure carries the outcome of a storage exchange that did not succeed.
// StatusCode is zero when no response was received at all.
type Failure struct {
	Reason      string
	StatusCode  int
	ContentType string

	target error
}

func (f *Failure) Error() string {
	if f.StatusCode == 0 {
		return f.Reason
	}

	return fmt.Sprintf("storage returned status code %d (content-type: %s, body: %s)",
		f.StatusCode, f.ContentType, strings.TrimSpace(f.Reason),
	)
}

func (f *Failure) Is(target error) bool {
	return target == f.target
}

// HasStatus reports if the failure was produced by an actual response
func (f *Failure) HasStatus() bool {
	return f.StatusCode != 0
}

func NewTransportFailure(reason string, target error) *Failure {
	return &Failure{
		Reason: reason,
		target: target,
	}
}

func NewFailureFromResponse(code int, contentType string, body []byte) *Failure {
	f := &Failure{
		Reason:      string(body),
		StatusCode:  code,
		ContentType: contentType,
		target:      ErrUnexpectedStatus,
	}

	switch {
	case code == http.StatusNotFound:
		f.target = ErrNotFound
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		f.target = ErrBadRequest
	case code >= http.StatusInternalServerError:
		f.target = ErrInternal
	}

	return f
}
