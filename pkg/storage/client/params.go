package client

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/diwise/inventory/pkg/storage/errors"
)

type RequestDecoratorFunc func(params []string) []string

const (
	DefaultLimit  int = 10
	DefaultOffset int = 0
)

// Paging selects a window of a collection. A zero or negative Limit means DefaultLimit.
type Paging struct {
	Limit  int
	Offset int
}

func DefaultPaging() Paging {
	return Paging{Limit: DefaultLimit, Offset: DefaultOffset}
}

// Next returns the window directly following p
func (p Paging) Next() Paging {
	limit := p.limit()
	return Paging{Limit: limit, Offset: p.offset() + limit}
}

func (p Paging) Decorators() []RequestDecoratorFunc {
	return []RequestDecoratorFunc{Limit(p.limit()), Offset(p.offset())}
}

func (p Paging) limit() int {
	if p.Limit <= 0 {
		return DefaultLimit
	}
	return p.Limit
}

func (p Paging) offset() int {
	if p.Offset < 0 {
		return DefaultOffset
	}
	return p.Offset
}

func Limit(limit int) RequestDecoratorFunc {
	return func(params []string) []string {
		return append(params, fmt.Sprintf("limit=%d", limit))
	}
}

func Offset(offset int) RequestDecoratorFunc {
	return func(params []string) []string {
		return append(params, fmt.Sprintf("offset=%d", offset))
	}
}

// Query percent encodes a CQL query. It fails with ErrEncoding if the query is not valid UTF-8.
func Query(cql string) (RequestDecoratorFunc, error) {
	if !utf8.ValidString(cql) {
		return nil, errors.NewEncodingError(fmt.Sprintf("query %q is not valid utf-8", cql))
	}

	encoded := url.QueryEscape(cql)

	return func(params []string) []string {
		return append(params, "query="+encoded)
	}, nil
}

// CQLString quotes value for use as the value of a CQL term, escaping
// embedded quotes and backslashes
func CQLString(value string) string {
	return `"` + cqlEscaper.Replace(value) + `"`
}

var cqlEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)
