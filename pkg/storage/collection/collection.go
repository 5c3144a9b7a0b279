package collection

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/diwise/inventory/pkg/storage/client"
	"github.com/diwise/inventory/pkg/storage/errors"
	"github.com/google/uuid"
)

// Mapping tells a Collection how records of type T travel over the wire
type Mapping[T any] struct {
	// Envelope is the key holding the record array in multi record responses, e.g. "items"
	Envelope string

	Encode func(T) ([]byte, error)
	Decode func([]byte) (T, error)
	IDOf   func(T) string
	WithID func(T, string) T
}

type Result[T any] struct {
	Records      []T
	TotalRecords int
}

// Collection provides typed CRUD and search operations on top of a CollectionClient
type Collection[T any] struct {
	client  client.CollectionClient
	mapping Mapping[T]
}

func New[T any](c client.CollectionClient, m Mapping[T]) *Collection[T] {
	return &Collection[T]{
		client:  c,
		mapping: m,
	}
}

// Add stores record, assigning a fresh id first if it does not have one
func (c *Collection[T]) Add(ctx context.Context, record T) (T, error) {
	if c.mapping.IDOf(record) == "" {
		record = c.mapping.WithID(record, uuid.NewString())
	}

	var zero T

	body, err := c.mapping.Encode(record)
	if err != nil {
		return zero, errors.NewEncodingError(fmt.Sprintf("failed to encode record: %s", err.Error()))
	}

	response, err := c.client.Create(ctx, body)
	if err != nil {
		return zero, err
	}

	if len(response.Body) == 0 {
		return record, nil
	}

	created, err := c.mapping.Decode(response.Body)
	if err != nil {
		return zero, errors.NewBadResponseError(fmt.Sprintf("failed to decode created record: %s", err.Error()))
	}

	return created, nil
}

func (c *Collection[T]) Update(ctx context.Context, record T) error {
	body, err := c.mapping.Encode(record)
	if err != nil {
		return errors.NewEncodingError(fmt.Sprintf("failed to encode record: %s", err.Error()))
	}

	return c.client.Update(ctx, c.mapping.IDOf(record), body)
}

func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	return c.client.Delete(ctx, id)
}

// Empty removes every record in the collection
func (c *Collection[T]) Empty(ctx context.Context) error {
	return c.client.DeleteAll(ctx)
}

// FindByID returns false, and no error, if there is no record with the given id
func (c *Collection[T]) FindByID(ctx context.Context, id string) (T, bool, error) {
	var zero T

	response, err := c.client.Get(ctx, id)
	if err != nil {
		return zero, false, err
	}

	if !response.Found() {
		return zero, false, nil
	}

	record, err := c.mapping.Decode(response.Body)
	if err != nil {
		return zero, false, errors.NewBadResponseError(fmt.Sprintf("failed to decode record %s: %s", id, err.Error()))
	}

	return record, true, nil
}

func (c *Collection[T]) FindAll(ctx context.Context, paging client.Paging) (Result[T], error) {
	response, err := c.client.GetAll(ctx, paging)
	if err != nil {
		return Result[T]{}, err
	}

	return c.unwrap(response.Body)
}

func (c *Collection[T]) FindByQuery(ctx context.Context, query string, paging client.Paging) (Result[T], error) {
	response, err := c.client.GetByQuery(ctx, query, paging)
	if err != nil {
		return Result[T]{}, err
	}

	return c.unwrap(response.Body)
}

func (c *Collection[T]) unwrap(body []byte) (Result[T], error) {
	envelope := map[string]json.RawMessage{}

	err := json.Unmarshal(body, &envelope)
	if err != nil {
		return Result[T]{}, errors.NewBadResponseError(fmt.Sprintf("failed to unmarshal response: %s", err.Error()))
	}

	raw, ok := envelope[c.mapping.Envelope]
	if !ok {
		return Result[T]{}, errors.NewBadResponseError(fmt.Sprintf("response does not contain \"%s\"", c.mapping.Envelope))
	}

	records := []json.RawMessage{}
	if err = json.Unmarshal(raw, &records); err != nil {
		return Result[T]{}, errors.NewBadResponseError(fmt.Sprintf("failed to unmarshal \"%s\": %s", c.mapping.Envelope, err.Error()))
	}

	result := Result[T]{
		Records:      make([]T, 0, len(records)),
		TotalRecords: len(records),
	}

	if total, ok := envelope["totalRecords"]; ok {
		if err = json.Unmarshal(total, &result.TotalRecords); err != nil {
			return Result[T]{}, errors.NewBadResponseError(fmt.Sprintf("bad totalRecords: %s", err.Error()))
		}
	}

	for _, r := range records {
		record, err := c.mapping.Decode(r)
		if err != nil {
			return Result[T]{}, errors.NewBadResponseError(fmt.Sprintf("failed to decode record: %s", err.Error()))
		}
		result.Records = append(result.Records, record)
	}

	return result, nil
}
