package collection

import (
	"context"

	"github.com/diwise/inventory/pkg/storage/client"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

// ForEachPage walks through every record matching query (all records if query is empty),
// pageSize records at a time, and hands each page to callback. Iteration stops at the
// first error, either from storage or from the callback.
func ForEachPage[T any](ctx context.Context, c *Collection[T], query string, pageSize int, callback func(page []T) error) (count int, err error) {

	logger := logging.GetFromContext(ctx)

	paging := client.Paging{Limit: pageSize, Offset: 0}

	for {
		var result Result[T]

		if query == "" {
			result, err = c.FindAll(ctx, paging)
		} else {
			result, err = c.FindByQuery(ctx, query, paging)
		}

		if err != nil {
			return
		}

		batchSize := len(result.Records)
		if batchSize == 0 {
			break
		}

		logger.Debug("fetched page", "offset", paging.Offset, "size", batchSize, "total", result.TotalRecords)

		if err = callback(result.Records); err != nil {
			return
		}

		count += batchSize
		paging = paging.Next()

		if batchSize < paging.Limit || count >= result.TotalRecords {
			break
		}
	}

	return
}
