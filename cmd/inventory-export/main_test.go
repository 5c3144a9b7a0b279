package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/diwise/inventory/pkg/inventory"
	"github.com/diwise/inventory/pkg/storage/storagetest"
	"github.com/matryer/is"
)

func TestExportWritesOneLinePerItem(t *testing.T) {
	is := is.New(t)

	s := storagetest.NewServer()
	defer s.Close()

	is.NoErr(s.Seed(storagetest.MaterialTypesPath, inventory.Reference{ID: "book", Name: "Book"}))
	for i := range 5 {
		is.NoErr(s.Seed(storagetest.ItemsPath, map[string]any{
			"id":             fmt.Sprintf("item-%d", i),
			"title":          "Nod",
			"materialTypeId": "book",
		}))
	}

	out := &bytes.Buffer{}
	count, err := export(context.Background(), testConfig(s.URL(), ""), out)
	is.NoErr(err)

	is.Equal(count, 5)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	is.Equal(len(lines), 5)

	item := exportedItem{}
	is.NoErr(json.Unmarshal([]byte(lines[0]), &item))
	is.Equal(item.MaterialType.Name, "Book")

	// one page of two items per resolution batch, each batch looks book up once
	is.Equal(s.RequestCount(storagetest.MaterialTypesPath+"/book"), 3)
}

func TestExportAppliesQuery(t *testing.T) {
	is := is.New(t)

	s := storagetest.NewServer()
	defer s.Close()

	is.NoErr(s.Seed(storagetest.ItemsPath,
		map[string]any{"id": "1", "title": "Nod", "barcode": "111"},
		map[string]any{"id": "2", "title": "Uprooted", "barcode": "222"},
	))

	out := &bytes.Buffer{}
	count, err := export(context.Background(), testConfig(s.URL(), "barcode=222"), out)
	is.NoErr(err)

	is.Equal(count, 1)
	is.True(strings.Contains(out.String(), `"id":"2"`))
}

func TestExportFailsWhenStorageFails(t *testing.T) {
	is := is.New(t)

	s := storagetest.NewServer()
	defer s.Close()

	s.Fail(storagetest.ItemsPath, http.StatusInternalServerError)

	out := &bytes.Buffer{}
	count, err := export(context.Background(), testConfig(s.URL(), ""), out)

	is.True(err != nil)
	is.Equal(count, 0)
	is.Equal(out.Len(), 0)
}

func testConfig(storageURL, query string) Config {
	return Config{
		storageURL: storageURL,
		tenant:     "diku",
		query:      query,
		pageSize:   2,
	}
}
