package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/diwise/inventory/internal/pkg/application/references"
	"github.com/diwise/inventory/pkg/inventory"
	"github.com/diwise/inventory/pkg/storage/client"
	"github.com/diwise/inventory/pkg/storage/collection"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

const (
	appName string = "inventory-export"
)

func main() {
	appVersion := buildinfo.SourceVersion()

	ctx, log, cleanup := o11y.Init(context.Background(), appName, appVersion, "json")
	defer cleanup()

	cfg := LoadConfiguration(ctx)

	log.Debug("begin export", "tenant", cfg.tenant)

	count, err := export(ctx, cfg, os.Stdout)
	if err != nil {
		log.Error("export failed", slog.Int("exported", count), "err", err.Error())
		os.Exit(1)
	}

	log.Info("done exporting", slog.Int("total", count))
}

type Config struct {
	storageURL string
	tenant     string
	token      string
	query      string
	pageSize   int
}

func LoadConfiguration(ctx context.Context) Config {
	pageSize, err := strconv.Atoi(env.GetVariableOrDefault(ctx, "EXPORT_PAGE_SIZE", "100"))
	if err != nil || pageSize <= 0 {
		pageSize = 100
	}

	return Config{
		storageURL: strings.TrimSuffix(env.GetVariableOrDefault(ctx, "STORAGE_URL", "http://localhost:9130"), "/"),
		tenant:     env.GetVariableOrDefault(ctx, "STORAGE_TENANT", ""),
		token:      env.GetVariableOrDefault(ctx, "STORAGE_TOKEN", ""),
		query:      env.GetVariableOrDefault(ctx, "EXPORT_QUERY", ""),
		pageSize:   pageSize,
	}
}

type exportedItem struct {
	ID                string               `json:"id"`
	Title             string               `json:"title,omitempty"`
	Barcode           string               `json:"barcode,omitempty"`
	InstanceID        string               `json:"instanceId,omitempty"`
	Status            *inventory.Status    `json:"status,omitempty"`
	MaterialType      *inventory.Reference `json:"materialType,omitempty"`
	PermanentLoanType *inventory.Reference `json:"permanentLoanType,omitempty"`
	TemporaryLoanType *inventory.Reference `json:"temporaryLoanType,omitempty"`
	PermanentLocation *inventory.Reference `json:"permanentLocation,omitempty"`
	TemporaryLocation *inventory.Reference `json:"temporaryLocation,omitempty"`
}

func newExportedItem(item inventory.Item) exportedItem {
	return exportedItem{
		ID:                item.ID,
		Title:             item.Title,
		Barcode:           item.Barcode,
		InstanceID:        item.InstanceID,
		Status:            item.Status,
		MaterialType:      item.MaterialType,
		PermanentLoanType: item.PermanentLoanType,
		TemporaryLoanType: item.TemporaryLoanType,
		PermanentLocation: item.PermanentLocation,
		TemporaryLocation: item.TemporaryLocation,
	}
}

// export writes every item matching the configured query to w, one JSON document
// per line, with reference names resolved a page at a time
func export(ctx context.Context, cfg Config, w io.Writer) (int, error) {
	log := logging.GetFromContext(ctx)

	newClient := func(path string) client.CollectionClient {
		return client.NewCollectionClient(cfg.storageURL+path,
			client.Tenant(cfg.tenant),
			client.Token(cfg.token),
			client.StorageURL(cfg.storageURL),
		)
	}

	items := inventory.NewItemCollection(newClient(inventory.ItemsPath))
	resolver := references.NewResolver(
		inventory.NewMaterialTypeCollection(newClient(inventory.MaterialTypesPath)),
		inventory.NewLoanTypeCollection(newClient(inventory.LoanTypesPath)),
		inventory.NewLocationCollection(newClient(inventory.LocationsPath)),
	)

	encoder := json.NewEncoder(w)
	unresolved := 0

	count, err := collection.ForEachPage(ctx, items, cfg.query, cfg.pageSize, func(page []inventory.Item) error {
		result := resolver.Resolve(ctx, page)

		for _, u := range result.Unresolved {
			log.Warn("reference left unresolved", "collection", u.Collection, "reference_id", u.ID, "err", u.Err.Error())
		}
		unresolved += len(result.Unresolved)

		for _, item := range result.Items {
			if err := encoder.Encode(newExportedItem(item)); err != nil {
				return fmt.Errorf("failed to write item %s: %w", item.ID, err)
			}
		}

		return nil
	})

	if unresolved > 0 {
		log.Warn("export finished with unresolved references", slog.Int("unresolved", unresolved))
	}

	return count, err
}
