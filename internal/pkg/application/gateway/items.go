package gateway

import (
	"context"
	"fmt"

	"github.com/diwise/inventory/internal/pkg/application/notifications"
	"github.com/diwise/inventory/pkg/inventory"
	"github.com/diwise/inventory/pkg/storage/client"
	"github.com/diwise/inventory/pkg/storage/collection"
	"github.com/diwise/inventory/pkg/storage/errors"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

func (app *gatewayApp) CreateItem(ctx context.Context, sc StorageContext, item inventory.Item) (inventory.Item, error) {
	s, err := app.storageFor(sc)
	if err != nil {
		return inventory.Item{}, err
	}

	if item.Barcode != "" {
		err = ensureUniqueBarcode(ctx, s.items, "barcode=="+client.CQLString(item.Barcode), item.Barcode)
		if err != nil {
			return inventory.Item{}, err
		}
	}

	created, err := s.items.Add(ctx, item)
	if err != nil {
		return inventory.Item{}, err
	}

	app.notify(ctx, notifications.OperationCreated, sc.Tenant, RecordTypeItem, created.ID)

	return created, nil
}

func (app *gatewayApp) RetrieveItem(ctx context.Context, sc StorageContext, id string) (inventory.Item, error) {
	s, err := app.storageFor(sc)
	if err != nil {
		return inventory.Item{}, err
	}

	item, found, err := s.items.FindByID(ctx, id)
	if err != nil {
		return inventory.Item{}, err
	}

	if !found {
		return inventory.Item{}, errors.NewNotFoundError("Not Found")
	}

	result := s.resolver.Resolve(ctx, []inventory.Item{item})
	return result.Items[0], nil
}

func (app *gatewayApp) QueryItems(ctx context.Context, sc StorageContext, query string, paging client.Paging) (*ItemsResult, error) {
	s, err := app.storageFor(sc)
	if err != nil {
		return nil, err
	}

	var page collection.Result[inventory.Item]

	if query == "" {
		page, err = s.items.FindAll(ctx, paging)
	} else {
		page, err = s.items.FindByQuery(ctx, query, paging)
	}

	if err != nil {
		return nil, err
	}

	resolved := s.resolver.Resolve(ctx, page.Records)

	if !resolved.Complete() {
		logging.GetFromContext(ctx).Warn("returning partially resolved items", "unresolved", len(resolved.Unresolved))
	}

	return &ItemsResult{
		Items:        resolved.Items,
		TotalRecords: page.TotalRecords,
		Unresolved:   resolved.Unresolved,
	}, nil
}

func (app *gatewayApp) UpdateItem(ctx context.Context, sc StorageContext, item inventory.Item) error {
	s, err := app.storageFor(sc)
	if err != nil {
		return err
	}

	existing, found, err := s.items.FindByID(ctx, item.ID)
	if err != nil {
		return err
	}

	if !found {
		return errors.NewNotFoundError("Not Found")
	}

	if item.Barcode != "" && item.Barcode != existing.Barcode {
		query := fmt.Sprintf("barcode==%s and id<>%s", client.CQLString(item.Barcode), client.CQLString(item.ID))
		if err = ensureUniqueBarcode(ctx, s.items, query, item.Barcode); err != nil {
			return err
		}
	}

	err = s.items.Update(ctx, item)
	if err != nil {
		return err
	}

	app.notify(ctx, notifications.OperationUpdated, sc.Tenant, RecordTypeItem, item.ID)

	return nil
}

func (app *gatewayApp) DeleteItem(ctx context.Context, sc StorageContext, id string) error {
	s, err := app.storageFor(sc)
	if err != nil {
		return err
	}

	err = s.items.Delete(ctx, id)
	if err != nil {
		return err
	}

	app.notify(ctx, notifications.OperationDeleted, sc.Tenant, RecordTypeItem, id)

	return nil
}

func (app *gatewayApp) DeleteAllItems(ctx context.Context, sc StorageContext) error {
	s, err := app.storageFor(sc)
	if err != nil {
		return err
	}

	return s.items.Empty(ctx)
}

func ensureUniqueBarcode(ctx context.Context, items *collection.Collection[inventory.Item], query, barcode string) error {
	existing, err := items.FindByQuery(ctx, query, client.DefaultPaging())
	if err != nil {
		return err
	}

	if len(existing.Records) > 0 {
		return errors.NewBadRequestError(fmt.Sprintf("Barcode must be unique, %s is already assigned to another item", barcode))
	}

	return nil
}
