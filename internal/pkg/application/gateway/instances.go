package gateway

import (
	"context"

	"github.com/diwise/inventory/internal/pkg/application/notifications"
	"github.com/diwise/inventory/pkg/inventory"
	"github.com/diwise/inventory/pkg/storage/client"
	"github.com/diwise/inventory/pkg/storage/collection"
	"github.com/diwise/inventory/pkg/storage/errors"
)

func (app *gatewayApp) CreateInstance(ctx context.Context, sc StorageContext, instance inventory.Instance) (inventory.Instance, error) {
	if instance.Title == "" {
		return inventory.Instance{}, errors.NewBadRequestError("Title must be provided for an instance")
	}

	s, err := app.storageFor(sc)
	if err != nil {
		return inventory.Instance{}, err
	}

	created, err := s.instances.Add(ctx, instance)
	if err != nil {
		return inventory.Instance{}, err
	}

	app.notify(ctx, notifications.OperationCreated, sc.Tenant, RecordTypeInstance, created.ID)

	return created, nil
}

func (app *gatewayApp) RetrieveInstance(ctx context.Context, sc StorageContext, id string) (inventory.Instance, error) {
	s, err := app.storageFor(sc)
	if err != nil {
		return inventory.Instance{}, err
	}

	instance, found, err := s.instances.FindByID(ctx, id)
	if err != nil {
		return inventory.Instance{}, err
	}

	if !found {
		return inventory.Instance{}, errors.NewNotFoundError("Not Found")
	}

	return instance, nil
}

func (app *gatewayApp) QueryInstances(ctx context.Context, sc StorageContext, query string, paging client.Paging) (*InstancesResult, error) {
	s, err := app.storageFor(sc)
	if err != nil {
		return nil, err
	}

	var page collection.Result[inventory.Instance]

	if query == "" {
		page, err = s.instances.FindAll(ctx, paging)
	} else {
		page, err = s.instances.FindByQuery(ctx, query, paging)
	}

	if err != nil {
		return nil, err
	}

	return &InstancesResult{
		Instances:    page.Records,
		TotalRecords: page.TotalRecords,
	}, nil
}

func (app *gatewayApp) UpdateInstance(ctx context.Context, sc StorageContext, instance inventory.Instance) error {
	if instance.Title == "" {
		return errors.NewBadRequestError("Title must be provided for an instance")
	}

	s, err := app.storageFor(sc)
	if err != nil {
		return err
	}

	_, found, err := s.instances.FindByID(ctx, instance.ID)
	if err != nil {
		return err
	}

	if !found {
		return errors.NewNotFoundError("Not Found")
	}

	err = s.instances.Update(ctx, instance)
	if err != nil {
		return err
	}

	app.notify(ctx, notifications.OperationUpdated, sc.Tenant, RecordTypeInstance, instance.ID)

	return nil
}

func (app *gatewayApp) DeleteInstance(ctx context.Context, sc StorageContext, id string) error {
	s, err := app.storageFor(sc)
	if err != nil {
		return err
	}

	err = s.instances.Delete(ctx, id)
	if err != nil {
		return err
	}

	app.notify(ctx, notifications.OperationDeleted, sc.Tenant, RecordTypeInstance, id)

	return nil
}

func (app *gatewayApp) DeleteAllInstances(ctx context.Context, sc StorageContext) error {
	s, err := app.storageFor(sc)
	if err != nil {
		return err
	}

	return s.instances.Empty(ctx)
}
