package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/diwise/inventory/internal/pkg/application/notifications"
	"github.com/diwise/inventory/internal/pkg/application/references"
	"github.com/diwise/inventory/pkg/inventory"
	"github.com/diwise/inventory/pkg/storage/client"
	"github.com/diwise/inventory/pkg/storage/collection"
	"github.com/diwise/inventory/pkg/storage/errors"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
)

// StorageContext carries the per request information forwarded to the storage service
type StorageContext struct {
	URL    string
	Tenant string
	Token  string
}

type ItemsResult struct {
	Items        []inventory.Item
	TotalRecords int
	Unresolved   []references.Unresolved
}

type InstancesResult struct {
	Instances    []inventory.Instance
	TotalRecords int
}

type ItemManager interface {
	CreateItem(ctx context.Context, sc StorageContext, item inventory.Item) (inventory.Item, error)
	RetrieveItem(ctx context.Context, sc StorageContext, id string) (inventory.Item, error)
	QueryItems(ctx context.Context, sc StorageContext, query string, paging client.Paging) (*ItemsResult, error)
	UpdateItem(ctx context.Context, sc StorageContext, item inventory.Item) error
	DeleteItem(ctx context.Context, sc StorageContext, id string) error
	DeleteAllItems(ctx context.Context, sc StorageContext) error
}

type InstanceManager interface {
	CreateInstance(ctx context.Context, sc StorageContext, instance inventory.Instance) (inventory.Instance, error)
	RetrieveInstance(ctx context.Context, sc StorageContext, id string) (inventory.Instance, error)
	QueryInstances(ctx context.Context, sc StorageContext, query string, paging client.Paging) (*InstancesResult, error)
	UpdateInstance(ctx context.Context, sc StorageContext, instance inventory.Instance) error
	DeleteInstance(ctx context.Context, sc StorageContext, id string) error
	DeleteAllInstances(ctx context.Context, sc StorageContext) error
}

type InventoryManager interface {
	ItemManager
	InstanceManager
}

const (
	RecordTypeItem     string = "item"
	RecordTypeInstance string = "instance"
)

type gatewayApp struct {
	storageURL  string
	collections Collections
	tenants     map[string]Tenant
	debug       string
	notifier    notifications.Notifier
}

type Option func(*gatewayApp)

func WithNotifier(notifier notifications.Notifier) Option {
	return func(app *gatewayApp) {
		app.notifier = notifier
	}
}

func WithClientDebug(enabled string) Option {
	return func(app *gatewayApp) {
		app.debug = enabled
	}
}

func New(ctx context.Context, cfg Config, options ...Option) (InventoryManager, error) {
	app := &gatewayApp{
		storageURL:  strings.TrimSuffix(cfg.StorageURL, "/"),
		collections: cfg.Collections.withDefaults(),
		tenants:     make(map[string]Tenant),
	}

	for _, tenant := range cfg.Tenants {
		app.tenants[tenant.ID] = tenant
	}

	for _, option := range options {
		option(app)
	}

	logging.GetFromContext(ctx).Info("inventory gateway configured", "storage_url", app.storageURL, "tenants", len(app.tenants))

	return app, nil
}

// storageFor works out which storage address to use for a request. A tenant
// specific address takes precedence over the address supplied with the request,
// which in turn takes precedence over the configured default.
func (app *gatewayApp) storageFor(sc StorageContext) (*storage, error) {
	base := app.storageURL

	if sc.URL != "" {
		base = strings.TrimSuffix(sc.URL, "/")
	}

	if len(app.tenants) > 0 {
		tenant, ok := app.tenants[sc.Tenant]
		if !ok {
			return nil, errors.NewUnknownTenantError(sc.Tenant)
		}

		if tenant.StorageURL != "" {
			base = strings.TrimSuffix(tenant.StorageURL, "/")
		}
	}

	if base == "" {
		return nil, errors.NewBadRequestError(fmt.Sprintf("no storage address available for tenant %s", sc.Tenant))
	}

	newClient := func(path string) client.CollectionClient {
		return client.NewCollectionClient(base+path,
			client.Tenant(sc.Tenant),
			client.Token(sc.Token),
			client.StorageURL(base),
			client.Debug(app.debug),
		)
	}

	return &storage{
		items:     inventory.NewItemCollection(newClient(app.collections.Items)),
		instances: inventory.NewInstanceCollection(newClient(app.collections.Instances)),
		resolver: references.NewResolver(
			inventory.NewMaterialTypeCollection(newClient(app.collections.MaterialTypes)),
			inventory.NewLoanTypeCollection(newClient(app.collections.LoanTypes)),
			inventory.NewLocationCollection(newClient(app.collections.Locations)),
		),
	}, nil
}

type storage struct {
	items     *collection.Collection[inventory.Item]
	instances *collection.Collection[inventory.Instance]
	resolver  *references.Resolver
}

func (app *gatewayApp) notify(ctx context.Context, operation, tenant, recordType, id string) {
	if app.notifier == nil {
		return
	}

	switch operation {
	case notifications.OperationCreated:
		app.notifier.RecordCreated(ctx, tenant, recordType, id)
	case notifications.OperationUpdated:
		app.notifier.RecordUpdated(ctx, tenant, recordType, id)
	case notifications.OperationDeleted:
		app.notifier.RecordDeleted(ctx, tenant, recordType, id)
	}
}
