package inventoryapi

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/diwise/inventory/pkg/inventory"
)

type links struct {
	Self string `json:"self,omitempty"`
}

type itemRepresentation struct {
	ID                string               `json:"id,omitempty"`
	Title             string               `json:"title,omitempty"`
	Barcode           string               `json:"barcode,omitempty"`
	InstanceID        string               `json:"instanceId,omitempty"`
	Status            *inventory.Status    `json:"status,omitempty"`
	MaterialType      *inventory.Reference `json:"materialType,omitempty"`
	PermanentLoanType *inventory.Reference `json:"permanentLoanType,omitempty"`
	TemporaryLoanType *inventory.Reference `json:"temporaryLoanType,omitempty"`
	PermanentLocation *inventory.Reference `json:"permanentLocation,omitempty"`
	TemporaryLocation *inventory.Reference `json:"temporaryLocation,omitempty"`
	Links             *links               `json:"links,omitempty"`
}

type itemsRepresentation struct {
	Items        []itemRepresentation `json:"items"`
	TotalRecords int                  `json:"totalRecords"`
}

type instanceRepresentation struct {
	Context        string                 `json:"@context,omitempty"`
	ID             string                 `json:"id,omitempty"`
	Title          string                 `json:"title"`
	Source         string                 `json:"source,omitempty"`
	InstanceTypeID string                 `json:"instanceTypeId,omitempty"`
	Identifiers    []inventory.Identifier `json:"identifiers"`
	Creators       []inventory.Creator    `json:"creators"`
	Links          *links                 `json:"links,omitempty"`
}

type instancesRepresentation struct {
	Instances    []instanceRepresentation `json:"instances"`
	TotalRecords int                      `json:"totalRecords"`
}

var instanceContext = map[string]any{
	"@context": map[string]string{
		"dcterms": "http://purl.org/dc/terms/",
		"title":   "dcterms:title",
	},
}

// absoluteURL resolves path against the address the request was sent to
func absoluteURL(r *http.Request, path string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}

	if forwarded := r.Header.Get("X-Forwarded-Proto"); forwarded != "" {
		scheme = forwarded
	}

	u := url.URL{Scheme: scheme, Host: r.Host, Path: path}
	return u.String()
}

func itemToRepresentation(r *http.Request, item inventory.Item) itemRepresentation {
	return itemRepresentation{
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
		Links:             &links{Self: absoluteURL(r, fmt.Sprintf("%s/%s", ItemsPath, item.ID))},
	}
}

// representationToItem drops any reference names sent by the client, only ids are stored
func representationToItem(ir itemRepresentation) inventory.Item {
	reference := func(ref *inventory.Reference) *inventory.Reference {
		return inventory.NewReference(ref.IDOrEmpty())
	}

	return inventory.Item{
		ID:                ir.ID,
		Title:             ir.Title,
		Barcode:           ir.Barcode,
		InstanceID:        ir.InstanceID,
		Status:            ir.Status,
		MaterialType:      reference(ir.MaterialType),
		PermanentLoanType: reference(ir.PermanentLoanType),
		TemporaryLoanType: reference(ir.TemporaryLoanType),
		PermanentLocation: reference(ir.PermanentLocation),
		TemporaryLocation: reference(ir.TemporaryLocation),
	}
}

func instanceToRepresentation(r *http.Request, instance inventory.Instance) instanceRepresentation {
	ir := instanceRepresentation{
		Context:        absoluteURL(r, InstancesPath+"/context"),
		ID:             instance.ID,
		Title:          instance.Title,
		Source:         instance.Source,
		InstanceTypeID: instance.InstanceTypeID,
		Identifiers:    instance.Identifiers,
		Creators:       instance.Creators,
		Links:          &links{Self: absoluteURL(r, fmt.Sprintf("%s/%s", InstancesPath, instance.ID))},
	}

	if ir.Identifiers == nil {
		ir.Identifiers = []inventory.Identifier{}
	}

	if ir.Creators == nil {
		ir.Creators = []inventory.Creator{}
	}

	return ir
}

func representationToInstance(ir instanceRepresentation) inventory.Instance {
	return inventory.Instance{
		ID:             ir.ID,
		Title:          ir.Title,
		Source:         ir.Source,
		InstanceTypeID: ir.InstanceTypeID,
		Identifiers:    ir.Identifiers,
		Creators:       ir.Creators,
	}
}
