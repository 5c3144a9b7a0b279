package inventory

import (
	"encoding/json"
	"fmt"

	"github.com/diwise/inventory/pkg/storage/client"
	"github.com/diwise/inventory/pkg/storage/collection"
)

const (
	ItemsPath         string = "/item-storage/items"
	InstancesPath     string = "/instance-storage/instances"
	MaterialTypesPath string = "/material-types"
	LoanTypesPath     string = "/loan-types"
	LocationsPath     string = "/shelf-locations"
)

type itemRecord struct {
	ID                  string  `json:"id"`
	Title               string  `json:"title,omitempty"`
	Barcode             string  `json:"barcode,omitempty"`
	InstanceID          string  `json:"instanceId,omitempty"`
	Status              *Status `json:"status,omitempty"`
	MaterialTypeID      string  `json:"materialTypeId,omitempty"`
	PermanentLoanTypeID string  `json:"permanentLoanTypeId,omitempty"`
	TemporaryLoanTypeID string  `json:"temporaryLoanTypeId,omitempty"`
	PermanentLocationID string  `json:"permanentLocationId,omitempty"`
	TemporaryLocationID string  `json:"temporaryLocationId,omitempty"`
}

type instanceRecord struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	InstanceTypeID string       `json:"instanceTypeId,omitempty"`
	Source         string       `json:"source,omitempty"`
	Identifiers    []Identifier `json:"identifiers"`
	Creators       []Creator    `json:"creators"`
}

func EncodeItem(item Item) ([]byte, error) {
	return json.Marshal(itemRecord{
		ID:                  item.ID,
		Title:               item.Title,
		Barcode:             item.Barcode,
		InstanceID:          item.InstanceID,
		Status:              item.Status,
		MaterialTypeID:      item.MaterialType.IDOrEmpty(),
		PermanentLoanTypeID: item.PermanentLoanType.IDOrEmpty(),
		TemporaryLoanTypeID: item.TemporaryLoanType.IDOrEmpty(),
		PermanentLocationID: item.PermanentLocation.IDOrEmpty(),
		TemporaryLocationID: item.TemporaryLocation.IDOrEmpty(),
	})
}

// DecodeItem fails if the record has no id
func DecodeItem(b []byte) (Item, error) {
	r := itemRecord{}
	if err := json.Unmarshal(b, &r); err != nil {
		return Item{}, err
	}

	if r.ID == "" {
		return Item{}, fmt.Errorf("item record has no id")
	}

	return Item{
		ID:                r.ID,
		Title:             r.Title,
		Barcode:           r.Barcode,
		InstanceID:        r.InstanceID,
		Status:            r.Status,
		MaterialType:      NewReference(r.MaterialTypeID),
		PermanentLoanType: NewReference(r.PermanentLoanTypeID),
		TemporaryLoanType: NewReference(r.TemporaryLoanTypeID),
		PermanentLocation: NewReference(r.PermanentLocationID),
		TemporaryLocation: NewReference(r.TemporaryLocationID),
	}, nil
}

func EncodeInstance(instance Instance) ([]byte, error) {
	r := instanceRecord{
		ID:             instance.ID,
		Title:          instance.Title,
		InstanceTypeID: instance.InstanceTypeID,
		Source:         instance.Source,
		Identifiers:    instance.Identifiers,
		Creators:       instance.Creators,
	}

	if r.Identifiers == nil {
		r.Identifiers = []Identifier{}
	}

	if r.Creators == nil {
		r.Creators = []Creator{}
	}

	return json.Marshal(r)
}

// DecodeInstance fails if the record has no id or no title
func DecodeInstance(b []byte) (Instance, error) {
	r := instanceRecord{}
	if err := json.Unmarshal(b, &r); err != nil {
		return Instance{}, err
	}

	if r.ID == "" {
		return Instance{}, fmt.Errorf("instance record has no id")
	}

	if r.Title == "" {
		return Instance{}, fmt.Errorf("instance record %s has no title", r.ID)
	}

	return Instance{
		ID:             r.ID,
		Title:          r.Title,
		InstanceTypeID: r.InstanceTypeID,
		Source:         r.Source,
		Identifiers:    r.Identifiers,
		Creators:       r.Creators,
	}, nil
}

// DecodeReference reads a record from one of the reference collections,
// keeping only its id and name
func DecodeReference(b []byte) (Reference, error) {
	r := Reference{}
	if err := json.Unmarshal(b, &r); err != nil {
		return Reference{}, err
	}

	if r.ID == "" {
		return Reference{}, fmt.Errorf("reference record has no id")
	}

	return r, nil
}

var ItemMapping = collection.Mapping[Item]{
	Envelope: "items",
	Encode:   EncodeItem,
	Decode:   DecodeItem,
	IDOf:     func(i Item) string { return i.ID },
	WithID:   func(i Item, id string) Item { i.ID = id; return i },
}

var InstanceMapping = collection.Mapping[Instance]{
	Envelope: "instances",
	Encode:   EncodeInstance,
	Decode:   DecodeInstance,
	IDOf:     func(i Instance) string { return i.ID },
	WithID:   func(i Instance, id string) Instance { i.ID = id; return i },
}

func ReferenceMapping(envelope string) collection.Mapping[Reference] {
	return collection.Mapping[Reference]{
		Envelope: envelope,
		Encode:   func(r Reference) ([]byte, error) { return json.Marshal(r) },
		Decode:   DecodeReference,
		IDOf:     func(r Reference) string { return r.ID },
		WithID:   func(r Reference, id string) Reference { r.ID = id; return r },
	}
}

func NewItemCollection(c client.CollectionClient) *collection.Collection[Item] {
	return collection.New(c, ItemMapping)
}

func NewInstanceCollection(c client.CollectionClient) *collection.Collection[Instance] {
	return collection.New(c, InstanceMapping)
}

func NewMaterialTypeCollection(c client.CollectionClient) *collection.Collection[Reference] {
	return collection.New(c, ReferenceMapping("mtypes"))
}

func NewLoanTypeCollection(c client.CollectionClient) *collection.Collection[Reference] {
	return collection.New(c, ReferenceMapping("loantypes"))
}

func NewLocationCollection(c client.CollectionClient) *collection.Collection[Reference] {
	return collection.New(c, ReferenceMapping("shelflocations"))
}
