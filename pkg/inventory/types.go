package inventory

// Reference points at a record in one of the reference collections. Name is
// only set once the reference has been resolved.
type Reference struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

func NewReference(id string) *Reference {
	if id == "" {
		return nil
	}
	return &Reference{ID: id}
}

func (r *Reference) IDOrEmpty() string {
	if r == nil {
		return ""
	}
	return r.ID
}

type Status struct {
	Name string `json:"name"`
}

type Item struct {
	ID         string
	Title      string
	Barcode    string
	InstanceID string
	Status     *Status

	MaterialType      *Reference
	PermanentLoanType *Reference
	TemporaryLoanType *Reference
	PermanentLocation *Reference
	TemporaryLocation *Reference
}

type Identifier struct {
	IdentifierTypeID string `json:"identifierTypeId"`
	Value            string `json:"value"`
}

type Creator struct {
	CreatorTypeID string `json:"creatorTypeId"`
	Name          string `json:"name"`
}

type Instance struct {
	ID             string
	Title          string
	InstanceTypeID string
	Source         string
	Identifiers    []Identifier
	Creators       []Creator
}
