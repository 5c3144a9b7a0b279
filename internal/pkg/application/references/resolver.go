package references

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/diwise/inventory/pkg/async"
	"github.com/diwise/inventory/pkg/inventory"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type ReferenceCollection interface {
	FindByID(ctx context.Context, id string) (inventory.Reference, bool, error)
}

const (
	MaterialTypes string = "material-types"
	LoanTypes     string = "loan-types"
	Locations     string = "locations"
)

// Unresolved is a reference that could not be looked up because storage failed.
// References that simply do not exist are not reported.
type Unresolved struct {
	Collection string
	ID         string
	Err        error
}

type Result struct {
	Items      []inventory.Item
	Unresolved []Unresolved
}

// Complete reports if every lookup in the batch got an answer from storage
func (r Result) Complete() bool {
	return len(r.Unresolved) == 0
}

type Resolver struct {
	collections map[string]ReferenceCollection
}

var tracer = otel.Tracer("inventory/references")

func NewResolver(materialTypes, loanTypes, locations ReferenceCollection) *Resolver {
	return &Resolver{
		collections: map[string]ReferenceCollection{
			MaterialTypes: materialTypes,
			LoanTypes:     loanTypes,
			Locations:     locations,
		},
	}
}

// Resolve blocks until every reference in items has been looked up and
// returns copies of the items with reference names filled in
func (r *Resolver) Resolve(ctx context.Context, items []inventory.Item) Result {
	resultChan := make(chan Result, 1)

	r.ResolveAsync(ctx, items, func(result Result) {
		resultChan <- result
	})

	return <-resultChan
}

// ResolveAsync issues one lookup per distinct reference id and collection, and
// calls onComplete exactly once when all of them have finished, successfully or not.
// Lookup failures never fail the batch; the affected references keep their id only.
func (r *Resolver) ResolveAsync(ctx context.Context, items []inventory.Item, onComplete func(Result)) {
	ctx, span := tracer.Start(ctx, "resolve-references",
		trace.WithAttributes(attribute.Int("items", len(items))),
	)

	log := logging.GetFromContext(ctx)

	wanted := distinctReferences(items)

	mu := sync.Mutex{}
	found := map[string]map[string]string{
		MaterialTypes: {},
		LoanTypes:     {},
		Locations:     {},
	}
	unresolved := []Unresolved{}

	barrier := async.NewBarrier()
	barrier.OnAllComplete(func() {
		mu.Lock()
		result := Result{
			Items:      merge(items, found),
			Unresolved: unresolved,
		}
		mu.Unlock()

		slices.SortFunc(result.Unresolved, func(a, b Unresolved) int {
			if c := strings.Compare(a.Collection, b.Collection); c != 0 {
				return c
			}
			return strings.Compare(a.ID, b.ID)
		})

		span.SetAttributes(attribute.Int("unresolved", len(result.Unresolved)))
		span.End()

		onComplete(result)
	})

	lookupCount := 0

	for _, name := range []string{MaterialTypes, LoanTypes, Locations} {
		c := r.collections[name]

		for _, id := range wanted[name] {
			lookupCount++
			done := barrier.Register()

			async.Run(ctx,
				func(ctx context.Context) (inventory.Reference, error) {
					ref, ok, err := c.FindByID(ctx, id)
					if err == nil && !ok {
						ref = inventory.Reference{}
					}
					return ref, err
				},
				func(ref inventory.Reference) {
					defer done()

					if ref.ID == "" {
						lookups.WithLabelValues(name, outcomeAbsent).Inc()
						log.Debug("reference does not exist", "collection", name, "id", id)
						return
					}

					lookups.WithLabelValues(name, outcomeResolved).Inc()

					mu.Lock()
					found[name][id] = ref.Name
					mu.Unlock()
				},
				func(err error) {
					defer done()

					lookups.WithLabelValues(name, outcomeFailed).Inc()
					log.Warn("failed to look up reference", "collection", name, "id", id, "err", err.Error())

					mu.Lock()
					unresolved = append(unresolved, Unresolved{Collection: name, ID: id, Err: err})
					mu.Unlock()
				},
			)
		}
	}

	batches.Observe(float64(lookupCount))

	barrier.Close()
}

// distinctReferences returns the unique ids per reference collection, in order
// of first appearance. Loan types and locations are shared between the permanent
// and temporary roles.
func distinctReferences(items []inventory.Item) map[string][]string {
	seen := map[string]map[string]bool{
		MaterialTypes: {},
		LoanTypes:     {},
		Locations:     {},
	}
	wanted := map[string][]string{}

	add := func(collection string, ref *inventory.Reference) {
		id := ref.IDOrEmpty()
		if id == "" || seen[collection][id] {
			return
		}
		seen[collection][id] = true
		wanted[collection] = append(wanted[collection], id)
	}

	for _, item := range items {
		add(MaterialTypes, item.MaterialType)
		add(LoanTypes, item.PermanentLoanType)
		add(LoanTypes, item.TemporaryLoanType)
		add(Locations, item.PermanentLocation)
		add(Locations, item.TemporaryLocation)
	}

	return wanted
}

func merge(items []inventory.Item, found map[string]map[string]string) []inventory.Item {
	resolve := func(collection string, ref *inventory.Reference) *inventory.Reference {
		if ref == nil {
			return nil
		}

		resolved := &inventory.Reference{ID: ref.ID}
		if name, ok := found[collection][ref.ID]; ok {
			resolved.Name = name
		}

		return resolved
	}

	merged := make([]inventory.Item, 0, len(items))

	for _, item := range items {
		item.MaterialType = resolve(MaterialTypes, item.MaterialType)
		item.PermanentLoanType = resolve(LoanTypes, item.PermanentLoanType)
		item.TemporaryLoanType = resolve(LoanTypes, item.TemporaryLoanType)
		item.PermanentLocation = resolve(Locations, item.PermanentLocation)
		item.TemporaryLocation = resolve(Locations, item.TemporaryLocation)

		merged = append(merged, item)
	}

	return merged
}
