package references

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/diwise/inventory/pkg/inventory"
	"github.com/diwise/inventory/pkg/storage/client"
	"github.com/diwise/inventory/pkg/storage/storagetest"
	"github.com/matryer/is"
)

func TestThatSharedReferencesAreLookedUpOnce(t *testing.T) {
	is, ctx, r, s := testSetup(t)
	defer s.Close()

	items := []inventory.Item{}
	for range 10 {
		items = append(items, inventory.Item{
			ID:                "item",
			MaterialType:      inventory.NewReference("book"),
			PermanentLoanType: inventory.NewReference("can-circulate"),
			TemporaryLoanType: inventory.NewReference("can-circulate"),
			PermanentLocation: inventory.NewReference("main-library"),
		})
	}

	result := r.Resolve(ctx, items)

	is.True(result.Complete())
	is.Equal(s.RequestCount(storagetest.MaterialTypesPath+"/book"), 1)
	is.Equal(s.RequestCount(storagetest.LoanTypesPath+"/can-circulate"), 1)
	is.Equal(s.RequestCount(storagetest.LocationsPath+"/main-library"), 1)

	for _, item := range result.Items {
		is.Equal(item.MaterialType.Name, "Book")
		is.Equal(item.PermanentLoanType.Name, "Can Circulate")
		is.Equal(item.TemporaryLoanType.Name, "Can Circulate")
		is.Equal(item.PermanentLocation.Name, "Main Library")
	}
}

func TestFiveItemsWithOneFailingLocation(t *testing.T) {
	is, ctx, r, s := testSetup(t)
	defer s.Close()

	s.Fail(storagetest.LocationsPath+"/annex", http.StatusInternalServerError)

	items := []inventory.Item{
		{ID: "1", MaterialType: inventory.NewReference("book"), PermanentLocation: inventory.NewReference("main-library")},
		{ID: "2", MaterialType: inventory.NewReference("book"), PermanentLocation: inventory.NewReference("third-floor")},
		{ID: "3", MaterialType: inventory.NewReference("dvd"), PermanentLocation: inventory.NewReference("annex")},
		{ID: "4", MaterialType: inventory.NewReference("dvd"), PermanentLocation: inventory.NewReference("main-library")},
		{ID: "5", MaterialType: inventory.NewReference("book"), PermanentLocation: inventory.NewReference("third-floor")},
	}

	result := r.Resolve(ctx, items)

	is.Equal(s.RequestCountWithPrefix(storagetest.MaterialTypesPath), 2)
	is.Equal(s.RequestCountWithPrefix(storagetest.LocationsPath), 3)
	is.Equal(s.RequestCountWithPrefix(storagetest.LoanTypesPath), 0)

	is.Equal(len(result.Items), 5)
	is.Equal(result.Items[2].PermanentLocation.ID, "annex")
	is.Equal(result.Items[2].PermanentLocation.Name, "")
	is.Equal(result.Items[2].MaterialType.Name, "DVD")
	is.Equal(result.Items[3].PermanentLocation.Name, "Main Library")

	is.Equal(len(result.Unresolved), 1)
	is.Equal(result.Unresolved[0].Collection, Locations)
	is.Equal(result.Unresolved[0].ID, "annex")
}

func TestMissingReferenceLeavesNameEmpty(t *testing.T) {
	is, ctx, r, s := testSetup(t)
	defer s.Close()

	result := r.Resolve(ctx, []inventory.Item{
		{ID: "1", MaterialType: inventory.NewReference("does-not-exist")},
	})

	is.True(result.Complete())
	is.Equal(result.Items[0].MaterialType.ID, "does-not-exist")
	is.Equal(result.Items[0].MaterialType.Name, "")
}

func TestTransportFailureLeavesNameEmpty(t *testing.T) {
	is := is.New(t)

	s := storagetest.NewServer()
	storageURL := s.URL()
	s.Close()

	r := newResolver(storageURL)
	result := r.Resolve(context.Background(), []inventory.Item{
		{ID: "1", MaterialType: inventory.NewReference("book")},
	})

	is.Equal(result.Items[0].MaterialType.Name, "")
	is.Equal(len(result.Unresolved), 1)
}

func TestBatchWithoutReferencesCompletesWithoutLookups(t *testing.T) {
	is, ctx, r, s := testSetup(t)
	defer s.Close()

	calls := atomic.Int32{}
	r.ResolveAsync(ctx, []inventory.Item{{ID: "1"}, {ID: "2"}}, func(result Result) {
		calls.Add(1)
		is.Equal(len(result.Items), 2)
	})

	is.Equal(calls.Load(), int32(1))
	is.Equal(s.RequestCountWithPrefix("/"), 0)
}

func TestEmptyBatchCompletesOnce(t *testing.T) {
	is, ctx, r, s := testSetup(t)
	defer s.Close()

	result := r.Resolve(ctx, nil)

	is.Equal(len(result.Items), 0)
	is.True(result.Complete())
}

func TestContinuationFiresOnceWithDelayedLookups(t *testing.T) {
	is, ctx, r, s := testSetup(t)
	defer s.Close()

	s.Delay(storagetest.MaterialTypesPath+"/book", 30*time.Millisecond)
	s.Delay(storagetest.LocationsPath+"/annex", 10*time.Millisecond)

	calls := atomic.Int32{}
	done := make(chan Result, 2)

	r.ResolveAsync(ctx, []inventory.Item{
		{ID: "1", MaterialType: inventory.NewReference("book"), PermanentLocation: inventory.NewReference("annex")},
		{ID: "2", MaterialType: inventory.NewReference("dvd"), TemporaryLocation: inventory.NewReference("main-library")},
	}, func(result Result) {
		calls.Add(1)
		done <- result
	})

	result := <-done
	time.Sleep(50 * time.Millisecond)

	is.Equal(calls.Load(), int32(1))
	is.Equal(result.Items[0].MaterialType.Name, "Book")
	is.Equal(result.Items[1].TemporaryLocation.Name, "Main Library")
}

func TestInputItemsAreNotModified(t *testing.T) {
	is, ctx, r, s := testSetup(t)
	defer s.Close()

	items := []inventory.Item{{ID: "1", MaterialType: inventory.NewReference("book")}}
	r.Resolve(ctx, items)

	is.Equal(items[0].MaterialType.Name, "")
}

func testSetup(t *testing.T) (*is.I, context.Context, *Resolver, *storagetest.Server) {
	is := is.New(t)

	s := storagetest.NewServer()

	is.NoErr(s.Seed(storagetest.MaterialTypesPath,
		inventory.Reference{ID: "book", Name: "Book"},
		inventory.Reference{ID: "dvd", Name: "DVD"},
	))
	is.NoErr(s.Seed(storagetest.LoanTypesPath,
		inventory.Reference{ID: "can-circulate", Name: "Can Circulate"},
	))
	is.NoErr(s.Seed(storagetest.LocationsPath,
		inventory.Reference{ID: "main-library", Name: "Main Library"},
		inventory.Reference{ID: "third-floor", Name: "Third Floor"},
		inventory.Reference{ID: "annex", Name: "Annex"},
	))

	return is, context.Background(), newResolver(s.URL()), s
}

func newResolver(storageURL string) *Resolver {
	return NewResolver(
		inventory.NewMaterialTypeCollection(client.NewCollectionClient(storageURL+inventory.MaterialTypesPath)),
		inventory.NewLoanTypeCollection(client.NewCollectionClient(storageURL+inventory.LoanTypesPath)),
		inventory.NewLocationCollection(client.NewCollectionClient(storageURL+inventory.LocationsPath)),
	)
}
