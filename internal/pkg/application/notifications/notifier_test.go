package notifications

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	testutils "github.com/diwise/service-chassis/pkg/test/http"
	"github.com/diwise/service-chassis/pkg/test/http/expects"
	"github.com/diwise/service-chassis/pkg/test/http/response"
	"github.com/matryer/is"
)

var Expects = testutils.Expects
var Returns = testutils.Returns

var method = expects.RequestMethod
var bodyContaining = expects.RequestBodyContaining

func TestSingleNotificationOnCreate(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(
			is,
			method(http.MethodPost),
			bodyContaining(`"id":"fd5ab5b9"`),
			bodyContaining(`"operation":"created"`),
		),
		Returns(
			response.Code(http.StatusOK),
		),
	)
	defer s.Close()

	ctx := context.Background()
	n, _ := NewNotifier(ctx, s.URL())

	n.Start()
	n.RecordCreated(ctx, "diku", "item", "fd5ab5b9")
	n.Stop()

	is.Equal(s.RequestCount(), 1)
}

func TestNoNotificationsBeforeStart(t *testing.T) {
	is := is.New(t)

	s := testutils.NewMockServiceThat(
		Expects(is, expects.AnyInput()),
		Returns(response.Code(http.StatusOK)),
	)
	defer s.Close()

	ctx := context.Background()
	n, _ := NewNotifier(ctx, s.URL())

	n.RecordDeleted(ctx, "diku", "instance", "abc")

	is.Equal(s.RequestCount(), 0)
}

func TestNotifierRequiresEndpoint(t *testing.T) {
	is := is.New(t)

	_, err := NewNotifier(context.Background(), "")
	is.True(err != nil)
}

func TestRecordingWhileStoppingIsSafe(t *testing.T) {
	is := is.New(t)

	var posted atomic.Int32
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posted.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer s.Close()

	ctx := context.Background()
	n, _ := NewNotifier(ctx, s.URL)

	const rounds, writers, changes = 50, 8, 20

	for range rounds {
		is.NoErr(n.Start())

		wg := sync.WaitGroup{}
		for range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range changes {
					n.RecordCreated(ctx, "diku", "item", "fd5ab5b9")
				}
			}()
		}

		is.NoErr(n.Stop())
		wg.Wait()
	}

	is.True(posted.Load() <= rounds*writers*changes)

	// recorded after the last stop, so never posted
	before := posted.Load()
	n.RecordUpdated(ctx, "diku", "item", "fd5ab5b9")
	is.Equal(posted.Load(), before)
}

func TestFullQueueDropsNotifications(t *testing.T) {
	is := is.New(t)

	release := make(chan struct{})
	var posted atomic.Int32

	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		posted.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer s.Close()

	ctx := context.Background()
	n, _ := NewNotifier(ctx, s.URL)
	is.NoErr(n.Start())

	recorded := make(chan struct{})
	go func() {
		defer close(recorded)
		for range queueSize + 10 {
			n.RecordDeleted(ctx, "diku", "instance", "abc")
		}
	}()

	select {
	case <-recorded:
	case <-time.After(5 * time.Second):
		t.Fatal("recording changes blocked on a slow notification endpoint")
	}

	close(release)
	is.NoErr(n.Stop())

	is.True(posted.Load() > 0)
	is.True(posted.Load() <= int32(queueSize+1))
}
