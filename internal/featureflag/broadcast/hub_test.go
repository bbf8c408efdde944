package broadcast

import (
	"sync"
	"testing"
	"time"

	"github.com/seftec/platform/internal/featureflag/domain"
	"github.com/stretchr/testify/assert"
)

func TestHubFansOutToAllSubscribers(t *testing.T) {
	hub := NewHub()

	first := hub.Subscribe()
	second := hub.Subscribe()
	defer first.Close()
	defer second.Close()

	hub.Publish(domain.ChangeEvent{Name: "new_dashboard", Enabled: true})

	assert.Equal(t, "new_dashboard", receive(t, first).Name)
	assert.Equal(t, "new_dashboard", receive(t, second).Name)
}

func TestHubCloseIsolatesSubscription(t *testing.T) {
	hub := NewHub()

	closed := hub.Subscribe()
	live := hub.Subscribe()
	defer live.Close()

	closed.Close()
	hub.Publish(domain.ChangeEvent{Name: "bulk_payments"})

	assert.Equal(t, "bulk_payments", receive(t, live).Name)

	// The closed subscription signals done and no longer receives events.
	select {
	case <-closed.Done():
	default:
		t.Fatal("closed subscription did not signal done")
	}
	select {
	case event := <-closed.Events():
		t.Fatalf("closed subscription received %q", event.Name)
	default:
	}
}

// A publisher snapshots the subscriber set, may lose the CPU, and resumes its
// sends after one of those subscriptions closed. The stale send must be a
// no-op, never a panic.
func TestHubPublishWithStaleSnapshotSurvivesClose(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe()

	hub.mu.RLock()
	snapshot := make([]chan domain.ChangeEvent, 0, len(hub.subs))
	for _, ch := range hub.subs {
		snapshot = append(snapshot, ch)
	}
	hub.mu.RUnlock()

	sub.Close()

	for _, ch := range snapshot {
		select {
		case ch <- domain.ChangeEvent{Name: "bulk_payments"}:
		default:
		}
	}
}

func TestHubConcurrentPublishAndClose(t *testing.T) {
	hub := NewHub()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					hub.Publish(domain.ChangeEvent{Name: "new_dashboard"})
				}
			}
		}()
	}

	for i := 0; i < 2000; i++ {
		hub.Subscribe().Close()
	}

	close(stop)
	wg.Wait()
}

func TestHubCloseIsIdempotent(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe()
	sub.Close()
	sub.Close()
}

func TestHubPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe()
	defer sub.Close()

	// Overfill the subscriber buffer; Publish must drop rather than block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultSubscriberBuffer*2; i++ {
			hub.Publish(domain.ChangeEvent{Name: "new_dashboard"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestNilHubIsSafe(t *testing.T) {
	var hub *Hub
	hub.Publish(domain.ChangeEvent{Name: "noop"})
}

func receive(t *testing.T, sub *Subscription) domain.ChangeEvent {
	t.Helper()
	select {
	case event := <-sub.Events():
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return domain.ChangeEvent{}
	}
}
