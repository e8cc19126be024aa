// Package bus provides the pub/sub event bus that decouples the pipeline
// stages. The transport is notification-only: no acknowledgement, no
// persistence, at-most-once delivery. Anything that looks like request/reply
// is layered on top by convention (see internal/sessions).
package bus

import "github.com/dayuer/starfish-go/internal/event"

// Handler is invoked once per received event, in registration order.
type Handler func(event.Event)

// Bus is the pub/sub contract every stage talks to. Publishers see their own
// events. A subscriber that is not connected at publish time never receives
// that event, which is why consumers must treat non-response as a timeout,
// never as a negative acknowledgement.
type Bus interface {
	// Publish broadcasts payload on the channel named by name. An empty
	// correlationID starts a new causal chain.
	Publish(name event.Name, payload any, correlationID string) error

	// Subscribe registers handler for every event broadcast on name.
	// Multiple handlers per name are allowed; the underlying channel is
	// opened once per (process, name).
	Subscribe(name event.Name, handler Handler)

	// Close releases transport resources.
	Close() error
}
