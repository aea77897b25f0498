// Package realtime provides the low-latency mirror used by live-viewing
// clients. The mirror is best-effort and independently consistent: writes
// happen strictly after the durable store commits, and a failed mirror write
// is logged by the caller, never propagated.
package realtime

import (
	"context"
	"fmt"
)

// Store is the minimal capability the bridge needs from its backend. Paths
// are slash-separated, keyed by professional identity. Any pub/sub or
// key-value backend can implement it.
type Store interface {
	// Write stores value at path, replacing any previous value, and notifies
	// live listeners on that path.
	Write(ctx context.Context, path string, value interface{}) error

	// Read unmarshals the value at path into dest. Returns ErrPathEmpty if
	// nothing is stored there.
	Read(ctx context.Context, path string, dest interface{}) error

	// Remove deletes the value at path.
	Remove(ctx context.Context, path string) error

	// Append adds value to the append-only stream at path. The backend may
	// cap the stream length; live listeners on the path are notified.
	Append(ctx context.Context, path string, value interface{}) error

	// BatchWrite stores all values in one round trip.
	BatchWrite(ctx context.Context, values map[string]interface{}) error
}

// Subscriber delivers raw payloads written to a path as they happen. The
// live websocket feed is built on this.
type Subscriber interface {
	// Subscribe returns a channel of payloads written to path and a cancel
	// function that releases the subscription.
	Subscribe(ctx context.Context, path string) (<-chan []byte, func(), error)
}

// Mirror tree paths, keyed by professional id.

func CurrentPath(professionalID string) string {
	return fmt.Sprintf("locations/%s/current", professionalID)
}

func StatusPath(professionalID string) string {
	return fmt.Sprintf("locations/%s/status", professionalID)
}

func TrackingPath(professionalID string) string {
	return fmt.Sprintf("locations/%s/tracking", professionalID)
}

func StreamPath(professionalID string) string {
	return fmt.Sprintf("locations/%s/stream", professionalID)
}

func SubscriberPath(professionalID, subscriberID string) string {
	return fmt.Sprintf("locations/%s/subscribers/%s", professionalID, subscriberID)
}
