package realtime

import (
	"github.com/google/uuid"
)

// clientBuffer is how many undelivered messages a slow client may hold before
// new ones are dropped for it.
const clientBuffer = 32

// SSEClient is one open event stream. Channels is guarded by the hub's lock.
type SSEClient struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
}

func (hub *SSEHub) NewSSEClient(userID uuid.UUID) *SSEClient {
	return &SSEClient{
		ID:       uuid.New(),
		UserID:   userID,
		Channels: make(map[string]bool),
		Outbound: make(chan SSEMessage, clientBuffer),
		done:     make(chan struct{}),
	}
}
