package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	return log
}

func recvMessage(t *testing.T, ch <-chan SSEMessage, timeout time.Duration) SSEMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for SSE message")
	}
	return SSEMessage{}
}

func TestSSEHubReconnectAndOrdering(t *testing.T) {
	t.Parallel()
	hub := NewSSEHub(mustTestLogger(t))
	channel := UserChannel(uuid.New())

	clientA := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientA, channel)

	first := SSEMessage{Channel: channel, Event: SSEEventProgressInvalidated, Data: map[string]any{"seq": 1}}
	second := SSEMessage{Channel: channel, Event: SSEEventBookmarksInvalidated, Data: map[string]any{"seq": 2}}
	hub.Broadcast(first)
	hub.Broadcast(second)

	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventProgressInvalidated {
		t.Fatalf("first event: want=%s got=%s", SSEEventProgressInvalidated, got.Event)
	}
	if got := recvMessage(t, clientA.Outbound, time.Second); got.Event != SSEEventBookmarksInvalidated {
		t.Fatalf("second event: want=%s got=%s", SSEEventBookmarksInvalidated, got.Event)
	}

	hub.CloseClient(clientA)
	if _, ok := <-clientA.Outbound; ok {
		t.Fatalf("clientA outbound should be closed after disconnect")
	}
	if n := hub.Subscribers(channel); n != 0 {
		t.Fatalf("subscribers after close: %d", n)
	}

	clientB := hub.NewSSEClient(uuid.New())
	hub.AddChannel(clientB, channel)
	hub.Broadcast(SSEMessage{Channel: channel, Event: SSEEventContentInvalidated})
	if got := recvMessage(t, clientB.Outbound, time.Second); got.Event != SSEEventContentInvalidated {
		t.Fatalf("reconnect event: got=%s", got.Event)
	}
}

func TestSSEHubChannelIsolation(t *testing.T) {
	t.Parallel()
	hub := NewSSEHub(mustTestLogger(t))
	a := hub.NewSSEClient(uuid.New())
	b := hub.NewSSEClient(uuid.New())
	hub.AddChannel(a, ChannelContent)
	hub.AddChannel(b, ChannelAdmin)

	hub.Broadcast(SSEMessage{Channel: ChannelAdmin, Event: SSEEventUserRoleChanged})
	recvMessage(t, b.Outbound, time.Second)
	select {
	case msg := <-a.Outbound:
		t.Fatalf("content subscriber got admin message: %+v", msg)
	default:
	}

	hub.RemoveChannel(b, ChannelAdmin)
	hub.Broadcast(SSEMessage{Channel: ChannelAdmin, Event: SSEEventUserRoleChanged})
	select {
	case msg := <-b.Outbound:
		t.Fatalf("unsubscribed client got message: %+v", msg)
	default:
	}
}

func TestSSEHubDropsWhenBufferFull(t *testing.T) {
	t.Parallel()
	hub := NewSSEHub(mustTestLogger(t))
	c := hub.NewSSEClient(uuid.New())
	hub.AddChannel(c, ChannelContent)
	for i := 0; i < cap(c.Outbound)+5; i++ {
		hub.Broadcast(SSEMessage{Channel: ChannelContent, Event: SSEEventContentInvalidated})
	}
	if len(c.Outbound) != cap(c.Outbound) {
		t.Fatalf("buffer: want full (%d) got %d", cap(c.Outbound), len(c.Outbound))
	}
}

func TestServeHTTPStreamsEvents(t *testing.T) {
	t.Parallel()
	hub := NewSSEHub(mustTestLogger(t))
	c := hub.NewSSEClient(uuid.New())
	hub.AddChannel(c, ChannelContent)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/events/stream", nil)

	done := make(chan struct{})
	go func() {
		hub.ServeHTTP(rec, req, c)
		close(done)
	}()
	hub.Broadcast(SSEMessage{Channel: ChannelContent, Event: SSEEventContentInvalidated, Data: map[string]any{"namespace": "lessons"}})
	time.Sleep(50 * time.Millisecond)
	hub.CloseClient(c)
	<-done

	body := rec.Body.String()
	if !strings.Contains(body, "event: content.invalidated") || !strings.Contains(body, `"namespace":"lessons"`) {
		t.Fatalf("unexpected stream body: %q", body)
	}
	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("content type: %q", rec.Header().Get("Content-Type"))
	}
}
