package bus

import (
	"testing"

	"github.com/yungbote/scripture-study-backend/internal/realtime"
)

func TestDecodeMessage(t *testing.T) {
	t.Parallel()

	msg, err := decodeMessage(`{"channel":"content","event":"content.invalidated","data":{"namespace":"lessons"}}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Channel != realtime.ChannelContent || msg.Event != realtime.SSEEventContentInvalidated {
		t.Fatalf("unexpected message: %+v", msg)
	}

	for _, bad := range []string{`not json`, `{"event":"content.invalidated"}`, `{"channel":"content"}`} {
		if _, err := decodeMessage(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestNewRedisBusRequiresClient(t *testing.T) {
	t.Parallel()

	if _, err := NewRedisBus(nil, nil, "sse"); err == nil {
		t.Fatalf("expected error without logger")
	}
}
