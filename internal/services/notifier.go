package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/scripture-study-backend/internal/realtime"
)

// Notifier tells connected clients which cached views to refetch.
type Notifier interface {
	ContentChanged(ctx context.Context, namespace, entity string, id uuid.UUID)
	ProgressChanged(ctx context.Context, userID, lessonID uuid.UUID)
	BookmarksChanged(ctx context.Context, userID, lessonID uuid.UUID)
	RoleChanged(ctx context.Context, userID uuid.UUID, role string)
}

type notifier struct {
	emit SSEEmitter
}

func NewNotifier(emit SSEEmitter) Notifier {
	return &notifier{emit: emit}
}

func (n *notifier) ContentChanged(ctx context.Context, namespace, entity string, id uuid.UUID) {
	if n == nil || n.emit == nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.ChannelContent,
		Event:   realtime.SSEEventContentInvalidated,
		Data: map[string]any{
			"namespace": namespace,
			"entity":    entity,
			"id":        id,
		},
	})
}

func (n *notifier) ProgressChanged(ctx context.Context, userID, lessonID uuid.UUID) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.UserChannel(userID),
		Event:   realtime.SSEEventProgressInvalidated,
		Data:    map[string]any{"lesson_id": lessonID},
	})
}

func (n *notifier) BookmarksChanged(ctx context.Context, userID, lessonID uuid.UUID) {
	if n == nil || n.emit == nil || userID == uuid.Nil {
		return
	}
	n.emit.Emit(ctx, realtime.SSEMessage{
		Channel: realtime.UserChannel(userID),
		Event:   realtime.SSEEventBookmarksInvalidated,
		Data:    map[string]any{"lesson_id": lessonID},
	})
}

func (n *notifier) RoleChanged(ctx context.Context, userID uuid.UUID, role string) {
	if n == nil || n.emit == nil {
		return
	}
	data := map[string]any{"user_id": userID, "role": role}
	n.emit.Emit(ctx, realtime.SSEMessage{Channel: realtime.UserChannel(userID), Event: realtime.SSEEventUserRoleChanged, Data: data})
	n.emit.Emit(ctx, realtime.SSEMessage{Channel: realtime.ChannelAdmin, Event: realtime.SSEEventUserRoleChanged, Data: data})
}
