package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/scripture-study-backend/internal/domain"
	"github.com/yungbote/scripture-study-backend/internal/http/response"
	"github.com/yungbote/scripture-study-backend/internal/platform/ctxutil"
	"github.com/yungbote/scripture-study-backend/internal/platform/logger"
	"github.com/yungbote/scripture-study-backend/internal/realtime"
)

type RealtimeHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub

	mu      sync.Mutex
	clients map[uuid.UUID]*realtime.SSEClient // key: session id
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		log:     log.With("handler", "RealtimeHandler"),
		hub:     hub,
		clients: make(map[uuid.UUID]*realtime.SSEClient),
	}
}

// Stream holds an SSE connection open. A second stream from the same session
// replaces the first.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil || rd.SessionID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	client := h.hub.NewSSEClient(rd.UserID)

	h.mu.Lock()
	if existing, ok := h.clients[rd.SessionID]; ok {
		h.hub.CloseClient(existing)
	}
	h.clients[rd.SessionID] = client
	h.mu.Unlock()

	for _, ch := range channelsFor(rd) {
		h.hub.AddChannel(client, ch)
	}
	h.log.Debug("SSE stream open", "sse_client_id", client.ID, "user_id", rd.UserID, "session_id", rd.SessionID)

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	current, ok := h.clients[rd.SessionID]
	replaced := ok && current != client
	if !replaced {
		delete(h.clients, rd.SessionID)
	}
	h.mu.Unlock()
	if !replaced {
		h.hub.CloseClient(client)
	}
}

func channelsFor(rd *ctxutil.RequestData) []string {
	out := []string{realtime.UserChannel(rd.UserID), realtime.ChannelContent}
	if rd.Role == types.RoleAdmin {
		out = append(out, realtime.ChannelAdmin)
	}
	return out
}
