package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/courselive-backend/internal/domain"
	apperrors "github.com/yungbote/courselive-backend/internal/pkg/errors"
	"github.com/yungbote/courselive-backend/internal/pkg/logger"
	"github.com/yungbote/courselive-backend/internal/requestdata"
	"github.com/yungbote/courselive-backend/internal/services"
	"github.com/yungbote/courselive-backend/internal/sse"
)

type RealtimeHandler struct {
	log            *logger.Logger
	hub            *sse.Hub
	sessionService services.SessionService
	recorder       services.RecorderService
}

func NewRealtimeHandler(log *logger.Logger, hub *sse.Hub, sessionService services.SessionService, recorder services.RecorderService) *RealtimeHandler {
	return &RealtimeHandler{
		log:            log.With("handler", "RealtimeHandler"),
		hub:            hub,
		sessionService: sessionService,
		recorder:       recorder,
	}
}

// Stream opens the session's SSE feed. The first frames are a fresh snapshot
// and the caller's own progress summary, so a client that reconnects after
// missing any number of pushes converges immediately without replay.
func (rh *RealtimeHandler) Stream(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}

	snap, err := rh.sessionService.GetSnapshot(c.Request.Context(), nil, sessionID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if snap.Status == domain.SessionStatusEnded {
		// Nothing will ever be pushed again; the client should read the
		// terminal snapshot and stop reconnecting.
		c.JSON(http.StatusGone, gin.H{
			"error":    apperrors.ErrStaleSubscription.Error(),
			"snapshot": snap,
		})
		return
	}

	channel := sessionID.String()
	client := rh.hub.NewClient(rd.UserID)
	rh.hub.Subscribe(client, channel)
	rh.log.Info("stream open", "userID", rd.UserID, "sessionID", sessionID)

	// Guarded sends: the session can end between Subscribe and here, closing
	// the client underneath us.
	rh.hub.Send(client, sse.Envelope{Channel: channel, Event: sse.EventSessionSnapshot, Data: snap})
	if summary, err := rh.recorder.Summary(c.Request.Context(), nil, rd.UserID, sessionID, domain.BlockOwnerSession); err == nil {
		rh.hub.Send(client, sse.Envelope{Channel: channel, Event: sse.EventProgressUpdated, Data: summary})
	}

	rh.hub.ServeHTTP(c.Writer, c.Request, client)

	rh.hub.CloseClient(client)
	// A facilitator dropping off a rehearsal takes the whole room with them.
	rh.sessionService.CloseTestRun(rd.UserID, sessionID)
	rh.log.Info("stream closed", "userID", rd.UserID, "sessionID", sessionID)
}
