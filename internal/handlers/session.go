package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/courselive-backend/internal/pkg/logger"
	"github.com/yungbote/courselive-backend/internal/requestdata"
	"github.com/yungbote/courselive-backend/internal/services"
	"github.com/yungbote/courselive-backend/internal/session"
)

type SessionHandler struct {
	log            *logger.Logger
	sessionService services.SessionService
}

func NewSessionHandler(log *logger.Logger, sessionService services.SessionService) *SessionHandler {
	return &SessionHandler{log: log.With("handler", "SessionHandler"), sessionService: sessionService}
}

func (sh *SessionHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req struct {
		Title      string                `json:"title"`
		Visibility string                `json:"visibility"`
		Blocks     []services.BlockInput `json:"blocks"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	sess, err := sh.sessionService.CreateSession(c.Request.Context(), nil, rd.UserID, req.Title, req.Visibility, req.Blocks)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// List returns the sessions the caller facilitates, newest first.
func (sh *SessionHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	sessions, err := sh.sessionService.ListSessions(c.Request.Context(), nil, rd.UserID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// StartTestRun opens an ephemeral rehearsal session. It lives only as long as
// the facilitator keeps it open and never touches storage.
func (sh *SessionHandler) StartTestRun(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req struct {
		Title  string                `json:"title"`
		Blocks []services.BlockInput `json:"blocks"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	snap, err := sh.sessionService.StartTestRun(c.Request.Context(), rd.UserID, req.Title, req.Blocks)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, snap)
}

func (sh *SessionHandler) GetSnapshot(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return
	}
	snap, err := sh.sessionService.GetSnapshot(c.Request.Context(), nil, sessionID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (sh *SessionHandler) Command(c *gin.Context) {
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

	var req struct {
		Command      string     `json:"command"`
		BlockID      *uuid.UUID `json:"block_id"`
		SkipPrevious bool       `json:"skip_previous"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	cmd := session.Command{Kind: req.Command, SkipPrevious: req.SkipPrevious}
	if req.BlockID != nil {
		cmd.BlockID = *req.BlockID
	}

	snap, err := sh.sessionService.Command(c.Request.Context(), rd.UserID, sessionID, cmd)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (sh *SessionHandler) Join(c *gin.Context) {
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

	var req struct {
		DisplayName string `json:"display_name"`
	}
	// Body is optional; a bare join uses the user's profile name.
	_ = c.ShouldBindJSON(&req)

	participant, err := sh.sessionService.Join(c.Request.Context(), nil, rd.UserID, sessionID, req.DisplayName)
	if err != nil {
		abortWithError(c, err)
		return
	}
	snap, err := sh.sessionService.GetSnapshot(c.Request.Context(), nil, sessionID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"participant": participant, "snapshot": snap})
}
