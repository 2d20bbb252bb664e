package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/courselive-backend/internal/domain"
	"github.com/yungbote/courselive-backend/internal/pkg/logger"
	"github.com/yungbote/courselive-backend/internal/requestdata"
	"github.com/yungbote/courselive-backend/internal/services"
)

type ProgressHandler struct {
	log      *logger.Logger
	recorder services.RecorderService
}

func NewProgressHandler(log *logger.Logger, recorder services.RecorderService) *ProgressHandler {
	return &ProgressHandler{log: log.With("handler", "ProgressHandler"), recorder: recorder}
}

func (ph *ProgressHandler) GetLessonProgress(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lesson id"})
		return
	}

	summary, err := ph.recorder.Summary(c.Request.Context(), nil, rd.UserID, lessonID, domain.BlockOwnerLesson)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetSessionAnalytics returns per-participant summaries for a session. The
// recorder enforces that only the facilitator may read it.
func (ph *ProgressHandler) GetSessionAnalytics(c *gin.Context) {
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

	analytics, err := ph.recorder.Analytics(c.Request.Context(), nil, rd.UserID, sessionID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, analytics)
}

// ResetLessonProgress wipes the caller's records for a lesson so they can run
// it again from the top.
func (ph *ProgressHandler) ResetLessonProgress(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	lessonID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lesson id"})
		return
	}

	if err := ph.recorder.Reset(c.Request.Context(), nil, rd.UserID, lessonID); err != nil {
		abortWithError(c, err)
		return
	}
	summary, err := ph.recorder.Summary(c.Request.Context(), nil, rd.UserID, lessonID, domain.BlockOwnerLesson)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
