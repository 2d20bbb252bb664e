package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/courselive-backend/internal/pkg/logger"
	"github.com/yungbote/courselive-backend/internal/requestdata"
	"github.com/yungbote/courselive-backend/internal/services"
)

type SubmissionHandler struct {
	log      *logger.Logger
	recorder services.RecorderService
}

func NewSubmissionHandler(log *logger.Logger, recorder services.RecorderService) *SubmissionHandler {
	return &SubmissionHandler{log: log.With("handler", "SubmissionHandler"), recorder: recorder}
}

// Submit records one participant answer. The subject always comes from the
// authenticated user, never from the body, and submitted_at is stamped here
// so client clocks cannot skew completion times.
func (sh *SubmissionHandler) Submit(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req struct {
		BlockID           uuid.UUID       `json:"block_id"`
		ScopeID           uuid.UUID       `json:"scope_id"`
		Payload           json.RawMessage `json:"payload"`
		State             json.RawMessage `json:"state"`
		Score             *float64        `json:"score"`
		CompletionQuality *float64        `json:"completion_quality"`
		StartedAt         time.Time       `json:"started_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.BlockID == uuid.Nil || req.ScopeID == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "block_id and scope_id are required"})
		return
	}

	result, err := sh.recorder.Record(c.Request.Context(), nil, services.Submission{
		SubjectID:         rd.UserID,
		BlockID:           req.BlockID,
		ScopeID:           req.ScopeID,
		Payload:           req.Payload,
		State:             req.State,
		Score:             req.Score,
		CompletionQuality: req.CompletionQuality,
		StartedAt:         req.StartedAt,
		SubmittedAt:       time.Now().UTC(),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
