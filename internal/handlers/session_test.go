package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courselive-backend/internal/domain"
	"github.com/yungbote/courselive-backend/internal/pkg/logger"
	"github.com/yungbote/courselive-backend/internal/requestdata"
	"github.com/yungbote/courselive-backend/internal/services"
	"github.com/yungbote/courselive-backend/internal/session"
)

// stubSessionService records the last command it was asked to apply.
type stubSessionService struct {
	lastUserID  uuid.UUID
	lastSession uuid.UUID
	lastCommand session.Command
}

func (s *stubSessionService) CreateSession(ctx context.Context, tx *gorm.DB, facilitatorID uuid.UUID, title, visibility string, blocks []services.BlockInput) (*domain.Session, error) {
	return &domain.Session{ID: uuid.New(), FacilitatorID: facilitatorID, Title: title}, nil
}

func (s *stubSessionService) ListSessions(ctx context.Context, tx *gorm.DB, facilitatorID uuid.UUID) ([]*domain.Session, error) {
	return nil, nil
}

func (s *stubSessionService) GetSnapshot(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (domain.SessionSnapshot, error) {
	return domain.SessionSnapshot{SessionID: sessionID}, nil
}

func (s *stubSessionService) Command(ctx context.Context, userID, sessionID uuid.UUID, cmd session.Command) (domain.SessionSnapshot, error) {
	s.lastUserID = userID
	s.lastSession = sessionID
	s.lastCommand = cmd
	return domain.SessionSnapshot{SessionID: sessionID}, nil
}

func (s *stubSessionService) Join(ctx context.Context, tx *gorm.DB, userID, sessionID uuid.UUID, displayName string) (*domain.Participant, error) {
	return nil, nil
}

func (s *stubSessionService) StartTestRun(ctx context.Context, facilitatorID uuid.UUID, title string, blocks []services.BlockInput) (domain.SessionSnapshot, error) {
	return domain.SessionSnapshot{SessionID: uuid.New()}, nil
}

func (s *stubSessionService) CloseTestRun(facilitatorID, sessionID uuid.UUID) {}

func withUser(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := requestdata.WithRequestData(c.Request.Context(), &requestdata.RequestData{UserID: userID})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func TestCommandBindsDocumentedWireFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}

	stub := &stubSessionService{}
	userID := uuid.New()
	sessionID := uuid.New()
	blockID := uuid.New()

	r := gin.New()
	r.Use(withUser(userID))
	r.POST("/sessions/:id/commands", NewSessionHandler(log, stub).Command)

	body := `{"command":"play","block_id":"` + blockID.String() + `","skip_previous":true}`
	req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionID.String()+"/commands", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if stub.lastUserID != userID || stub.lastSession != sessionID {
		t.Fatalf("routing: user=%s session=%s", stub.lastUserID, stub.lastSession)
	}
	if stub.lastCommand.Kind != session.CommandPlay {
		t.Fatalf("command kind: got %q, want %q", stub.lastCommand.Kind, session.CommandPlay)
	}
	if stub.lastCommand.BlockID != blockID || !stub.lastCommand.SkipPrevious {
		t.Fatalf("command payload: %+v", stub.lastCommand)
	}
}
