package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/courselive-backend/internal/domain"
	apperrors "github.com/yungbote/courselive-backend/internal/pkg/errors"
	"github.com/yungbote/courselive-backend/internal/pkg/logger"
	"github.com/yungbote/courselive-backend/internal/requestdata"
	"github.com/yungbote/courselive-backend/internal/services"
)

type memUserRepo struct {
	byEmail map[string]*domain.User
}

func (m *memUserRepo) Create(ctx context.Context, tx *gorm.DB, row *domain.User) (*domain.User, error) {
	m.byEmail[row.Email] = row
	return row, nil
}

func (m *memUserRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: user %s", apperrors.ErrNotFound, id)
}

func (m *memUserRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*domain.User, error) {
	u, ok := m.byEmail[email]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", apperrors.ErrNotFound, email)
	}
	return u, nil
}

func (m *memUserRepo) EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	_, ok := m.byEmail[email]
	return ok, nil
}

func authTestRouter(t *testing.T) (*gin.Engine, string, uuid.UUID) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}

	authService := services.NewAuthService(nil, log, &memUserRepo{byEmail: map[string]*domain.User{}}, "test-secret", 3600)
	user, token, err := authService.Register(context.Background(), nil, "facilitator@example.com", "hunter22", "Facilitator")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	r := gin.New()
	r.Use(NewAuthMiddleware(log, authService).RequireAuth())
	r.GET("/whoami", func(c *gin.Context) {
		rd := requestdata.GetRequestData(c.Request.Context())
		if rd == nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": rd.UserID})
	})
	return r, token, user.ID
}

func TestRequireAuthAcceptsBearerHeader(t *testing.T) {
	r, token, _ := authTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestRequireAuthAcceptsQueryToken(t *testing.T) {
	// EventSource cannot set headers, so streams pass the token in the query.
	r, token, _ := authTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami?token="+token, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusOK)
	}
}

func TestRequireAuthRejectsMissingAndGarbageTokens(t *testing.T) {
	r, _, _ := authTestRouter(t)

	for name, header := range map[string]string{
		"missing":    "",
		"garbage":    "Bearer not.a.jwt",
		"bad-scheme": "Basic dXNlcjpwYXNz",
	} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: unexpected status: got=%d want=%d", name, rec.Code, http.StatusUnauthorized)
		}
	}
}
