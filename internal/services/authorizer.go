package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/courselive-backend/internal/data/repos"
)

// facilitatorAuthorizer answers CanFacilitate from session ownership. A
// richer deployment swaps in a roles-aware collaborator behind the same
// interface.
type facilitatorAuthorizer struct {
	sessions repos.SessionRepo
}

func NewFacilitatorAuthorizer(sessionRepo repos.SessionRepo) Authorizer {
	return &facilitatorAuthorizer{sessions: sessionRepo}
}

func (a *facilitatorAuthorizer) CanFacilitate(ctx context.Context, userID, sessionID uuid.UUID) (bool, error) {
	sess, err := a.sessions.GetByID(ctx, nil, sessionID)
	if err != nil {
		return false, err
	}
	return sess.FacilitatorID == userID, nil
}
