package auth

import (
	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/enums"
)

// Actor is the authenticated caller as seen by domain services.
type Actor struct {
	UserID   uuid.UUID
	Role     enums.UserRole
	AccessID string
}

// IsStaff reports staff or superuser access.
func (a Actor) IsStaff() bool {
	return a.Role.IsStaff()
}

// IsSuperuser reports superuser access.
func (a Actor) IsSuperuser() bool {
	return a.Role == enums.UserRoleSuperuser
}

// ActorFromClaims builds the actor carried by a verified access token.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, Role: claims.Role, AccessID: claims.ID}
}
