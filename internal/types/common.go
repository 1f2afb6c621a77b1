package types

import uuid "github.com/gofrs/uuid"

// HTTP Header Constants
const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
)

// Authentication Constants
const (
	BearerPrefix = "Bearer "
)

// System roles. Trainers may act on media owned by their squad members;
// members may only act on their own media.
const (
	MemberRole  = "member"
	TrainerRole = "trainer"
)

// UserCtxName is the fiber.Ctx locals key holding the authenticated UserContext.
const UserCtxName = "user"

// UserContext carries the authenticated caller identity extracted from the JWT.
type UserContext struct {
	UserID      uuid.UUID
	Username    string
	DisplayName string
	SystemRole  string
}
