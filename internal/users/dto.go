package users

import (
	"github.com/angelmondragon/kiko-social-backend/internal/identity"
	"github.com/angelmondragon/kiko-social-backend/internal/profiles"
	"github.com/angelmondragon/kiko-social-backend/pkg/enums"
)

// CreateUserInput carries the fields an administrator supplies for a new user.
// An empty password asks the service to generate a temporary one.
type CreateUserInput struct {
	Email    string
	Password string
	Name     string
	Username string
	Bio      string
	Role     enums.Role
}

// CreatedUser is returned once on creation. TempPassword is only set when the
// password was generated and is never stored in clear.
type CreatedUser struct {
	Key          identity.Key  `json:"key"`
	Profile      profiles.View `json:"profile"`
	TempPassword string        `json:"temp_password,omitempty"`
}
