package models

// Role is the account type of a user. The set of roles is closed.
type Role string

// Role constants
const (
	RoleBuyer  Role = "BUYER"
	RoleSeller Role = "SELLER"
)

// ParseRole converts a raw role string into a Role.
//
// Only the exact values "BUYER" and "SELLER" are accepted.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleBuyer:
		return RoleBuyer, true
	case RoleSeller:
		return RoleSeller, true
	default:
		return "", false
	}
}

// Capability is the set of roles an operation is open to
type Capability int

// Capability constants
const (
	CapabilityBuyer Capability = iota + 1
	CapabilitySeller
	CapabilityBuyerOrSeller
)

// Authorize checks that a role is allowed by the capability.
func Authorize(role Role, capability Capability) error {
	switch capability {
	case CapabilityBuyer:
		if role != RoleBuyer {
			return ErrNotBuyer
		}
		return nil
	case CapabilitySeller:
		if role != RoleSeller {
			return ErrNotSeller
		}
		return nil
	case CapabilityBuyerOrSeller:
		switch role {
		case RoleBuyer, RoleSeller:
			return nil
		default:
			return ErrNotBuyerOrSeller
		}
	default:
		return ErrNotBuyerOrSeller
	}
}

// User represents a user in the system
type User struct {
	ID             int
	Username       string
	HashedPassword string
	Role           Role
	Deposit        *int // nil for sellers
	Disabled       bool
}

// UserResponse is the externally visible view of a user, it never carries password data
type UserResponse struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Deposit  *int   `json:"deposit"`
	Disabled bool   `json:"disabled"`
}

// ToResponse projects the user into its password-stripped view
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:       u.ID,
		Username: u.Username,
		Role:     u.Role,
		Deposit:  u.Deposit,
		Disabled: u.Disabled,
	}
}

// CreateUserRequest represents a registration request.
//
// Deposit and HashedPassword are server-controlled, they are decoded only to reject clients that send them.
type CreateUserRequest struct {
	Username       string  `json:"username"`
	Role           string  `json:"role"`
	Password       string  `json:"password"`
	Deposit        *int    `json:"deposit,omitempty"`
	HashedPassword *string `json:"hashed_password,omitempty"`
}

// UpdateUserRequest represents a partial user update
type UpdateUserRequest struct {
	Password       *string `json:"password,omitempty"`
	Disabled       *bool   `json:"disabled,omitempty"`
	Role           *string `json:"role,omitempty"`
	Deposit        *int    `json:"deposit,omitempty"`
	HashedPassword *string `json:"hashed_password,omitempty"`
}

// Principal is the authenticated caller of a request
type Principal struct {
	User      User
	SessionID int
}

// TokenResponse is returned by the token endpoint
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
