package model

// User is the account profile returned by /auth/me
type User struct {
	ID           string `json:"id,omitempty"`
	Email        string `json:"email"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Address      string `json:"address"`
	PostalCode   string `json:"postal_code"`
	ProfileImage string `json:"profile_image,omitempty"` // Base64 encoded
}

// FullName returns "First Last" with surrounding spaces removed
func (u User) FullName() string {
	return joinName(u.FirstName, u.LastName)
}

// Registration is the payload for creating an account. The password is
// never kept after the request is sent.
type Registration struct {
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name" validate:"required"`
	Address    string `json:"address" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
}

// Credentials is the login payload
type Credentials struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// ProfileUpdate is the editable part of the profile
type ProfileUpdate struct {
	FirstName    string `json:"first_name" validate:"required"`
	LastName     string `json:"last_name" validate:"required"`
	Address      string `json:"address" validate:"required"`
	PostalCode   string `json:"postal_code" validate:"required"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// PasswordReset completes a forgot-password flow
type PasswordReset struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}
