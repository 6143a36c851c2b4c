package models

// Profile defaults applied when the backend omits a field
const (
	DefaultName   = "Unknown User"
	DefaultEmail  = "no-email@example.com"
	DefaultPhone  = "N/A"
	DefaultAvatar = "/placeholder.svg"
	DefaultBio    = "No bio provided"
)

// UserStats summarises a user's activity
type UserStats struct {
	Challenges int `json:"challenges"`
	Solutions  int `json:"solutions"`
	Points     int `json:"points"`
}

// User is the profile shown on the profile page
type User struct {
	ID       int       `json:"id"`
	Name     string    `json:"name"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Phone    string    `json:"phone"`
	Avatar   string    `json:"avatar"`
	Bio      string    `json:"bio"`
	Stats    UserStats `json:"stats"`
}

// EditForm is the editable subset of a profile
type EditForm struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	Username *string `json:"username,omitempty" validate:"omitempty,min=1,max=50"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Bio      *string `json:"bio,omitempty" validate:"omitempty,max=500"`
}

// Apply copies every set field of the form onto u
func (f EditForm) Apply(u *User) {
	if f.Name != nil {
		u.Name = *f.Name
	}
	if f.Username != nil {
		u.Username = *f.Username
	}
	if f.Email != nil {
		u.Email = *f.Email
	}
	if f.Phone != nil {
		u.Phone = *f.Phone
	}
	if f.Bio != nil {
		u.Bio = *f.Bio
	}
}
