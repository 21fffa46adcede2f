package models

// Session is the resolved view of an authenticated identity. Type is nil
// when no profile could be resolved for the identity.
type Session struct {
	ID          string    `json:"id"`
	FullName    string    `json:"fullName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone,omitempty"`
	Type        *UserType `json:"type"`
	Specialty   string    `json:"specialty,omitempty"`
	ServiceType string    `json:"serviceType,omitempty"`
	Demo        bool      `json:"demo,omitempty"`
	Degraded    bool      `json:"degraded,omitempty"`
}

func SessionFromUser(u *User) *Session {
	t := u.Type
	return &Session{
		ID:          u.ID.Hex(),
		FullName:    u.FullName,
		Email:       u.Email,
		Phone:       u.Phone,
		Type:        &t,
		Specialty:   u.Specialty,
		ServiceType: u.ServiceType,
	}
}

// HasType reports whether the session resolved to the given user type.
func (s *Session) HasType(t UserType) bool {
	return s != nil && s.Type != nil && *s.Type == t
}
