package domain

import "time"

// Contact is a person reachable by phone and email.
type Contact struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name" validate:"required"`
	AreaCode    string    `json:"areaCode" validate:"required"`
	PhoneNumber string    `json:"phoneNumber" validate:"required"`
	Email       string    `json:"email" validate:"required,email"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ContactPatch carries a partial update. Empty fields leave the stored value untouched.
type ContactPatch struct {
	ID          int64  `json:"id"`
	Name        string `json:"name,omitempty"`
	AreaCode    string `json:"areaCode,omitempty"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Apply returns a copy of c with the non-empty patch fields written over it.
func (p ContactPatch) Apply(c Contact) Contact {
	if p.Name != "" {
		c.Name = p.Name
	}
	if p.AreaCode != "" {
		c.AreaCode = p.AreaCode
	}
	if p.PhoneNumber != "" {
		c.PhoneNumber = p.PhoneNumber
	}
	if p.Email != "" {
		c.Email = p.Email
	}
	return c
}
