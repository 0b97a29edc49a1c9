package domain

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// MaxEmergencyContacts caps the contact list stored on a user document.
const MaxEmergencyContacts = 10

type User struct {
	UserID            string             `json:"id" dynamodbav:"user_id"`
	Name              string             `json:"name" dynamodbav:"name"`
	Email             string             `json:"email" dynamodbav:"email"`
	Phone             string             `json:"phone" dynamodbav:"phone"`
	IDNumber          string             `json:"id_number" dynamodbav:"id_number"`
	PasswordHash      string             `json:"-" dynamodbav:"password_hash"`
	Role              string             `json:"role" dynamodbav:"role"`
	EmergencyContacts []EmergencyContact `json:"emergency_contacts" dynamodbav:"emergency_contacts"`
	Enable            int                `json:"enable" dynamodbav:"enable"`
	CreatedAt         time.Time          `json:"created" dynamodbav:"created_at"`
	UpdatedAt         time.Time          `json:"updated" dynamodbav:"updated_at"`
}

// Identity returns the trusted requester view of u used by alert operations.
func (u *User) Identity() Identity {
	return Identity{UserID: u.UserID, Name: u.Name, Phone: u.Phone, IDNumber: u.IDNumber}
}

// EmergencyContact is owned by its User and kept in insertion order.
type EmergencyContact struct {
	ContactID    string    `json:"id" dynamodbav:"contact_id"`
	Name         string    `json:"name" dynamodbav:"name"`
	Phone        string    `json:"phone" dynamodbav:"phone"`
	Relationship string    `json:"relationship" dynamodbav:"relationship"`
	AddedAt      time.Time `json:"added_at" dynamodbav:"added_at"`
}

// Identity is the authenticated requester as seen by the alert core.
// Only UserID participates in authorization decisions.
type Identity struct {
	UserID   string
	Name     string
	Phone    string
	IDNumber string
}

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Phone    string `json:"phone" validate:"required,min=5,max=20"`
	IDNumber string `json:"id_number" validate:"required,max=32"`
}

type AddContactRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	Phone        string `json:"phone" validate:"required,min=5,max=20"`
	Relationship string `json:"relationship" validate:"omitempty,max=50"`
}

// UpdateUserRequest carries a partial profile update; nil fields are left untouched.
type UpdateUserRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
	Phone *string `json:"phone" validate:"omitempty,min=5,max=20"`
}
