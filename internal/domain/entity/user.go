package entity

import "time"

// Marketplace roles. Every account has exactly one.
const (
	RoleFarmer   = "farmer"
	RoleRetailer = "retailer"
	RoleConsumer = "consumer"
)

type User struct {
	ID        string    `json:"id" firestore:"id"`
	Email     string    `json:"email" firestore:"email"`
	Name      string    `json:"name" firestore:"name"`
	Role      string    `json:"role" firestore:"role"` // "farmer", "retailer", "consumer"
	Status    string    `json:"status" firestore:"status"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// UserRef is the denormalized participant embed stored on chats and messages.
type UserRef struct {
	ID    string `json:"id" firestore:"id"`
	Name  string `json:"name" firestore:"name"`
	Role  string `json:"role" firestore:"role"`
	Email string `json:"email,omitempty" firestore:"email,omitempty"`
}

func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Name: u.Name, Role: u.Role, Email: u.Email}
}
