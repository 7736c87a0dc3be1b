package model

type Role string

const (
	RolePetOwner     Role = "pet_owner"
	RoleVeterinarian Role = "veterinarian"
)

type Profile struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
}

type Pet struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`
	Name    string `json:"name"`
	Species string `json:"species"`
}
