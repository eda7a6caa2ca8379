package dto

// InviteStaffRequest - приглашение сотрудника в компанию
type InviteStaffRequest struct {
	Name  string `json:"name" validate:"required,min=2,max=120"`
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required,oneof=admin staff"`
}

type UpdateStaffRequest struct {
	Name string `json:"name" validate:"omitempty,min=2,max=120"`
	Role string `json:"role" validate:"omitempty,oneof=admin staff"`
}
