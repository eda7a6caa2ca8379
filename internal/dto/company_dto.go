package dto

type UpdateCompanyRequest struct {
	Name         string `json:"name" validate:"omitempty,min=2,max=120"`
	Trade        string `json:"trade" validate:"omitempty,max=60"`
	BillingEmail string `json:"billing_email" validate:"omitempty,email"`
	Phone        string `json:"phone" validate:"omitempty,max=30"`
}

type CreateLocationRequest struct {
	Name      string `json:"name" validate:"required,min=2,max=120"`
	Address   string `json:"address" validate:"omitempty,max=255"`
	City      string `json:"city" validate:"omitempty,max=120"`
	Region    string `json:"region" validate:"omitempty,max=120"`
	Postal    string `json:"postal" validate:"omitempty,max=20"`
	Country   string `json:"country" validate:"omitempty,max=60"`
	IsPrimary bool   `json:"is_primary"`
}

type UpdateLocationRequest struct {
	Name     string `json:"name" validate:"omitempty,min=2,max=120"`
	Address  string `json:"address" validate:"omitempty,max=255"`
	City     string `json:"city" validate:"omitempty,max=120"`
	Region  string `json:"region" validate:"omitempty,max=120"`
	Postal  string `json:"postal" validate:"omitempty,max=20"`
	Country string `json:"country" validate:"omitempty,max=60"`
}
