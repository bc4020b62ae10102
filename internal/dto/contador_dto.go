package dto

type ReiniciarContadorRequest struct {
	Valor int64 `json:"valor" validate:"min=0"`
}

type ContadorResponse struct {
	ID         string `json:"id"`
	Seq        int64  `json:"seq"`
	LastNumber string `json:"last_number"`
	UpdatedAt  string `json:"updated_at"`
}
