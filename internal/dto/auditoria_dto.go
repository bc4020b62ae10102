package dto

import "encoding/json"

type AuditoriaFilter struct {
	Entidad   string `form:"entidad"`
	Accion    string `form:"accion"`
	EntidadID string `form:"entidad_id"`
	Page      int    `form:"page,default=1"   validate:"min=1"`
	Limit     int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type AuditoriaResponse struct {
	ID        string          `json:"id"`
	Accion    string          `json:"accion"`
	Entidad   string          `json:"entidad"`
	EntidadID *string         `json:"entidad_id"`
	Payload   json.RawMessage `json:"payload"`
	UsuarioID *string         `json:"usuario_id"`
	Username  *string         `json:"username"`
	Rol       *string         `json:"rol"`
	CreatedAt string          `json:"created_at"`
}

type AuditoriaListResponse struct {
	Data  []AuditoriaResponse `json:"data"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}
