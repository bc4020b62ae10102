package dto

type CrearClienteRequest struct {
	Nombre    string  `json:"nombre"    validate:"required,min=2,max=150"`
	Email     *string `json:"email"     validate:"omitempty,email"`
	Telefono  string  `json:"telefono"  validate:"omitempty,numeric,min=6,max=15"`
	DniRuc    string  `json:"dni_ruc"   validate:"omitempty,numeric,max=11"`
	Direccion string  `json:"direccion" validate:"max=250"`
}

type ActualizarClienteRequest struct {
	Nombre    *string `json:"nombre"    validate:"omitempty,min=2,max=150"`
	Email     *string `json:"email"     validate:"omitempty,email"`
	Telefono  *string `json:"telefono"  validate:"omitempty,numeric,min=6,max=15"`
	DniRuc    *string `json:"dni_ruc"   validate:"omitempty,numeric,max=11"`
	Direccion *string `json:"direccion" validate:"omitempty,max=250"`
}

type ClienteFilter struct {
	Nombre string `form:"nombre"`
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type ClienteResponse struct {
	ID        string  `json:"id"`
	Nombre    string  `json:"nombre"`
	Email     *string `json:"email"`
	Telefono  string  `json:"telefono"`
	DniRuc    string  `json:"dni_ruc"`
	Direccion string  `json:"direccion"`
	CreatedAt string  `json:"created_at"`
}

type ClienteListResponse struct {
	Data  []ClienteResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// DocumentoResponse pre-fills a client form from a DNI/RUC lookup.
type DocumentoResponse struct {
	Tipo      string `json:"tipo"`
	Numero    string `json:"numero"`
	Nombre    string `json:"nombre"`
	Email     string `json:"email"`
	Telefono  string `json:"telefono"`
	Direccion string `json:"direccion"`
}
