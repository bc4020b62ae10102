// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package so that backend error
// codes and internal details never reach the browser.
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}

// StockError carries the offending product and quantities so the seller can
// adjust the order.
type StockError struct {
	Detail     string `json:"detail"`
	Codigo     string `json:"codigo"`
	Nombre     string `json:"nombre"`
	Disponible int    `json:"disponible"`
	Solicitado int    `json:"solicitado"`
}
