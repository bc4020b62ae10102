package infra

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gestionventas/internal/config"

	"github.com/go-resty/resty/v2"
)

var (
	// ErrDocumentoNoConfigurado is returned when DOCUMENTO_API_TOKEN is empty
	// or the provider rejects it.
	ErrDocumentoNoConfigurado = errors.New("consulta de documentos no configurada")
	ErrDocumentoNoEncontrado  = errors.New("documento no encontrado")
)

const (
	TipoDNI = "dni"
	TipoRUC = "ruc"
)

// DatosDocumento is what the registry knows about a DNI or RUC, reduced to
// the fields a client record uses.
type DatosDocumento struct {
	Tipo      string
	Numero    string
	Nombre    string
	Email     string
	Telefono  string
	Direccion string
}

// DocumentoClient queries apiperu.dev. Calls go through a circuit breaker;
// only transport errors, 5xx and rejected tokens count as failures, a
// missing document does not.
type DocumentoClient struct {
	http    *resty.Client
	baseURL string
	token   string
	cb      *CircuitBreaker
}

func NewDocumentoClient(cfg *config.Config, cb *CircuitBreaker) *DocumentoClient {
	return newDocumentoClient(cfg.DocumentoAPIURL, cfg.DocumentoAPIToken, cb, 10*time.Second)
}

func newDocumentoClient(baseURL, token string, cb *CircuitBreaker, timeout time.Duration) *DocumentoClient {
	rc := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if token != "" {
		rc.SetAuthToken(token)
	}
	return &DocumentoClient{
		http:    rc,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		cb:      cb,
	}
}

// Breaker exposes the circuit breaker for health reporting; nil when the
// lookup is not configured.
func (d *DocumentoClient) Breaker() *CircuitBreaker {
	if d == nil || d.token == "" {
		return nil
	}
	return d.cb
}

type apiPeruRespuesta struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    struct {
		Nombre             string `json:"nombre"`
		NombreCompleto     string `json:"nombre_completo"`
		RazonSocial        string `json:"razon_social"`
		NombreORazonSocial string `json:"nombre_o_razon_social"`
		Nombres            string `json:"nombres"`
		Email              string `json:"email"`
		Telefono           string `json:"telefono"`
		Celular            string `json:"celular"`
		Domicilio          string `json:"domicilio"`
		Direccion          string `json:"direccion"`
		DireccionCompleta  string `json:"direccion_completa"`
	} `json:"data"`
}

// Consultar looks up an 8-digit DNI or an 11-digit RUC. The number must
// already be validated.
func (d *DocumentoClient) Consultar(ctx context.Context, numero string) (*DatosDocumento, error) {
	if d == nil || d.token == "" {
		return nil, ErrDocumentoNoConfigurado
	}
	var tipo string
	switch len(numero) {
	case 8:
		tipo = TipoDNI
	case 11:
		tipo = TipoRUC
	default:
		return nil, fmt.Errorf("documento: longitud invalida %d", len(numero))
	}

	var (
		out    apiPeruRespuesta
		status int
	)
	call := func() error {
		resp, err := d.http.R().
			SetContext(ctx).
			SetBody(map[string]string{tipo: numero}).
			SetResult(&out).
			SetError(&out).
			Post(d.baseURL + "/" + tipo)
		if err != nil {
			return fmt.Errorf("documento: %w", err)
		}
		status = resp.StatusCode()
		switch {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			return fmt.Errorf("%w: token rechazado (HTTP %d)", ErrDocumentoNoConfigurado, status)
		case status >= http.StatusInternalServerError:
			return fmt.Errorf("documento: HTTP %d", status)
		case !strings.Contains(resp.Header().Get("Content-Type"), "json"):
			return fmt.Errorf("documento: respuesta no JSON (HTTP %d)", status)
		}
		return nil
	}

	var err error
	if d.cb == nil {
		err = call()
	} else {
		err = d.cb.Execute(call)
	}
	if err != nil {
		return nil, err
	}

	if status >= http.StatusBadRequest || !out.Success {
		if out.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrDocumentoNoEncontrado, out.Message)
		}
		return nil, ErrDocumentoNoEncontrado
	}

	data := out.Data
	return &DatosDocumento{
		Tipo:      tipo,
		Numero:    numero,
		Nombre:    primero(data.Nombre, data.RazonSocial, data.NombreORazonSocial, data.NombreCompleto, data.Nombres),
		Email:     data.Email,
		Telefono:  primero(data.Telefono, data.Celular),
		Direccion: primero(data.Domicilio, data.Direccion, data.DireccionCompleta),
	}, nil
}

func primero(vs ...string) string {
	for _, v := range vs {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
