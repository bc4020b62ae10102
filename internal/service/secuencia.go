package service

import (
	"context"
	"fmt"
	"time"

	"gestionventas/internal/dto"
	"gestionventas/internal/model"
	"gestionventas/internal/repository"

	"gorm.io/gorm"
)

// Formatters for each numbered document type.
func FormatoVenta(n int64) string    { return fmt.Sprintf("V-%06d", n) }
func FormatoProforma(n int64) string { return fmt.Sprintf("PF-%06d", n) }
func FormatoProducto(n int64) string { return fmt.Sprintf("P%03d", n) }

var formatos = map[string]func(int64) string{
	model.ContadorVentas:    FormatoVenta,
	model.ContadorProformas: FormatoProforma,
	model.ContadorProductos: FormatoProducto,
}

// ContadorService exposes the administrative view of the sequences.
type ContadorService interface {
	Listar(ctx context.Context) ([]dto.ContadorResponse, error)
	Obtener(ctx context.Context, id string) (*dto.ContadorResponse, error)
	Reiniciar(ctx context.Context, id string, valor int64) (*dto.ContadorResponse, error)
}

// Secuenciador hands out consecutive document numbers. Allocation only ever
// happens inside the transaction that writes the numbered document, so an
// aborted transaction rolls the counter back with it.
type Secuenciador struct {
	repo repository.ContadorRepository
}

func NewSecuenciador(repo repository.ContadorRepository) *Secuenciador {
	return &Secuenciador{repo: repo}
}

// AsignarSecuenciaTx reads the counter (absent = 0), advances it by one and
// returns the new value with its formatted number. Losing a race against
// another transaction yields repository.ErrConflictoVersion.
func (s *Secuenciador) AsignarSecuenciaTx(_ context.Context, tx *gorm.DB, contadorID string, formato func(int64) string) (int64, string, error) {
	actual, err := s.repo.FindTx(tx, contadorID)
	if err != nil {
		return 0, "", fmt.Errorf("leyendo contador %s: %w", contadorID, err)
	}

	if actual == nil {
		numero := formato(1)
		err := s.repo.CreateTx(tx, &model.Contador{ID: contadorID, Seq: 1, LastNumber: numero, UpdatedAt: time.Now()})
		if err != nil {
			return 0, "", err
		}
		return 1, numero, nil
	}

	next := actual.Seq + 1
	numero := formato(next)
	if err := s.repo.AdvanceTx(tx, contadorID, actual.Seq, next, numero); err != nil {
		return 0, "", err
	}
	return next, numero, nil
}

func (s *Secuenciador) Listar(ctx context.Context) ([]dto.ContadorResponse, error) {
	cs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ContadorResponse, len(cs))
	for i := range cs {
		out[i] = contadorToResponse(&cs[i])
	}
	return out, nil
}

// Obtener reads a counter without advancing it; a counter never allocated
// reads as zero.
func (s *Secuenciador) Obtener(ctx context.Context, id string) (*dto.ContadorResponse, error) {
	if _, ok := formatos[id]; !ok {
		return nil, ErrContadorDesconocido
	}
	c, err := s.repo.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = &model.Contador{ID: id}
	}
	resp := contadorToResponse(c)
	return &resp, nil
}

// Reiniciar sets a counter to valor; the next allocation returns valor+1.
func (s *Secuenciador) Reiniciar(ctx context.Context, id string, valor int64) (*dto.ContadorResponse, error) {
	formato, ok := formatos[id]
	if !ok {
		return nil, ErrContadorDesconocido
	}
	if valor < 0 {
		return nil, &ValidacionError{Campos: map[string]string{"valor": "debe ser mayor o igual a 0"}}
	}
	last := ""
	if valor > 0 {
		last = formato(valor)
	}
	if err := s.repo.Reset(ctx, id, valor, last); err != nil {
		return nil, err
	}
	return s.Obtener(ctx, id)
}

func contadorToResponse(c *model.Contador) dto.ContadorResponse {
	resp := dto.ContadorResponse{ID: c.ID, Seq: c.Seq, LastNumber: c.LastNumber}
	if !c.UpdatedAt.IsZero() {
		resp.UpdatedAt = c.UpdatedAt.Format(time.RFC3339)
	}
	return resp
}

var _ ContadorService = (*Secuenciador)(nil)
