package service

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Linea is a validated sale or quote line.
type Linea struct {
	Codigo string
	Nombre string
	Precio decimal.Decimal
	Cant   int
}

func (l Linea) Subtotal() decimal.Decimal {
	return l.Precio.Mul(decimal.NewFromInt(int64(l.Cant))).Round(2)
}

// Totales is the tax breakdown of a document.
type Totales struct {
	Base  decimal.Decimal
	IGV   decimal.Decimal
	Total decimal.Decimal
}

// CalcularTotales sums the lines and splits tax. With tax-inclusive prices the
// sum is the total and base/igv are derived from it; otherwise the sum is the
// base and igv is added on top.
func CalcularTotales(lineas []Linea, rate decimal.Decimal, incluido bool) Totales {
	suma := decimal.Zero
	for _, l := range lineas {
		suma = suma.Add(l.Subtotal())
	}
	if incluido {
		base := suma.Div(decimal.NewFromInt(1).Add(rate)).Round(2)
		return Totales{Base: base, IGV: suma.Sub(base), Total: suma}
	}
	igv := suma.Mul(rate).Round(2)
	return Totales{Base: suma, IGV: igv, Total: suma.Add(igv)}
}

// normalizarLineas trims and upper-cases codes and checks the per-line rules
// every document shares. Field paths are prefixed with campo.
func normalizarLineas(campo string, in []Linea) ([]Linea, error) {
	verr := &ValidacionError{}
	out := make([]Linea, len(in))
	for i, l := range in {
		path := fmt.Sprintf("%s[%d]", campo, i)
		l.Codigo = strings.ToUpper(strings.TrimSpace(l.Codigo))
		l.Nombre = strings.TrimSpace(l.Nombre)
		if l.Codigo == "" {
			verr.add(path+".codigo", "requerido")
		}
		if l.Nombre == "" {
			verr.add(path+".nombre", "requerido")
		}
		if l.Cant <= 0 {
			verr.add(path+".cant", "debe ser mayor a 0")
		}
		if l.Precio.IsNegative() {
			verr.add(path+".precio", "debe ser mayor o igual a 0")
		}
		out[i] = l
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return out, nil
}
