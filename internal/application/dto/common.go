package dto

import "github.com/jhoicas/orderflow-api/internal/domain"

// Paginación por defecto de los listados.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// PageRequest paginación skip/limit de los listados.
type PageRequest struct {
	Skip  int `query:"skip"`
	Limit int `query:"limit"`
}

// Normalize aplica valores por defecto y el tope de limit.
func (p *PageRequest) Normalize() {
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	if p.Skip < 0 {
		p.Skip = 0
	}
}

// PageResponse metadatos de página en respuestas.
type PageResponse struct {
	Skip  int `json:"skip"`
	Limit int `json:"limit"`
	Count int `json:"count"`
}

// ErrorResponse cuerpo de error HTTP. Lines lista las líneas de la orden que provocaron el aborto.
type ErrorResponse struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Lines   []domain.OffendingLine `json:"lines,omitempty"`
}
