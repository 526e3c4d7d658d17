package domain

import (
	"fmt"
	"strings"
)

// AbortReason motivo agregado por el que una colocación de orden terminó en Aborted.
type AbortReason string

const (
	ReasonInvalidInput      AbortReason = "invalid_input"
	ReasonInvalidUser       AbortReason = "invalid_user"
	ReasonProductInvalid    AbortReason = "product_invalid"
	ReasonInsufficientStock AbortReason = "insufficient_stock"
	ReasonUnreachable       AbortReason = "unreachable"
	ReasonDeadlineExceeded  AbortReason = "deadline_exceeded"
	ReasonPersistenceFailed AbortReason = "persistence_failed"
	ReasonConflict          AbortReason = "conflict"
)

// OffendingLine identifica la línea de la orden que provocó el aborto.
type OffendingLine struct {
	Index     int    `json:"index"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Detail    string `json:"detail,omitempty"`
}

// SagaError error único que devuelve la saga: un motivo y la lista de líneas afectadas.
// Err conserva el error sentinel (ErrInsufficientStock, ErrUnreachable, ...) para errors.Is.
type SagaError struct {
	Reason AbortReason
	Lines  []OffendingLine
	Err    error
}

func (e *SagaError) Error() string {
	var b strings.Builder
	b.WriteString("orden abortada: ")
	b.WriteString(string(e.Reason))
	if len(e.Lines) > 0 {
		ids := make([]string, 0, len(e.Lines))
		for _, l := range e.Lines {
			ids = append(ids, fmt.Sprintf("%s x%d", l.ProductID, l.Quantity))
		}
		b.WriteString(" [")
		b.WriteString(strings.Join(ids, ", "))
		b.WriteString("]")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *SagaError) Unwrap() error { return e.Err }
