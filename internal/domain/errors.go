package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrAlreadyExists     = errors.New("el recurso ya existe")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrInvalidState      = errors.New("estado inválido para la operación")

	// ErrConflict carrera perdida contra otra mutación concurrente; reintentar la operación es seguro.
	ErrConflict = errors.New("conflicto con una mutación concurrente")
	// ErrUnreachable dependencia remota (o la BD) no respondió tras agotar los reintentos.
	ErrUnreachable = errors.New("servicio no disponible")
	// ErrCorruption invariante del ledger violada (registro e historial no coinciden). Fatal.
	ErrCorruption = errors.New("inconsistencia en el ledger de inventario")
)
