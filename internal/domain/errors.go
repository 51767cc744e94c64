package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrItemInactive      = errors.New("artículo inactivo")
	ErrAlreadyFinalized  = errors.New("documento ya finalizado")
	ErrInvalidLineState  = errors.New("estado de línea inválido para la operación")
)
