package entity

import "time"

// Tipos de movimiento del libro de inventario.
const (
	MovementTypeIN     = "IN"     // entrada
	MovementTypeOUT    = "OUT"    // salida
	MovementTypeRETURN = "RETURN" // devolución de una salida previa
	MovementTypeADJUST = "ADJUST" // ajuste con delta firmado
)

// ValidMovementType indica si el tipo pertenece al conjunto soportado.
func ValidMovementType(t string) bool {
	switch t {
	case MovementTypeIN, MovementTypeOUT, MovementTypeRETURN, MovementTypeADJUST:
		return true
	}
	return false
}

// LedgerEntry es un registro inmutable del libro: un movimiento aplicado y el
// saldo resultante. Solo lo crea el motor del libro; nunca se actualiza ni borra.
// Quantity es el delta firmado (positivo entrada/devolución, negativo salida).
type LedgerEntry struct {
	ID            int64
	TransactionID string // agrupa los asientos de una misma unidad atómica
	ItemID        int64
	Type          string
	Quantity      int64
	BalanceAfter  int64
	LineID        *int64 // referencia débil a la línea de retiro que lo originó
	Remark        string
	CreatedBy     string
	CreatedAt     time.Time
}
