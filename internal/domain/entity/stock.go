package entity

import "time"

// Stock representa la existencia actual de un artículo (fila materializada).
// Invariante: Quantity == suma de los deltas del libro para ese artículo,
// y nunca es negativa. Solo el motor del libro la muta, bajo bloqueo de fila.
type Stock struct {
	ItemID    int64
	Quantity  int64
	UpdatedAt time.Time
}

// StockView es la vista de existencias para listados (incluye datos del artículo).
type StockView struct {
	ItemID    int64
	Name      string
	Unit      string
	Quantity  int64
	UpdatedAt time.Time
}
