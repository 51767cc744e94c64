package dto

import (
	"time"

	"github.com/jhoicas/almacen-api/internal/domain/entity"
)

// ApplyMovementRequest body para POST /api/inventory/movements.
// Quantity positiva para IN/OUT/RETURN; para ADJUST es un delta firmado.
type ApplyMovementRequest struct {
	ItemID   int64  `json:"item_id"`
	Type     string `json:"type"`
	Quantity int64  `json:"quantity"`
	LineID   *int64 `json:"withdrawal_line_id,omitempty"`
	Remark   string `json:"remark,omitempty"`
}

// ApplyMovementResponse resultado del movimiento.
type ApplyMovementResponse struct {
	NewBalance int64 `json:"new_balance"`
}

// StockItemDTO una fila del listado de existencias.
type StockItemDTO struct {
	ItemID    int64     `json:"item_id"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	Quantity  int64     `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LedgerEntryDTO un asiento del libro para los listados.
type LedgerEntryDTO struct {
	ID           int64     `json:"id"`
	ItemID       int64     `json:"item_id"`
	Type         string    `json:"type"`
	Quantity     int64     `json:"quantity"`
	BalanceAfter int64     `json:"balance_after"`
	LineID       *int64    `json:"withdrawal_line_id,omitempty"`
	Remark       string    `json:"remark,omitempty"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// LedgerEntryFromEntity mapea la entidad al DTO.
func LedgerEntryFromEntity(e *entity.LedgerEntry) LedgerEntryDTO {
	return LedgerEntryDTO{
		ID:           e.ID,
		ItemID:       e.ItemID,
		Type:         e.Type,
		Quantity:     e.Quantity,
		BalanceAfter: e.BalanceAfter,
		LineID:       e.LineID,
		Remark:       e.Remark,
		CreatedBy:    e.CreatedBy,
		CreatedAt:    e.CreatedAt,
	}
}

// AuditResponse respuesta del contraste proyección vs libro.
type AuditResponse struct {
	ItemID     int64 `json:"item_id"`
	Projected  int64 `json:"projected"`
	LedgerSum  int64 `json:"ledger_sum"`
	Consistent bool  `json:"consistent"`
}
