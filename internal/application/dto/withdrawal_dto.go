package dto

import (
	"time"

	"github.com/jhoicas/almacen-api/internal/domain/entity"
)

// CreateWithdrawalRequest body para POST /api/withdrawals.
type CreateWithdrawalRequest struct {
	Topic string                `json:"topic"`
	Lines []WithdrawalLineInput `json:"lines"`
}

// WithdrawalLineInput una línea solicitada.
type WithdrawalLineInput struct {
	ItemID   int64 `json:"item_id"`
	Quantity int64 `json:"quantity"`
}

// DisposeRequest body para POST /api/withdrawals/:id/dispositions.
type DisposeRequest struct {
	Dispositions []DispositionInput `json:"dispositions"`
	Note         string             `json:"note,omitempty"`
}

// DispositionInput decisión sobre una línea.
type DispositionInput struct {
	LineID           int64  `json:"line_id"`
	ApprovedQuantity int64  `json:"approved_quantity"`
	RejectReason     string `json:"reject_reason,omitempty"`
}

// DisposeResponse estado del documento tras aplicar disposiciones.
type DisposeResponse struct {
	DocumentStatus string `json:"document_status"`
	LinesRemaining int    `json:"lines_remaining"`
}

// ReturnLineRequest body para POST /api/withdrawals/:id/lines/:line_id/return.
type ReturnLineRequest struct {
	Quantity int64 `json:"quantity"`
}

// WithdrawalDTO documento de retiro para las respuestas.
type WithdrawalDTO struct {
	ID           int64               `json:"id"`
	RequestedBy  string              `json:"requested_by"`
	Topic        string              `json:"topic,omitempty"`
	Status       string              `json:"status"`
	ApprovedBy   string              `json:"approved_by,omitempty"`
	ApprovedNote string              `json:"approved_note,omitempty"`
	ApprovedAt   *time.Time          `json:"approved_at,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	Lines        []WithdrawalLineDTO `json:"lines,omitempty"`
}

// WithdrawalLineDTO línea del documento para las respuestas.
type WithdrawalLineDTO struct {
	ID               int64  `json:"id"`
	ItemID           int64  `json:"item_id"`
	Quantity         int64  `json:"requested_quantity"`
	Status           string `json:"status"`
	ApprovedQuantity int64  `json:"approved_quantity"`
	RejectedQuantity int64  `json:"rejected_quantity"`
	ReturnedQuantity int64  `json:"returned_quantity"`
	RejectReason     string `json:"reject_reason,omitempty"`
}

// WithdrawalFromEntity mapea documento y líneas al DTO.
func WithdrawalFromEntity(w *entity.Withdrawal, lines []*entity.WithdrawalLine) WithdrawalDTO {
	out := WithdrawalDTO{
		ID:           w.ID,
		RequestedBy:  w.RequestedBy,
		Topic:        w.Topic,
		Status:       string(w.Status),
		ApprovedBy:   w.ApprovedBy,
		ApprovedNote: w.ApprovedNote,
		ApprovedAt:   w.ApprovedAt,
		CreatedAt:    w.CreatedAt,
	}
	for _, l := range lines {
		out.Lines = append(out.Lines, WithdrawalLineDTO{
			ID:               l.ID,
			ItemID:           l.ItemID,
			Quantity:         l.Quantity,
			Status:           string(l.Status),
			ApprovedQuantity: l.ApprovedQuantity,
			RejectedQuantity: l.RejectedQuantity,
			ReturnedQuantity: l.ReturnedQuantity,
			RejectReason:     l.RejectReason,
		})
	}
	return out
}
