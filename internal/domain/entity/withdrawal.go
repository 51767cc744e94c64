package entity

import "time"

// Withdrawal es una solicitud de retiro de varias líneas. El documento no toca
// existencias por sí mismo: la deducción ocurre una sola vez al aprobarse.
type Withdrawal struct {
	ID           int64
	RequestedBy  string
	Topic        string
	Status       DocumentStatus
	ApprovedBy   string
	ApprovedNote string
	ApprovedAt   *time.Time
	CreatedAt    time.Time
}

// WithdrawalLine pertenece a exactamente un Withdrawal y referencia un artículo.
// Invariantes una vez decidida: ApprovedQuantity + RejectedQuantity == Quantity,
// y ReturnedQuantity <= ApprovedQuantity.
type WithdrawalLine struct {
	ID               int64
	WithdrawalID     int64
	ItemID           int64
	Quantity         int64 // cantidad solicitada, siempre positiva
	Status           LineStatus
	ApprovedQuantity int64
	RejectedQuantity int64
	ReturnedQuantity int64
	RejectReason     string
	ApprovedBy       string
	ApprovedAt       *time.Time
}

// LineSummary agrega el estado de las líneas de un documento para derivar el
// estatus terminal tras aplicar disposiciones.
type LineSummary struct {
	Total         int
	Pending       int
	TotalApproved int64
}
