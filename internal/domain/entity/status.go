package entity

import "github.com/jhoicas/almacen-api/internal/domain"

// DocumentStatus es el ciclo de vida de un Withdrawal. Las transiciones ilegales
// se rechazan en Transition, no con ifs dispersos por los handlers.
type DocumentStatus string

const (
	DocumentRequested DocumentStatus = "REQUESTED"
	DocumentApproved  DocumentStatus = "APPROVED"
	DocumentRejected  DocumentStatus = "REJECTED"
	DocumentCanceled  DocumentStatus = "CANCELED"
)

// Terminal indica si el documento ya no admite transiciones.
func (s DocumentStatus) Terminal() bool {
	return s == DocumentApproved || s == DocumentRejected || s == DocumentCanceled
}

// Transition valida REQUESTED -> {APPROVED, REJECTED, CANCELED}.
func (s DocumentStatus) Transition(to DocumentStatus) (DocumentStatus, error) {
	if !to.Terminal() {
		return s, domain.ErrInvalidInput
	}
	if s != DocumentRequested {
		return s, domain.ErrAlreadyFinalized
	}
	return to, nil
}

// LineStatus es el ciclo de vida de una WithdrawalLine.
type LineStatus string

const (
	LinePending   LineStatus = "pending"
	LineApproved  LineStatus = "approved"
	LinePartial   LineStatus = "partial"
	LineRejected  LineStatus = "rejected"
	LineCancelled LineStatus = "cancelled"
	LineReturned  LineStatus = "returned"
)

// Disposable indica si la línea aún espera disposición.
func (s LineStatus) Disposable() bool { return s == LinePending }

// Returnable indica si la línea admite devoluciones (hubo cantidad aprobada).
func (s LineStatus) Returnable() bool {
	return s == LineApproved || s == LinePartial || s == LineReturned
}

// ClassifyDisposition calcula el estatus y la cantidad rechazada de una línea a
// partir de lo solicitado y lo aprobado. approved == 0 rechaza la línea,
// 0 < approved < requested la aprueba parcialmente.
func ClassifyDisposition(requested, approved int64) (LineStatus, int64, error) {
	if approved < 0 || approved > requested {
		return "", 0, domain.ErrInvalidInput
	}
	rejected := requested - approved
	switch {
	case approved == 0:
		return LineRejected, rejected, nil
	case approved < requested:
		return LinePartial, rejected, nil
	default:
		return LineApproved, rejected, nil
	}
}

// DeriveDocumentStatus deriva el estatus del documento desde sus líneas:
// con pendientes sigue REQUESTED; sin pendientes, APPROVED si se aprobó algo,
// REJECTED si todo fue rechazado.
func DeriveDocumentStatus(summary LineSummary) DocumentStatus {
	if summary.Pending > 0 {
		return DocumentRequested
	}
	if summary.TotalApproved > 0 {
		return DocumentApproved
	}
	return DocumentRejected
}
