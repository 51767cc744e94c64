package repository

import "github.com/jhoicas/almacen-api/internal/domain/entity"

// WithdrawalRepository es el puerto de persistencia para documentos de retiro
// y sus líneas. Los GetForUpdate bloquean la fila correspondiente; el flujo de
// aprobación depende de ese bloqueo para serializar decisiones concurrentes.
type WithdrawalRepository interface {
	Create(doc *entity.Withdrawal, lines []*entity.WithdrawalLine) (int64, error)
	GetByID(id int64) (*entity.Withdrawal, error)
	GetForUpdate(id int64) (*entity.Withdrawal, error)
	List(limit, offset int) ([]*entity.Withdrawal, int, error)
	UpdateStatus(id int64, status entity.DocumentStatus, actor, note string) error

	ListLines(withdrawalID int64) ([]*entity.WithdrawalLine, error)
	GetLineForUpdate(withdrawalID, lineID int64) (*entity.WithdrawalLine, error)
	UpdateLineDisposition(line *entity.WithdrawalLine) error
	SummarizeLines(withdrawalID int64) (entity.LineSummary, error)
	CancelPendingLines(withdrawalID int64, reason string) error

	// AddReturnedQuantity acumula una devolución sobre la línea y devuelve la
	// línea actualizada; el motor del libro decide si quedó totalmente saldada.
	AddReturnedQuantity(lineID, quantity int64) (*entity.WithdrawalLine, error)
	MarkLineReturned(lineID int64) error
}
