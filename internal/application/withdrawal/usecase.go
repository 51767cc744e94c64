package withdrawal

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/almacen-api/internal/application/ledger"
	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

// Razón que se estampa en las líneas pendientes al cancelar el documento.
const cancelReason = "documento cancelado antes de su aprobación"

// UseCase orquesta el ciclo de vida de los retiros: creación del documento,
// disposición línea por línea, devoluciones y cancelación. Toda deducción de
// stock pasa por el motor del libro, dentro de la transacción del caso de uso.
type UseCase struct {
	txRunner ledger.TxRunner
	engine   *ledger.Engine
	wdRepo   repository.WithdrawalRepository // atado al pool, solo lecturas
}

// NewUseCase construye el caso de uso.
func NewUseCase(txRunner ledger.TxRunner, engine *ledger.Engine, wdRepo repository.WithdrawalRepository) *UseCase {
	return &UseCase{txRunner: txRunner, engine: engine, wdRepo: wdRepo}
}

// LineInput una línea solicitada al crear el documento.
type LineInput struct {
	ItemID   int64
	Quantity int64
}

// CreateInput entrada para crear un documento de retiro.
type CreateInput struct {
	RequestedBy string
	Topic       string
	Lines       []LineInput
}

// Create registra el documento con sus líneas en estado pending. No toca
// existencias: la deducción ocurre al aprobar.
func (uc *UseCase) Create(ctx context.Context, in CreateInput) (int64, error) {
	if in.RequestedBy == "" || len(in.Lines) == 0 {
		return 0, domain.ErrInvalidInput
	}
	for _, l := range in.Lines {
		if l.ItemID <= 0 || l.Quantity <= 0 {
			return 0, domain.ErrInvalidInput
		}
	}

	var docID int64
	err := uc.txRunner.Run(ctx, func(
		itemRepo repository.ItemRepository,
		_ repository.StockRepository,
		_ repository.LedgerRepository,
		wdRepo repository.WithdrawalRepository,
	) error {
		for _, l := range in.Lines {
			item, err := itemRepo.GetByID(l.ItemID)
			if err != nil {
				return err
			}
			if item == nil {
				return fmt.Errorf("artículo %d: %w", l.ItemID, domain.ErrNotFound)
			}
			if !item.IsActive {
				return fmt.Errorf("artículo %d: %w", l.ItemID, domain.ErrItemInactive)
			}
		}
		doc := &entity.Withdrawal{
			RequestedBy: in.RequestedBy,
			Topic:       in.Topic,
			Status:      entity.DocumentRequested,
			CreatedAt:   time.Now(),
		}
		lines := make([]*entity.WithdrawalLine, 0, len(in.Lines))
		for _, l := range in.Lines {
			lines = append(lines, &entity.WithdrawalLine{
				ItemID:   l.ItemID,
				Quantity: l.Quantity,
				Status:   entity.LinePending,
			})
		}
		var err error
		docID, err = wdRepo.Create(doc, lines)
		return err
	})
	if err != nil {
		return 0, err
	}
	return docID, nil
}

// Disposition la decisión del aprobador sobre una línea.
type Disposition struct {
	LineID           int64
	ApprovedQuantity int64
	RejectReason     string
}

// DisposeInput entrada para aplicar disposiciones a un documento.
type DisposeInput struct {
	DocumentID   int64
	Dispositions []Disposition
	ApproverID   string
	Note         string
}

// DisposeResult estado del documento tras la llamada.
type DisposeResult struct {
	Status         entity.DocumentStatus
	LinesRemaining int
}

// Dispose aplica disposiciones sobre líneas pendientes, en orden ascendente de
// línea (orden fijo de bloqueo). Si tras la llamada no queda ninguna pendiente
// el documento se vuelve terminal; al aprobarse, cada línea con cantidad
// aprobada descuenta stock vía el motor dentro de la MISMA transacción: si una
// deducción falla por stock insuficiente se revierte la llamada completa y el
// documento queda REQUESTED con sus líneas pending para reintentar.
func (uc *UseCase) Dispose(ctx context.Context, in DisposeInput) (DisposeResult, error) {
	if in.ApproverID == "" || in.DocumentID <= 0 || len(in.Dispositions) == 0 {
		return DisposeResult{}, domain.ErrInvalidInput
	}
	for _, d := range in.Dispositions {
		if d.LineID <= 0 || d.ApprovedQuantity < 0 {
			return DisposeResult{}, domain.ErrInvalidInput
		}
	}
	// Orden fijo de bloqueo: evita interbloqueos entre Dispose concurrentes
	// que toquen conjuntos de líneas solapados.
	dispositions := make([]Disposition, len(in.Dispositions))
	copy(dispositions, in.Dispositions)
	sort.Slice(dispositions, func(i, j int) bool { return dispositions[i].LineID < dispositions[j].LineID })

	var result DisposeResult
	var deducted []int64
	err := uc.txRunner.Run(ctx, func(
		_ repository.ItemRepository,
		stockRepo repository.StockRepository,
		ledgerRepo repository.LedgerRepository,
		wdRepo repository.WithdrawalRepository,
	) error {
		doc, err := wdRepo.GetForUpdate(in.DocumentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("retiro %d: %w", in.DocumentID, domain.ErrNotFound)
		}
		if doc.Status.Terminal() {
			return fmt.Errorf("retiro %d (%s): %w", in.DocumentID, doc.Status, domain.ErrAlreadyFinalized)
		}

		now := time.Now()
		type pendingDeduct struct {
			lineID   int64
			itemID   int64
			quantity int64
		}
		var toDeduct []pendingDeduct

		for _, d := range dispositions {
			line, err := wdRepo.GetLineForUpdate(in.DocumentID, d.LineID)
			if err != nil {
				return err
			}
			if line == nil {
				return fmt.Errorf("línea %d del retiro %d: %w", d.LineID, in.DocumentID, domain.ErrNotFound)
			}
			if !line.Status.Disposable() {
				return fmt.Errorf("línea %d (%s): %w", d.LineID, line.Status, domain.ErrInvalidLineState)
			}
			status, rejected, err := entity.ClassifyDisposition(line.Quantity, d.ApprovedQuantity)
			if err != nil {
				return fmt.Errorf("línea %d: %w", d.LineID, err)
			}
			line.Status = status
			line.ApprovedQuantity = d.ApprovedQuantity
			line.RejectedQuantity = rejected
			line.RejectReason = d.RejectReason
			line.ApprovedBy = in.ApproverID
			line.ApprovedAt = &now
			if err := wdRepo.UpdateLineDisposition(line); err != nil {
				return err
			}
			if d.ApprovedQuantity > 0 {
				toDeduct = append(toDeduct, pendingDeduct{lineID: line.ID, itemID: line.ItemID, quantity: d.ApprovedQuantity})
			}
		}

		summary, err := wdRepo.SummarizeLines(in.DocumentID)
		if err != nil {
			return err
		}
		status := entity.DeriveDocumentStatus(summary)
		if status == entity.DocumentRequested {
			// Quedan líneas pendientes: el documento sigue abierto, no es error.
			result = DisposeResult{Status: status, LinesRemaining: summary.Pending}
			return nil
		}

		if _, err := doc.Status.Transition(status); err != nil {
			return fmt.Errorf("retiro %d: %w", in.DocumentID, err)
		}
		if err := wdRepo.UpdateStatus(in.DocumentID, status, in.ApproverID, in.Note); err != nil {
			return err
		}

		if status == entity.DocumentApproved {
			// Todas las líneas aprobadas descuentan, o ninguna: cualquier
			// ErrInsufficientStock aborta la transacción completa.
			txID := uuid.New().String()
			for _, d := range toDeduct {
				lineID := d.lineID
				if _, err := uc.engine.DeductInTx(stockRepo, ledgerRepo, wdRepo,
					d.itemID, d.quantity, in.ApproverID, &lineID, now, txID); err != nil {
					return err
				}
				deducted = append(deducted, d.itemID)
			}
		}
		result = DisposeResult{Status: status, LinesRemaining: 0}
		return nil
	})
	if err != nil {
		return DisposeResult{}, err
	}
	uc.engine.InvalidateStock(ctx, deducted...)
	return result, nil
}

// ReturnLine reingresa cantidad previamente retirada de una línea aprobada.
// Las precondiciones se verifican bajo bloqueo en la misma transacción que el
// crédito al stock; el motor acumula returned_quantity y marca la línea
// returned cuando queda totalmente saldada.
func (uc *UseCase) ReturnLine(ctx context.Context, documentID, lineID, quantity int64, actorID string) error {
	if actorID == "" || documentID <= 0 || lineID <= 0 {
		return domain.ErrInvalidInput
	}
	if quantity <= 0 {
		return domain.ErrInvalidInput
	}

	var itemID int64
	err := uc.txRunner.Run(ctx, func(
		_ repository.ItemRepository,
		stockRepo repository.StockRepository,
		ledgerRepo repository.LedgerRepository,
		wdRepo repository.WithdrawalRepository,
	) error {
		doc, err := wdRepo.GetForUpdate(documentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("retiro %d: %w", documentID, domain.ErrNotFound)
		}
		if doc.Status != entity.DocumentApproved {
			return fmt.Errorf("retiro %d (%s): %w", documentID, doc.Status, domain.ErrInvalidLineState)
		}
		line, err := wdRepo.GetLineForUpdate(documentID, lineID)
		if err != nil {
			return err
		}
		if line == nil {
			return fmt.Errorf("línea %d del retiro %d: %w", lineID, documentID, domain.ErrNotFound)
		}
		if !line.Status.Returnable() || line.ApprovedQuantity == 0 {
			return fmt.Errorf("línea %d (%s): %w", lineID, line.Status, domain.ErrInvalidLineState)
		}
		if quantity > line.ApprovedQuantity-line.ReturnedQuantity {
			return fmt.Errorf("línea %d: devolver %d excede lo pendiente: %w",
				lineID, quantity, domain.ErrInvalidLineState)
		}

		itemID = line.ItemID
		ref := line.ID
		remark := fmt.Sprintf("devolución del retiro #%d", documentID)
		_, err = uc.engine.ReturnInTx(stockRepo, ledgerRepo, wdRepo,
			line.ItemID, quantity, actorID, &ref, remark, time.Now(), uuid.New().String())
		return err
	})
	if err != nil {
		return err
	}
	uc.engine.InvalidateStock(ctx, itemID)
	return nil
}

// Cancel termina un documento aún REQUESTED sin tocar el libro (nada se dedujo
// para un documento no finalizado). Las líneas pendientes quedan cancelled.
func (uc *UseCase) Cancel(ctx context.Context, documentID int64, actorID string) error {
	if actorID == "" || documentID <= 0 {
		return domain.ErrInvalidInput
	}
	return uc.txRunner.Run(ctx, func(
		_ repository.ItemRepository,
		_ repository.StockRepository,
		_ repository.LedgerRepository,
		wdRepo repository.WithdrawalRepository,
	) error {
		doc, err := wdRepo.GetForUpdate(documentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return fmt.Errorf("retiro %d: %w", documentID, domain.ErrNotFound)
		}
		if _, err := doc.Status.Transition(entity.DocumentCanceled); err != nil {
			return fmt.Errorf("retiro %d (%s): %w", documentID, doc.Status, err)
		}
		if err := wdRepo.UpdateStatus(documentID, entity.DocumentCanceled, actorID, ""); err != nil {
			return err
		}
		return wdRepo.CancelPendingLines(documentID, cancelReason)
	})
}

// Get devuelve el documento con sus líneas.
func (uc *UseCase) Get(ctx context.Context, documentID int64) (*entity.Withdrawal, []*entity.WithdrawalLine, error) {
	doc, err := uc.wdRepo.GetByID(documentID)
	if err != nil {
		return nil, nil, err
	}
	if doc == nil {
		return nil, nil, fmt.Errorf("retiro %d: %w", documentID, domain.ErrNotFound)
	}
	lines, err := uc.wdRepo.ListLines(documentID)
	if err != nil {
		return nil, nil, err
	}
	return doc, lines, nil
}

// List devuelve documentos paginados.
func (uc *UseCase) List(ctx context.Context, limit, offset int) ([]*entity.Withdrawal, int, error) {
	return uc.wdRepo.List(limit, offset)
}
