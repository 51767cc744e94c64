package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

// Engine es el único punto de entrada para mutar existencias. Cada movimiento
// bloquea la fila de stock del artículo (SELECT FOR UPDATE), valida el saldo,
// actualiza la proyección y escribe el asiento del libro en una sola
// transacción. Nadie más escribe sobre stock ni sobre ledger_entries.
type Engine struct {
	txRunner TxRunner
	cache    StockCache // puede ser nil
}

// NewEngine construye el motor. cache es opcional (nil deshabilita el caché).
func NewEngine(txRunner TxRunner, cache StockCache) *Engine {
	return &Engine{txRunner: txRunner, cache: cache}
}

// MovementInput entrada para aplicar un movimiento.
// Quantity es positiva para IN/OUT/RETURN; para ADJUST es un delta firmado.
// LineID referencia la línea de retiro que origina el movimiento (RETURN/OUT).
type MovementInput struct {
	ItemID   int64
	Type     string
	Quantity int64
	ActorID  string
	LineID   *int64
	Remark   string
}

func (in MovementInput) validate() error {
	if in.ItemID <= 0 || in.ActorID == "" {
		return domain.ErrInvalidInput
	}
	if !entity.ValidMovementType(in.Type) {
		return fmt.Errorf("tipo de movimiento %q: %w", in.Type, domain.ErrInvalidInput)
	}
	if in.Type == entity.MovementTypeADJUST {
		if in.Quantity == 0 {
			return domain.ErrInvalidInput
		}
		return nil
	}
	if in.Quantity <= 0 {
		return domain.ErrInvalidInput
	}
	return nil
}

// delta convierte la cantidad declarada en el efecto firmado sobre el stock.
func (in MovementInput) delta() int64 {
	switch in.Type {
	case entity.MovementTypeOUT:
		return -in.Quantity
	default: // IN, RETURN y ADJUST (ya firmado)
		return in.Quantity
	}
}

// ApplyMovement valida el movimiento, abre una transacción, bloquea la fila de
// stock del artículo y aplica el delta; rechaza antes de escribir si el saldo
// quedaría negativo. Devuelve el saldo resultante.
func (e *Engine) ApplyMovement(ctx context.Context, in MovementInput) (int64, error) {
	if err := in.validate(); err != nil {
		return 0, err
	}

	var newBalance int64
	err := e.txRunner.Run(ctx, func(
		itemRepo repository.ItemRepository,
		stockRepo repository.StockRepository,
		ledgerRepo repository.LedgerRepository,
		wdRepo repository.WithdrawalRepository,
	) error {
		item, err := itemRepo.GetByID(in.ItemID)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("artículo %d: %w", in.ItemID, domain.ErrNotFound)
		}
		if !item.IsActive {
			return fmt.Errorf("artículo %d: %w", in.ItemID, domain.ErrItemInactive)
		}
		newBalance, err = e.applyInTx(stockRepo, ledgerRepo, wdRepo, in, time.Now(), uuid.New().String())
		return err
	})
	if err != nil {
		return 0, err
	}
	e.InvalidateStock(ctx, in.ItemID)
	return newBalance, nil
}

// applyInTx aplica un movimiento con repositorios ya atados a una transacción.
// El caller es responsable de Commit/Rollback (vía TxRunner).
func (e *Engine) applyInTx(
	stockRepo repository.StockRepository,
	ledgerRepo repository.LedgerRepository,
	wdRepo repository.WithdrawalRepository,
	in MovementInput,
	now time.Time, txID string,
) (int64, error) {
	// Bloquea la fila de stock: los movimientos del mismo artículo se serializan.
	stock, err := stockRepo.GetForUpdate(in.ItemID)
	if err != nil {
		return 0, err
	}
	newBalance := stock.Quantity + in.delta()
	if newBalance < 0 {
		return 0, fmt.Errorf("artículo %d: %w", in.ItemID, domain.ErrInsufficientStock)
	}

	stock.Quantity = newBalance
	stock.UpdatedAt = now
	if err := stockRepo.Upsert(stock); err != nil {
		return 0, err
	}

	entry := &entity.LedgerEntry{
		TransactionID: txID,
		ItemID:        in.ItemID,
		Type:          in.Type,
		Quantity:      in.delta(),
		BalanceAfter:  newBalance,
		LineID:        in.LineID,
		Remark:        in.Remark,
		CreatedBy:     in.ActorID,
		CreatedAt:     now,
	}
	if err := ledgerRepo.Create(entry); err != nil {
		return 0, err
	}

	// Una devolución referida a una línea de retiro también salda la línea,
	// dentro de la misma unidad atómica.
	if in.Type == entity.MovementTypeRETURN && in.LineID != nil {
		line, err := wdRepo.AddReturnedQuantity(*in.LineID, in.Quantity)
		if err != nil {
			return 0, err
		}
		if line.ReturnedQuantity >= line.ApprovedQuantity {
			if err := wdRepo.MarkLineReturned(*in.LineID); err != nil {
				return 0, err
			}
		}
	}
	return newBalance, nil
}

// DeductInTx ejecuta una salida (OUT) con los repositorios del caller: misma
// transacción. Lo usa el flujo de aprobación para descontar las líneas
// aprobadas como parte de su propia unidad atómica (todo o nada).
func (e *Engine) DeductInTx(
	stockRepo repository.StockRepository,
	ledgerRepo repository.LedgerRepository,
	wdRepo repository.WithdrawalRepository,
	itemID, quantity int64,
	actorID string, lineID *int64,
	now time.Time, txID string,
) (int64, error) {
	return e.applyInTx(stockRepo, ledgerRepo, wdRepo, MovementInput{
		ItemID:   itemID,
		Type:     entity.MovementTypeOUT,
		Quantity: quantity,
		ActorID:  actorID,
		LineID:   lineID,
	}, now, txID)
}

// ReturnInTx ejecuta una devolución (RETURN) referida a una línea, con los
// repositorios del caller. El saldo de la línea se actualiza en applyInTx.
func (e *Engine) ReturnInTx(
	stockRepo repository.StockRepository,
	ledgerRepo repository.LedgerRepository,
	wdRepo repository.WithdrawalRepository,
	itemID, quantity int64,
	actorID string, lineID *int64,
	remark string,
	now time.Time, txID string,
) (int64, error) {
	return e.applyInTx(stockRepo, ledgerRepo, wdRepo, MovementInput{
		ItemID:   itemID,
		Type:     entity.MovementTypeRETURN,
		Quantity: quantity,
		ActorID:  actorID,
		LineID:   lineID,
		Remark:   remark,
	}, now, txID)
}

// InvalidateStock descarta las claves de caché de los artículos indicados tras
// un commit. Mejor esfuerzo: un fallo del caché no afecta la operación.
func (e *Engine) InvalidateStock(ctx context.Context, itemIDs ...int64) {
	if e.cache == nil {
		return
	}
	_ = e.cache.Invalidate(ctx, itemIDs...)
}
