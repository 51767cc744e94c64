package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

// StockQuery expone las lecturas del inventario fuera del motor: existencia
// actual, listados y el libro. Lecturas vencidas son aceptables aquí (solo
// exhibición); las decisiones de movimiento releen bajo bloqueo en el Engine.
type StockQuery struct {
	stockRepo  repository.StockRepository
	ledgerRepo repository.LedgerRepository
	itemRepo   repository.ItemRepository
	cache      StockCache // puede ser nil
}

// NewStockQuery construye las consultas con repositorios atados al pool.
func NewStockQuery(
	stockRepo repository.StockRepository,
	ledgerRepo repository.LedgerRepository,
	itemRepo repository.ItemRepository,
	cache StockCache,
) *StockQuery {
	return &StockQuery{stockRepo: stockRepo, ledgerRepo: ledgerRepo, itemRepo: itemRepo, cache: cache}
}

// CurrentQuantity devuelve la existencia actual de un artículo. Intenta el
// caché primero; en miss lee la proyección y repuebla la clave.
func (q *StockQuery) CurrentQuantity(ctx context.Context, itemID int64) (int64, error) {
	if q.cache != nil {
		if qty, ok, err := q.cache.Get(ctx, itemID); err == nil && ok {
			return qty, nil
		}
	}
	item, err := q.itemRepo.GetByID(itemID)
	if err != nil {
		return 0, err
	}
	if item == nil {
		return 0, fmt.Errorf("artículo %d: %w", itemID, domain.ErrNotFound)
	}
	stock, err := q.stockRepo.Get(itemID)
	if err != nil {
		return 0, err
	}
	if q.cache != nil {
		_ = q.cache.Set(ctx, itemID, stock.Quantity) // mejor esfuerzo
	}
	return stock.Quantity, nil
}

// ListStock lista las existencias de artículos activos, paginadas.
func (q *StockQuery) ListStock(ctx context.Context, limit, offset int) ([]*entity.StockView, int, error) {
	return q.stockRepo.List(limit, offset)
}

// ListLedger lista el libro de un artículo (o de todos con itemID = 0),
// acotado por fechas, en orden de commit descendente.
func (q *StockQuery) ListLedger(ctx context.Context, itemID int64, from, to *time.Time, limit, offset int) ([]*entity.LedgerEntry, int, error) {
	return q.ledgerRepo.ListByItem(itemID, from, to, limit, offset)
}

// AuditResult es el resultado de contrastar la proyección contra el libro.
type AuditResult struct {
	ItemID     int64
	Projected  int64
	LedgerSum  int64
	Consistent bool
}

// Audit verifica el invariante del artículo: proyección == suma de deltas del
// libro. Lectura sin bloqueo; un movimiento en vuelo puede producir una
// diferencia transitoria, reintentar ante inconsistencia.
func (q *StockQuery) Audit(ctx context.Context, itemID int64) (*AuditResult, error) {
	item, err := q.itemRepo.GetByID(itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("artículo %d: %w", itemID, domain.ErrNotFound)
	}
	stock, err := q.stockRepo.Get(itemID)
	if err != nil {
		return nil, err
	}
	sum, err := q.ledgerRepo.SumByItem(itemID)
	if err != nil {
		return nil, err
	}
	return &AuditResult{
		ItemID:     itemID,
		Projected:  stock.Quantity,
		LedgerSum:  sum,
		Consistent: stock.Quantity == sum,
	}, nil
}
