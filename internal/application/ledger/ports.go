package ledger

import (
	"context"

	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando
// repositorios atados a esa tx. Garantiza atomicidad para el motor del libro
// y para el flujo de aprobación: o se confirma todo o no se confirma nada.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		itemRepo repository.ItemRepository,
		stockRepo repository.StockRepository,
		ledgerRepo repository.LedgerRepository,
		wdRepo repository.WithdrawalRepository,
	) error) error
}

// StockCache es un caché opcional de lectura para la existencia actual
// (solo exhibición; una lectura vencida nunca participa en una decisión de
// movimiento, esas siempre releen bajo bloqueo de fila).
type StockCache interface {
	Get(ctx context.Context, itemID int64) (int64, bool, error)
	Set(ctx context.Context, itemID, quantity int64) error
	Invalidate(ctx context.Context, itemIDs ...int64) error
}
