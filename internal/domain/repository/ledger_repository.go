package repository

import (
	"time"

	"github.com/jhoicas/almacen-api/internal/domain/entity"
)

// LedgerRepository es el puerto de persistencia del libro de inventario.
// El libro es append-only: no hay Update ni Delete.
type LedgerRepository interface {
	Create(entry *entity.LedgerEntry) error
	ListByItem(itemID int64, from, to *time.Time, limit, offset int) ([]*entity.LedgerEntry, int, error)
	// SumByItem devuelve la suma de deltas del artículo (auditoría del saldo).
	SumByItem(itemID int64) (int64, error)
}
