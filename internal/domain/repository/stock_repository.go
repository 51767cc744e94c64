package repository

import "github.com/jhoicas/almacen-api/internal/domain/entity"

// StockRepository define el puerto para consultar/actualizar la existencia
// materializada por artículo. GetForUpdate se usa dentro de transacciones para
// serializar los movimientos de un mismo artículo.
type StockRepository interface {
	Get(itemID int64) (*entity.Stock, error)
	// GetForUpdate bloquea la fila para update (SELECT FOR UPDATE).
	GetForUpdate(itemID int64) (*entity.Stock, error)
	Upsert(stock *entity.Stock) error
	List(limit, offset int) ([]*entity.StockView, int, error)
}
