package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// Get obtiene la existencia actual de un artículo. Sin fila equivale a cero.
func (r *StockRepo) Get(itemID int64) (*entity.Stock, error) {
	query := `SELECT item_id, quantity, updated_at FROM stock WHERE item_id = $1`
	var s entity.Stock
	err := r.q.QueryRow(context.Background(), query, itemID).Scan(&s.ItemID, &s.Quantity, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.Stock{ItemID: itemID}, nil
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return &s, nil
}

// GetForUpdate obtiene la existencia y bloquea la fila (SELECT FOR UPDATE).
// Los movimientos de un mismo artículo se serializan sobre este bloqueo.
func (r *StockRepo) GetForUpdate(itemID int64) (*entity.Stock, error) {
	query := `SELECT item_id, quantity, updated_at FROM stock WHERE item_id = $1 FOR UPDATE`
	var s entity.Stock
	err := r.q.QueryRow(context.Background(), query, itemID).Scan(&s.ItemID, &s.Quantity, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.Stock{ItemID: itemID}, nil
		}
		return nil, fmt.Errorf("get stock for update: %w", err)
	}
	return &s, nil
}

// Upsert inserta o actualiza la cantidad en existencia del artículo.
func (r *StockRepo) Upsert(stock *entity.Stock) error {
	query := `
		INSERT INTO stock (item_id, quantity, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (item_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = now()`
	_, err := r.q.Exec(context.Background(), query, stock.ItemID, stock.Quantity)
	if err != nil {
		return fmt.Errorf("upsert stock: %w", err)
	}
	return nil
}

// List lista existencias de artículos activos con su nombre y unidad, paginado.
// Devuelve también el total para la paginación.
func (r *StockRepo) List(limit, offset int) ([]*entity.StockView, int, error) {
	query := `
		SELECT s.item_id, i.name, i.unit, s.quantity, s.updated_at,
		       COUNT(*) OVER() AS total_count
		FROM stock s
		JOIN items i ON i.id = s.item_id
		WHERE i.is_active = true
		ORDER BY s.item_id DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(context.Background(), query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list stock: %w", err)
	}
	defer rows.Close()

	var list []*entity.StockView
	total := 0
	for rows.Next() {
		var v entity.StockView
		if err := rows.Scan(&v.ItemID, &v.Name, &v.Unit, &v.Quantity, &v.UpdatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan stock: %w", err)
		}
		list = append(list, &v)
	}
	return list, total, rows.Err()
}
