package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

var _ repository.LedgerRepository = (*LedgerRepo)(nil)

// LedgerRepo persistencia del libro de inventario (usable con pool o tx).
// Solo inserta y lee: el libro no se actualiza ni se borra.
type LedgerRepo struct {
	q Querier
}

// NewLedgerRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLedgerRepository(q Querier) *LedgerRepo {
	return &LedgerRepo{q: q}
}

// Create persiste un asiento del libro y fija su id de autoincremento
// (el orden de id refleja el orden de commit por artículo).
func (r *LedgerRepo) Create(entry *entity.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries
			(transaction_id, item_id, type, quantity, balance_after, withdrawal_line_id, remark, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	remark := (*string)(nil)
	if entry.Remark != "" {
		remark = &entry.Remark
	}
	err := r.q.QueryRow(context.Background(), query,
		entry.TransactionID, entry.ItemID, entry.Type, entry.Quantity,
		entry.BalanceAfter, entry.LineID, remark, entry.CreatedBy, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("create ledger entry: %w", err)
	}
	return nil
}

// ListByItem lista asientos de un artículo (itemID = 0 lista todos) acotados
// por fechas, del más reciente al más antiguo. Devuelve el total.
func (r *LedgerRepo) ListByItem(itemID int64, from, to *time.Time, limit, offset int) ([]*entity.LedgerEntry, int, error) {
	query := `
		SELECT id, transaction_id, item_id, type, quantity, balance_after,
		       withdrawal_line_id, remark, created_by, created_at,
		       COUNT(*) OVER() AS total_count
		FROM ledger_entries
		WHERE 1=1`
	args := []any{}
	pos := 1
	if itemID > 0 {
		query += fmt.Sprintf(" AND item_id = $%d", pos)
		args = append(args, itemID)
		pos++
	}
	if from != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", pos)
		args = append(args, *from)
		pos++
	}
	if to != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", pos)
		args = append(args, *to)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, limit, offset)

	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list ledger: %w", err)
	}
	defer rows.Close()

	var list []*entity.LedgerEntry
	total := 0
	for rows.Next() {
		var e entity.LedgerEntry
		var remark *string
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.ItemID, &e.Type, &e.Quantity,
			&e.BalanceAfter, &e.LineID, &remark, &e.CreatedBy, &e.CreatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan ledger entry: %w", err)
		}
		if remark != nil {
			e.Remark = *remark
		}
		list = append(list, &e)
	}
	return list, total, rows.Err()
}

// SumByItem suma los deltas del libro para un artículo (contraste de auditoría
// contra la proyección).
func (r *LedgerRepo) SumByItem(itemID int64) (int64, error) {
	query := `SELECT COALESCE(SUM(quantity), 0) FROM ledger_entries WHERE item_id = $1`
	var sum int64
	if err := r.q.QueryRow(context.Background(), query, itemID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("sum ledger: %w", err)
	}
	return sum, nil
}
