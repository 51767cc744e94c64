package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

var _ repository.WithdrawalRepository = (*WithdrawalRepo)(nil)

// WithdrawalRepo persistencia de documentos de retiro y sus líneas
// (usable con pool o tx).
type WithdrawalRepo struct {
	q Querier
}

// NewWithdrawalRepository construye el adaptador. Pasar pool o tx (Querier).
func NewWithdrawalRepository(q Querier) *WithdrawalRepo {
	return &WithdrawalRepo{q: q}
}

// Create inserta el documento y sus líneas en una sola pasada. Las líneas son
// propiedad exclusiva del documento (ON DELETE CASCADE en el esquema).
func (r *WithdrawalRepo) Create(doc *entity.Withdrawal, lines []*entity.WithdrawalLine) (int64, error) {
	ctx := context.Background()
	query := `
		INSERT INTO withdrawals (requested_by, topic, status, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.q.QueryRow(ctx, query, doc.RequestedBy, doc.Topic, string(doc.Status), doc.CreatedAt).Scan(&doc.ID); err != nil {
		return 0, fmt.Errorf("create withdrawal: %w", err)
	}
	lineQuery := `
		INSERT INTO withdrawal_lines (withdrawal_id, item_id, quantity, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	for _, l := range lines {
		l.WithdrawalID = doc.ID
		if err := r.q.QueryRow(ctx, lineQuery, doc.ID, l.ItemID, l.Quantity, string(l.Status)).Scan(&l.ID); err != nil {
			return 0, fmt.Errorf("create withdrawal line: %w", err)
		}
	}
	return doc.ID, nil
}

const withdrawalColumns = `id, requested_by, COALESCE(topic, ''), status,
	COALESCE(approved_by, ''), COALESCE(approved_note, ''), approved_at, created_at`

func scanWithdrawal(row pgx.Row) (*entity.Withdrawal, error) {
	var w entity.Withdrawal
	var status string
	err := row.Scan(&w.ID, &w.RequestedBy, &w.Topic, &status,
		&w.ApprovedBy, &w.ApprovedNote, &w.ApprovedAt, &w.CreatedAt)
	if err != nil {
		return nil, err
	}
	w.Status = entity.DocumentStatus(status)
	return &w, nil
}

// GetByID obtiene un documento. Devuelve nil sin error si no existe.
func (r *WithdrawalRepo) GetByID(id int64) (*entity.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1`
	w, err := scanWithdrawal(r.q.QueryRow(context.Background(), query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get withdrawal: %w", err)
	}
	return w, nil
}

// GetForUpdate obtiene el documento bloqueando su fila (SELECT FOR UPDATE):
// serializa Dispose/Cancel/ReturnLine concurrentes sobre el mismo documento.
func (r *WithdrawalRepo) GetForUpdate(id int64) (*entity.Withdrawal, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE id = $1 FOR UPDATE`
	w, err := scanWithdrawal(r.q.QueryRow(context.Background(), query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get withdrawal for update: %w", err)
	}
	return w, nil
}

// List lista documentos del más reciente al más antiguo. Devuelve el total.
func (r *WithdrawalRepo) List(limit, offset int) ([]*entity.Withdrawal, int, error) {
	query := `
		SELECT ` + withdrawalColumns + `, COUNT(*) OVER() AS total_count
		FROM withdrawals
		ORDER BY id DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.q.Query(context.Background(), query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list withdrawals: %w", err)
	}
	defer rows.Close()

	var list []*entity.Withdrawal
	total := 0
	for rows.Next() {
		var w entity.Withdrawal
		var status string
		if err := rows.Scan(&w.ID, &w.RequestedBy, &w.Topic, &status,
			&w.ApprovedBy, &w.ApprovedNote, &w.ApprovedAt, &w.CreatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan withdrawal: %w", err)
		}
		w.Status = entity.DocumentStatus(status)
		list = append(list, &w)
	}
	return list, total, rows.Err()
}

// UpdateStatus fija el estatus terminal del documento junto con el actor y la
// nota de aprobación.
func (r *WithdrawalRepo) UpdateStatus(id int64, status entity.DocumentStatus, actor, note string) error {
	query := `
		UPDATE withdrawals
		SET status = $1, approved_by = $2, approved_note = $3, approved_at = now()
		WHERE id = $4`
	tag, err := r.q.Exec(context.Background(), query, string(status), actor, note, id)
	if err != nil {
		return fmt.Errorf("update withdrawal status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update withdrawal status: retiro %d no existe", id)
	}
	return nil
}

const lineColumns = `id, withdrawal_id, item_id, quantity, status,
	approved_quantity, rejected_quantity, returned_quantity,
	COALESCE(reject_reason, ''), COALESCE(approved_by, ''), approved_at`

func scanLine(row pgx.Row) (*entity.WithdrawalLine, error) {
	var l entity.WithdrawalLine
	var status string
	err := row.Scan(&l.ID, &l.WithdrawalID, &l.ItemID, &l.Quantity, &status,
		&l.ApprovedQuantity, &l.RejectedQuantity, &l.ReturnedQuantity,
		&l.RejectReason, &l.ApprovedBy, &l.ApprovedAt)
	if err != nil {
		return nil, err
	}
	l.Status = entity.LineStatus(status)
	return &l, nil
}

// ListLines lista las líneas del documento en orden ascendente de id.
func (r *WithdrawalRepo) ListLines(withdrawalID int64) ([]*entity.WithdrawalLine, error) {
	query := `SELECT ` + lineColumns + ` FROM withdrawal_lines WHERE withdrawal_id = $1 ORDER BY id`
	rows, err := r.q.Query(context.Background(), query, withdrawalID)
	if err != nil {
		return nil, fmt.Errorf("list withdrawal lines: %w", err)
	}
	defer rows.Close()

	var list []*entity.WithdrawalLine
	for rows.Next() {
		var l entity.WithdrawalLine
		var status string
		if err := rows.Scan(&l.ID, &l.WithdrawalID, &l.ItemID, &l.Quantity, &status,
			&l.ApprovedQuantity, &l.RejectedQuantity, &l.ReturnedQuantity,
			&l.RejectReason, &l.ApprovedBy, &l.ApprovedAt); err != nil {
			return nil, fmt.Errorf("scan withdrawal line: %w", err)
		}
		l.Status = entity.LineStatus(status)
		list = append(list, &l)
	}
	return list, rows.Err()
}

// GetLineForUpdate obtiene una línea del documento bloqueando su fila.
func (r *WithdrawalRepo) GetLineForUpdate(withdrawalID, lineID int64) (*entity.WithdrawalLine, error) {
	query := `SELECT ` + lineColumns + ` FROM withdrawal_lines
		WHERE id = $1 AND withdrawal_id = $2 FOR UPDATE`
	l, err := scanLine(r.q.QueryRow(context.Background(), query, lineID, withdrawalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get line for update: %w", err)
	}
	return l, nil
}

// UpdateLineDisposition persiste la decisión sobre la línea.
func (r *WithdrawalRepo) UpdateLineDisposition(line *entity.WithdrawalLine) error {
	query := `
		UPDATE withdrawal_lines
		SET status = $1, approved_quantity = $2, rejected_quantity = $3,
		    reject_reason = $4, approved_by = $5, approved_at = $6
		WHERE id = $7`
	_, err := r.q.Exec(context.Background(), query,
		string(line.Status), line.ApprovedQuantity, line.RejectedQuantity,
		line.RejectReason, line.ApprovedBy, line.ApprovedAt, line.ID)
	if err != nil {
		return fmt.Errorf("update line disposition: %w", err)
	}
	return nil
}

// SummarizeLines agrega totales, pendientes y cantidad aprobada del documento.
func (r *WithdrawalRepo) SummarizeLines(withdrawalID int64) (entity.LineSummary, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'pending'),
		       COALESCE(SUM(approved_quantity), 0)
		FROM withdrawal_lines
		WHERE withdrawal_id = $1`
	var s entity.LineSummary
	err := r.q.QueryRow(context.Background(), query, withdrawalID).Scan(&s.Total, &s.Pending, &s.TotalApproved)
	if err != nil {
		return entity.LineSummary{}, fmt.Errorf("summarize lines: %w", err)
	}
	return s, nil
}

// CancelPendingLines marca cancelled toda línea aún pendiente del documento.
func (r *WithdrawalRepo) CancelPendingLines(withdrawalID int64, reason string) error {
	query := `
		UPDATE withdrawal_lines
		SET status = 'cancelled', reject_reason = $1
		WHERE withdrawal_id = $2 AND status = 'pending'`
	if _, err := r.q.Exec(context.Background(), query, reason, withdrawalID); err != nil {
		return fmt.Errorf("cancel pending lines: %w", err)
	}
	return nil
}

// AddReturnedQuantity acumula una devolución sobre la línea (cap de la cantidad
// aprobada a cargo del caller bajo bloqueo) y devuelve la línea actualizada.
func (r *WithdrawalRepo) AddReturnedQuantity(lineID, quantity int64) (*entity.WithdrawalLine, error) {
	query := `
		UPDATE withdrawal_lines
		SET returned_quantity = returned_quantity + $1
		WHERE id = $2
		RETURNING ` + lineColumns
	l, err := scanLine(r.q.QueryRow(context.Background(), query, quantity, lineID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("add returned quantity: línea %d no existe", lineID)
		}
		return nil, fmt.Errorf("add returned quantity: %w", err)
	}
	return l, nil
}

// MarkLineReturned fija el estatus terminal returned cuando la línea quedó
// totalmente saldada.
func (r *WithdrawalRepo) MarkLineReturned(lineID int64) error {
	query := `
		UPDATE withdrawal_lines
		SET status = 'returned'
		WHERE id = $1 AND returned_quantity >= approved_quantity`
	if _, err := r.q.Exec(context.Background(), query, lineID); err != nil {
		return fmt.Errorf("mark line returned: %w", err)
	}
	return nil
}
