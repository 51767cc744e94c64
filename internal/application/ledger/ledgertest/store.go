// Package ledgertest provee un almacén en memoria con repositorios y TxRunner
// falsos para probar los casos de uso sin PostgreSQL. El TxRunner toma un
// snapshot antes de ejecutar el callback y lo restaura ante error, imitando el
// Rollback transaccional; además serializa las "transacciones" con un mutex,
// como lo harían los bloqueos de fila sobre un mismo artículo.
package ledgertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jhoicas/almacen-api/internal/domain/entity"
	"github.com/jhoicas/almacen-api/internal/domain/repository"
)

// Store estado compartido de los repositorios falsos. Los métodos de los
// repositorios NO toman el mutex: el TxRunner lo sostiene durante todo Run.
type Store struct {
	mu sync.Mutex

	items  map[int64]*entity.Item
	stock  map[int64]*entity.Stock
	ledger []*entity.LedgerEntry
	docs   map[int64]*entity.Withdrawal
	lines  map[int64]*entity.WithdrawalLine

	nextDocID   int64
	nextLineID  int64
	nextEntryID int64
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		items: make(map[int64]*entity.Item),
		stock: make(map[int64]*entity.Stock),
		docs:  make(map[int64]*entity.Withdrawal),
		lines: make(map[int64]*entity.WithdrawalLine),
	}
}

// SeedItem registra un artículo con su existencia inicial (sin asiento: los
// tests que verifican replay parten de stock cero y mueven vía el motor).
func (s *Store) SeedItem(id int64, name string, active bool, quantity int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = &entity.Item{ID: id, Name: name, Unit: "unidad", IsActive: active, CreatedAt: time.Now()}
	s.stock[id] = &entity.Stock{ItemID: id, Quantity: quantity, UpdatedAt: time.Now()}
}

// SeedWithdrawal registra un documento con sus líneas tal cual se entregan
// (ids asignados secuencialmente) y devuelve el id del documento.
func (s *Store) SeedWithdrawal(doc *entity.Withdrawal, lines ...*entity.WithdrawalLine) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextDocID++
	doc.ID = s.nextDocID
	c := *doc
	s.docs[doc.ID] = &c
	for _, l := range lines {
		s.nextLineID++
		l.ID = s.nextLineID
		l.WithdrawalID = doc.ID
		lc := *l
		s.lines[l.ID] = &lc
	}
	return doc.ID
}

// StockQuantity devuelve la existencia actual del artículo.
func (s *Store) StockQuantity(itemID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.stock[itemID]
	if !ok {
		return 0
	}
	return st.Quantity
}

// LedgerEntries devuelve copia de los asientos en orden de commit.
func (s *Store) LedgerEntries() []*entity.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.LedgerEntry, 0, len(s.ledger))
	for _, e := range s.ledger {
		c := *e
		out = append(out, &c)
	}
	return out
}

// LedgerSum suma los deltas del libro para un artículo (replay).
func (s *Store) LedgerSum(itemID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, e := range s.ledger {
		if e.ItemID == itemID {
			sum += e.Quantity
		}
	}
	return sum
}

// Document devuelve copia del documento.
func (s *Store) Document(id int64) *entity.Withdrawal {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return nil
	}
	c := *d
	return &c
}

// Line devuelve copia de la línea.
func (s *Store) Line(id int64) *entity.WithdrawalLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lines[id]
	if !ok {
		return nil
	}
	c := *l
	return &c
}

// LineIDs devuelve los ids de línea del documento en orden ascendente.
func (s *Store) LineIDs(docID int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []int64
	for id, l := range s.lines {
		if l.WithdrawalID == docID {
			ids = append(ids, id)
		}
	}
	sortInt64(ids)
	return ids
}

func sortInt64(ids []int64) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

// snapshot estado completo copiado a profundidad.
type snapshot struct {
	items  map[int64]*entity.Item
	stock  map[int64]*entity.Stock
	ledger []*entity.LedgerEntry
	docs   map[int64]*entity.Withdrawal
	lines  map[int64]*entity.WithdrawalLine

	nextDocID   int64
	nextLineID  int64
	nextEntryID int64
}

func (s *Store) clone() snapshot {
	snap := snapshot{
		items:       make(map[int64]*entity.Item, len(s.items)),
		stock:       make(map[int64]*entity.Stock, len(s.stock)),
		ledger:      make([]*entity.LedgerEntry, 0, len(s.ledger)),
		docs:        make(map[int64]*entity.Withdrawal, len(s.docs)),
		lines:       make(map[int64]*entity.WithdrawalLine, len(s.lines)),
		nextDocID:   s.nextDocID,
		nextLineID:  s.nextLineID,
		nextEntryID: s.nextEntryID,
	}
	for k, v := range s.items {
		c := *v
		snap.items[k] = &c
	}
	for k, v := range s.stock {
		c := *v
		snap.stock[k] = &c
	}
	for _, e := range s.ledger {
		c := *e
		snap.ledger = append(snap.ledger, &c)
	}
	for k, v := range s.docs {
		c := *v
		snap.docs[k] = &c
	}
	for k, v := range s.lines {
		c := *v
		snap.lines[k] = &c
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.items = snap.items
	s.stock = snap.stock
	s.ledger = snap.ledger
	s.docs = snap.docs
	s.lines = snap.lines
	s.nextDocID = snap.nextDocID
	s.nextLineID = snap.nextLineID
	s.nextEntryID = snap.nextEntryID
}

// TxRunner implementación en memoria de ledger.TxRunner: snapshot + restore
// ante error, mutex sostenido durante todo el callback.
type TxRunner struct {
	S *Store
}

// Run ejecuta fn con repositorios atados al almacén; ante error restaura el
// estado previo (equivalente al Rollback).
func (r *TxRunner) Run(ctx context.Context, fn func(
	itemRepo repository.ItemRepository,
	stockRepo repository.StockRepository,
	ledgerRepo repository.LedgerRepository,
	wdRepo repository.WithdrawalRepository,
) error) error {
	r.S.mu.Lock()
	defer r.S.mu.Unlock()
	snap := r.S.clone()
	if err := fn(&ItemRepo{S: r.S}, &StockRepo{S: r.S}, &LedgerRepo{S: r.S}, &WithdrawalRepo{S: r.S}); err != nil {
		r.S.restore(snap)
		return err
	}
	return nil
}

// ItemRepo repositorio falso de artículos.
type ItemRepo struct{ S *Store }

func (r *ItemRepo) GetByID(id int64) (*entity.Item, error) {
	it, ok := r.S.items[id]
	if !ok {
		return nil, nil
	}
	c := *it
	return &c, nil
}

// StockRepo repositorio falso de existencias.
type StockRepo struct{ S *Store }

func (r *StockRepo) Get(itemID int64) (*entity.Stock, error) {
	st, ok := r.S.stock[itemID]
	if !ok {
		return &entity.Stock{ItemID: itemID}, nil
	}
	c := *st
	return &c, nil
}

func (r *StockRepo) GetForUpdate(itemID int64) (*entity.Stock, error) {
	return r.Get(itemID)
}

func (r *StockRepo) Upsert(stock *entity.Stock) error {
	c := *stock
	r.S.stock[stock.ItemID] = &c
	return nil
}

func (r *StockRepo) List(limit, offset int) ([]*entity.StockView, int, error) {
	var ids []int64
	for id, it := range r.S.items {
		if it.IsActive {
			ids = append(ids, id)
		}
	}
	sortInt64(ids)
	var list []*entity.StockView
	for _, id := range ids {
		st := r.S.stock[id]
		it := r.S.items[id]
		list = append(list, &entity.StockView{ItemID: id, Name: it.Name, Unit: it.Unit, Quantity: st.Quantity, UpdatedAt: st.UpdatedAt})
	}
	total := len(list)
	if offset > len(list) {
		offset = len(list)
	}
	list = list[offset:]
	if limit < len(list) {
		list = list[:limit]
	}
	return list, total, nil
}

// LedgerRepo repositorio falso del libro.
type LedgerRepo struct{ S *Store }

func (r *LedgerRepo) Create(entry *entity.LedgerEntry) error {
	r.S.nextEntryID++
	entry.ID = r.S.nextEntryID
	c := *entry
	r.S.ledger = append(r.S.ledger, &c)
	return nil
}

func (r *LedgerRepo) ListByItem(itemID int64, from, to *time.Time, limit, offset int) ([]*entity.LedgerEntry, int, error) {
	var list []*entity.LedgerEntry
	for i := len(r.S.ledger) - 1; i >= 0; i-- {
		e := r.S.ledger[i]
		if itemID > 0 && e.ItemID != itemID {
			continue
		}
		c := *e
		list = append(list, &c)
	}
	total := len(list)
	if offset > len(list) {
		offset = len(list)
	}
	list = list[offset:]
	if limit < len(list) {
		list = list[:limit]
	}
	return list, total, nil
}

func (r *LedgerRepo) SumByItem(itemID int64) (int64, error) {
	var sum int64
	for _, e := range r.S.ledger {
		if e.ItemID == itemID {
			sum += e.Quantity
		}
	}
	return sum, nil
}

// WithdrawalRepo repositorio falso de retiros.
type WithdrawalRepo struct{ S *Store }

func (r *WithdrawalRepo) Create(doc *entity.Withdrawal, lines []*entity.WithdrawalLine) (int64, error) {
	r.S.nextDocID++
	doc.ID = r.S.nextDocID
	c := *doc
	r.S.docs[doc.ID] = &c
	for _, l := range lines {
		r.S.nextLineID++
		l.ID = r.S.nextLineID
		l.WithdrawalID = doc.ID
		lc := *l
		r.S.lines[l.ID] = &lc
	}
	return doc.ID, nil
}

func (r *WithdrawalRepo) GetByID(id int64) (*entity.Withdrawal, error) {
	d, ok := r.S.docs[id]
	if !ok {
		return nil, nil
	}
	c := *d
	return &c, nil
}

func (r *WithdrawalRepo) GetForUpdate(id int64) (*entity.Withdrawal, error) {
	return r.GetByID(id)
}

func (r *WithdrawalRepo) List(limit, offset int) ([]*entity.Withdrawal, int, error) {
	var ids []int64
	for id := range r.S.docs {
		ids = append(ids, id)
	}
	sortInt64(ids)
	var list []*entity.Withdrawal
	for i := len(ids) - 1; i >= 0; i-- {
		c := *r.S.docs[ids[i]]
		list = append(list, &c)
	}
	total := len(list)
	if offset > len(list) {
		offset = len(list)
	}
	list = list[offset:]
	if limit < len(list) {
		list = list[:limit]
	}
	return list, total, nil
}

func (r *WithdrawalRepo) UpdateStatus(id int64, status entity.DocumentStatus, actor, note string) error {
	d, ok := r.S.docs[id]
	if !ok {
		return fmt.Errorf("retiro %d no existe", id)
	}
	now := time.Now()
	d.Status = status
	d.ApprovedBy = actor
	d.ApprovedNote = note
	d.ApprovedAt = &now
	return nil
}

func (r *WithdrawalRepo) ListLines(withdrawalID int64) ([]*entity.WithdrawalLine, error) {
	var ids []int64
	for id, l := range r.S.lines {
		if l.WithdrawalID == withdrawalID {
			ids = append(ids, id)
		}
	}
	sortInt64(ids)
	var list []*entity.WithdrawalLine
	for _, id := range ids {
		c := *r.S.lines[id]
		list = append(list, &c)
	}
	return list, nil
}

func (r *WithdrawalRepo) GetLineForUpdate(withdrawalID, lineID int64) (*entity.WithdrawalLine, error) {
	l, ok := r.S.lines[lineID]
	if !ok || l.WithdrawalID != withdrawalID {
		return nil, nil
	}
	c := *l
	return &c, nil
}

func (r *WithdrawalRepo) UpdateLineDisposition(line *entity.WithdrawalLine) error {
	if _, ok := r.S.lines[line.ID]; !ok {
		return fmt.Errorf("línea %d no existe", line.ID)
	}
	c := *line
	r.S.lines[line.ID] = &c
	return nil
}

func (r *WithdrawalRepo) SummarizeLines(withdrawalID int64) (entity.LineSummary, error) {
	var s entity.LineSummary
	for _, l := range r.S.lines {
		if l.WithdrawalID != withdrawalID {
			continue
		}
		s.Total++
		if l.Status == entity.LinePending {
			s.Pending++
		}
		s.TotalApproved += l.ApprovedQuantity
	}
	return s, nil
}

func (r *WithdrawalRepo) CancelPendingLines(withdrawalID int64, reason string) error {
	for _, l := range r.S.lines {
		if l.WithdrawalID == withdrawalID && l.Status == entity.LinePending {
			l.Status = entity.LineCancelled
			l.RejectReason = reason
		}
	}
	return nil
}

func (r *WithdrawalRepo) AddReturnedQuantity(lineID, quantity int64) (*entity.WithdrawalLine, error) {
	l, ok := r.S.lines[lineID]
	if !ok {
		return nil, fmt.Errorf("línea %d no existe", lineID)
	}
	l.ReturnedQuantity += quantity
	c := *l
	return &c, nil
}

func (r *WithdrawalRepo) MarkLineReturned(lineID int64) error {
	l, ok := r.S.lines[lineID]
	if !ok {
		return fmt.Errorf("línea %d no existe", lineID)
	}
	if l.ReturnedQuantity >= l.ApprovedQuantity {
		l.Status = entity.LineReturned
	}
	return nil
}
