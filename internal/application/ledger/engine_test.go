package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/almacen-api/internal/application/ledger"
	"github.com/jhoicas/almacen-api/internal/application/ledger/ledgertest"
	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
)

func newEngine(store *ledgertest.Store) *ledger.Engine {
	return ledger.NewEngine(&ledgertest.TxRunner{S: store}, nil)
}

func TestApplyMovement_EntradaSumaStockYAsientaSaldo(t *testing.T) {
	store := ledgertest.NewStore()
	store.SeedItem(1, "guantes", true, 0)
	engine := newEngine(store)

	balance, err := engine.ApplyMovement(context.Background(), ledger.MovementInput{
		ItemID: 1, Type: entity.MovementTypeIN, Quantity: 10, ActorID: "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)
	assert.Equal(t, int64(10), store.StockQuantity(1))

	entries := store.LedgerEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, entity.MovementTypeIN, entries[0].Type)
	assert.Equal(t, int64(10), entries[0].Quantity)
	assert.Equal(t, int64(10), entries[0].BalanceAfter)
	assert.Equal(t, "user-1", entries[0].CreatedBy)
	assert.NotEmpty(t, entries[0].TransactionID)
}

func TestApplyMovement_SalidaSinStockRechazaSinEscribir(t *testing.T) {
	store := ledgertest.NewStore()
	store.SeedItem(1, "guantes", true, 5)
	engine := newEngine(store)

	_, err := engine.ApplyMovement(context.Background(), ledger.MovementInput{
		ItemID: 1, Type: entity.MovementTypeOUT, Quantity: 6, ActorID: "user-1",
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(5), store.StockQuantity(1))
	assert.Empty(t, store.LedgerEntries())
}

func TestApplyMovement_AjusteFirmado(t *testing.T) {
	store := ledgertest.NewStore()
	store.SeedItem(1, "guantes", true, 5)
	engine := newEngine(store)

	balance, err := engine.ApplyMovement(context.Background(), ledger.MovementInput{
		ItemID: 1, Type: entity.MovementTypeADJUST, Quantity: -3, ActorID: "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), balance)

	// Un ajuste que dejaría el saldo negativo se rechaza antes de escribir.
	_, err = engine.ApplyMovement(context.Background(), ledger.MovementInput{
		ItemID: 1, Type: entity.MovementTypeADJUST, Quantity: -3, ActorID: "user-1",
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(2), store.StockQuantity(1))
}

func TestApplyMovement_Validaciones(t *testing.T) {
	store := ledgertest.NewStore()
	store.SeedItem(1, "guantes", true, 5)
	store.SeedItem(2, "casco viejo", false, 5)
	engine := newEngine(store)
	ctx := context.Background()

	cases := []struct {
		name    string
		input   ledger.MovementInput
		wantErr error
	}{
		{"tipo desconocido", ledger.MovementInput{ItemID: 1, Type: "MOVE", Quantity: 1, ActorID: "u"}, domain.ErrInvalidInput},
		{"cantidad cero en IN", ledger.MovementInput{ItemID: 1, Type: entity.MovementTypeIN, Quantity: 0, ActorID: "u"}, domain.ErrInvalidInput},
		{"cantidad negativa en OUT", ledger.MovementInput{ItemID: 1, Type: entity.MovementTypeOUT, Quantity: -2, ActorID: "u"}, domain.ErrInvalidInput},
		{"ajuste cero", ledger.MovementInput{ItemID: 1, Type: entity.MovementTypeADJUST, Quantity: 0, ActorID: "u"}, domain.ErrInvalidInput},
		{"actor vacío", ledger.MovementInput{ItemID: 1, Type: entity.MovementTypeIN, Quantity: 1}, domain.ErrInvalidInput},
		{"artículo inexistente", ledger.MovementInput{ItemID: 9, Type: entity.MovementTypeIN, Quantity: 1, ActorID: "u"}, domain.ErrNotFound},
		{"artículo inactivo", ledger.MovementInput{ItemID: 2, Type: entity.MovementTypeIN, Quantity: 1, ActorID: "u"}, domain.ErrItemInactive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.ApplyMovement(ctx, tc.input)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
	// Ninguna validación fallida dejó rastro en el libro.
	assert.Empty(t, store.LedgerEntries())
}

func TestApplyMovement_ProyeccionIgualASumaDelLibro(t *testing.T) {
	store := ledgertest.NewStore()
	store.SeedItem(1, "guantes", true, 0)
	engine := newEngine(store)
	ctx := context.Background()

	movs := []ledger.MovementInput{
		{ItemID: 1, Type: entity.MovementTypeIN, Quantity: 20, ActorID: "u"},
		{ItemID: 1, Type: entity.MovementTypeOUT, Quantity: 7, ActorID: "u"},
		{ItemID: 1, Type: entity.MovementTypeADJUST, Quantity: -3, ActorID: "u"},
		{ItemID: 1, Type: entity.MovementTypeIN, Quantity: 5, ActorID: "u"},
		{ItemID: 1, Type: entity.MovementTypeOUT, Quantity: 4, ActorID: "u"},
	}
	for _, m := range movs {
		_, err := engine.ApplyMovement(ctx, m)
		require.NoError(t, err)
	}

	// Invariante: proyección == suma de deltas; cada asiento lleva el saldo
	// que la proyección tenía justo después de aplicarlo (replay exacto).
	assert.Equal(t, store.LedgerSum(1), store.StockQuantity(1))
	var running int64
	for _, e := range store.LedgerEntries() {
		running += e.Quantity
		assert.Equal(t, running, e.BalanceAfter)
	}
	assert.Equal(t, int64(11), store.StockQuantity(1))
}

func TestApplyMovement_SalidasConcurrentesNuncaNegativizan(t *testing.T) {
	store := ledgertest.NewStore()
	store.SeedItem(1, "guantes", true, 10)
	engine := newEngine(store)

	// 5 salidas de 3 contra stock 10: solo caben 3; las demás deben fallar
	// con stock insuficiente sin combinar un saldo negativo.
	const workers = 5
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.ApplyMovement(context.Background(), ledger.MovementInput{
				ItemID: 1, Type: entity.MovementTypeOUT, Quantity: 3, ActorID: "u",
			})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
		}
	}
	assert.Equal(t, 3, ok)
	assert.Equal(t, int64(1), store.StockQuantity(1))
	assert.Len(t, store.LedgerEntries(), 3)
	for _, e := range store.LedgerEntries() {
		assert.GreaterOrEqual(t, e.BalanceAfter, int64(0))
	}
}

func TestApplyMovement_DevolucionReferidaSaldaLinea(t *testing.T) {
	store := ledgertest.NewStore()
	store.SeedItem(1, "guantes", true, 2)
	engine := newEngine(store)
	ctx := context.Background()

	// Línea ya aprobada y deducida por el flujo de retiros.
	docID := store.SeedWithdrawal(
		&entity.Withdrawal{RequestedBy: "user-1", Status: entity.DocumentApproved},
		&entity.WithdrawalLine{ItemID: 1, Quantity: 5, Status: entity.LineApproved, ApprovedQuantity: 5},
	)
	lineID := store.LineIDs(docID)[0]

	// Devolución parcial: acumula returned_quantity sin cambiar el estado.
	balance, err := engine.ApplyMovement(ctx, ledger.MovementInput{
		ItemID: 1, Type: entity.MovementTypeRETURN, Quantity: 3, ActorID: "user-1", LineID: &lineID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), balance)

	line := store.Line(lineID)
	assert.Equal(t, int64(3), line.ReturnedQuantity)
	assert.Equal(t, entity.LineApproved, line.Status)

	// Devolución que completa lo aprobado: la línea pasa a returned.
	balance, err = engine.ApplyMovement(ctx, ledger.MovementInput{
		ItemID: 1, Type: entity.MovementTypeRETURN, Quantity: 2, ActorID: "user-1", LineID: &lineID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), balance)

	line = store.Line(lineID)
	assert.Equal(t, int64(5), line.ReturnedQuantity)
	assert.Equal(t, entity.LineReturned, line.Status)

	entries := store.LedgerEntries()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, entity.MovementTypeRETURN, e.Type)
		require.NotNil(t, e.LineID)
		assert.Equal(t, lineID, *e.LineID)
	}
}
