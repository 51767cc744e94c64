package withdrawal_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/almacen-api/internal/application/ledger"
	"github.com/jhoicas/almacen-api/internal/application/ledger/ledgertest"
	"github.com/jhoicas/almacen-api/internal/application/withdrawal"
	"github.com/jhoicas/almacen-api/internal/domain"
	"github.com/jhoicas/almacen-api/internal/domain/entity"
)

type fixture struct {
	store *ledgertest.Store
	uc    *withdrawal.UseCase
}

func newFixture() *fixture {
	store := ledgertest.NewStore()
	runner := &ledgertest.TxRunner{S: store}
	engine := ledger.NewEngine(runner, nil)
	return &fixture{
		store: store,
		uc:    withdrawal.NewUseCase(runner, engine, &ledgertest.WithdrawalRepo{S: store}),
	}
}

// createDoc crea un documento con una línea por cantidad dada y devuelve el id
// del documento más los ids de línea en orden ascendente.
func (f *fixture) createDoc(t *testing.T, requestedBy string, quantities map[int64]int64) (int64, []int64) {
	t.Helper()
	var lines []withdrawal.LineInput
	var itemIDs []int64
	for itemID := range quantities {
		itemIDs = append(itemIDs, itemID)
	}
	// Orden determinista de líneas para que los tests refieran ids estables.
	for i := 1; i < len(itemIDs); i++ {
		for j := i; j > 0 && itemIDs[j] < itemIDs[j-1]; j-- {
			itemIDs[j], itemIDs[j-1] = itemIDs[j-1], itemIDs[j]
		}
	}
	for _, itemID := range itemIDs {
		lines = append(lines, withdrawal.LineInput{ItemID: itemID, Quantity: quantities[itemID]})
	}
	docID, err := f.uc.Create(context.Background(), withdrawal.CreateInput{
		RequestedBy: requestedBy,
		Topic:       "mantenimiento",
		Lines:       lines,
	})
	require.NoError(t, err)
	return docID, f.store.LineIDs(docID)
}

func TestCreate_DocumentoConLineasPendientes(t *testing.T) {
	f := newFixture()
	f.store.SeedItem(1, "guantes", true, 10)
	f.store.SeedItem(2, "cascos", true, 4)

	docID, lineIDs := f.createDoc(t, "user-1", map[int64]int64{1: 3, 2: 2})

	doc := f.store.Document(docID)
	require.NotNil(t, doc)
	assert.Equal(t, entity.DocumentRequested, doc.Status)
	assert.Equal(t, "user-1", doc.RequestedBy)

	require.Len(t, lineIDs, 2)
	for _, id := range lineIDs {
		assert.Equal(t, entity.LinePending, f.store.Line(id).Status)
	}
	// Crear no toca existencias ni libro.
	assert.Equal(t, int64(10), f.store.StockQuantity(1))
	assert.Empty(t, f.store.LedgerEntries())
}

func TestCreate_Validaciones(t *testing.T) {
	f := newFixture()
	f.store.SeedItem(1, "guantes", true, 10)
	f.store.SeedItem(2, "casco viejo", false, 0)
	ctx := context.Background()

	cases := []struct {
		name    string
		input   withdrawal.CreateInput
		wantErr error
	}{
		{"sin solicitante", withdrawal.CreateInput{Lines: []withdrawal.LineInput{{ItemID: 1, Quantity: 1}}}, domain.ErrInvalidInput},
		{"sin líneas", withdrawal.CreateInput{RequestedBy: "u"}, domain.ErrInvalidInput},
		{"cantidad cero", withdrawal.CreateInput{RequestedBy: "u", Lines: []withdrawal.LineInput{{ItemID: 1}}}, domain.ErrInvalidInput},
		{"artículo inexistente", withdrawal.CreateInput{RequestedBy: "u", Lines: []withdrawal.LineInput{{ItemID: 9, Quantity: 1}}}, domain.ErrNotFound},
		{"artículo inactivo", withdrawal.CreateInput{RequestedBy: "u", Lines: []withdrawal.LineInput{{ItemID: 2, Quantity: 1}}}, domain.ErrItemInactive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.uc.Create(ctx, tc.input)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestDispose_ParcialDejaDocumentoAbierto(t *testing.T) {
	f := newFixture()
	f.store.SeedItem(1, "guantes", true, 10)
	f.store.SeedItem(2, "cascos", true, 4)
	docID, lineIDs := f.createDoc(t, "user-1", map[int64]int64{1: 3, 2: 2})

	res, err := f.uc.Dispose(context.Background(), withdrawal.DisposeInput{
		DocumentID: docID,
		Dispositions: []withdrawal.Disposition{
			{LineID: lineIDs[0], ApprovedQuantity: 3},
		},
		ApproverID: "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentRequested, res.Status)
	assert.Equal(t, 1, res.LinesRemaining)

	// El documento sigue abierto y nada se dedujo todavía.
	assert.Equal(t, entity.DocumentRequested, f.store.Document(docID).Status)
	assert.Equal(t, entity.LineApproved, f.store.Line(lineIDs[0]).Status)
	assert.Equal(t, entity.LinePending, f.store.Line(lineIDs[1]).Status)
	assert.Equal(t, int64(10), f.store.StockQuantity(1))
	assert.Empty(t, f.store.LedgerEntries())
}

func TestDispose_AprobacionCompletaDescuentaTodo(t *testing.T) {
	f := newFixture()
	f.store.SeedItem(1, "guantes", true, 10)
	f.store.SeedItem(2, "cascos", true, 4)
	docID, lineIDs := f.createDoc(t, "user-1", map[int64]int64{1: 3, 2: 2})

	res, err := f.uc.Dispose(context.Background(), withdrawal.DisposeInput{
		DocumentID: docID,
		Dispositions: []withdrawal.Disposition{
			{LineID: lineIDs[0], ApprovedQuantity: 3},
			{LineID: lineIDs[1], ApprovedQuantity: 1, RejectReason: "solo queda uno disponible"},
		},
		ApproverID: "admin-1",
		Note:       "aprobado con recorte",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentApproved, res.Status)
	assert.Equal(t, 0, res.LinesRemaining)

	doc := f.store.Document(docID)
	assert.Equal(t, entity.DocumentApproved, doc.Status)
	assert.Equal(t, "admin-1", doc.ApprovedBy)
	require.NotNil(t, doc.ApprovedAt)

	full := f.store.Line(lineIDs[0])
	assert.Equal(t, entity.LineApproved, full.Status)
	assert.Equal(t, int64(3), full.ApprovedQuantity)
	assert.Equal(t, int64(0), full.RejectedQuantity)

	partial := f.store.Line(lineIDs[1])
	assert.Equal(t, entity.LinePartial, partial.Status)
	assert.Equal(t, int64(1), partial.ApprovedQuantity)
	assert.Equal(t, int64(1), partial.RejectedQuantity)

	assert.Equal(t, int64(7), f.store.StockQuantity(1))
	assert.Equal(t, int64(3), f.store.StockQuantity(2))

	entries := f.store.LedgerEntries()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, entity.MovementTypeOUT, e.Type)
		require.NotNil(t, e.LineID)
		assert.Equal(t, "admin-1", e.CreatedBy)
	}
	// Ambas deducciones comparten el grupo transaccional.
	assert.Equal(t, entries[0].TransactionID, entries[1].TransactionID)
	assert.Equal(t, int64(7), entries[0].BalanceAfter)
	assert.Equal(t, int64(3), entries[1].BalanceAfter)
}

func TestDispose_TodoRechazadoNoTocaElLibro(t *testing.T) {
	f := newFixture()
	f.store.SeedItem(1, "guantes", true, 10)
	docID, lineIDs := f.createDoc(t, "user-1", map[int64]int64{1: 3})

	res, err := f.uc.Dispose(context.Background(), withdrawal.DisposeInput{
		DocumentID: docID,
		Dispositions: []withdrawal.Disposition{
			{LineID: lineIDs[0], ApprovedQuantity: 0, RejectReason: "no autorizado"},
		},
		ApproverID: "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentRejected, res.Status)

	line := f.store.Line(lineIDs[0])
	assert.Equal(t, entity.LineRejected, line.Status)
	assert.Equal(t, int64(3), line.RejectedQuantity)
	assert.Equal(t, "no autorizado", line.RejectReason)
	assert.Equal(t, int64(10), f.store.StockQuantity(1))
	assert.Empty(t, f.store.LedgerEntries())
}

func TestDispose_StockInsuficienteRevierteTodaLaLlamada(t *testing.T) {
	f := newFixture()
	f.store.SeedItem(1, "guantes", true, 10)
	f.store.SeedItem(2, "cascos", true, 1)
	docID, lineIDs := f.createDoc(t, "user-1", map[int64]int64{1: 3, 2: 2})

	// La segunda línea pide 2 con stock 1: toda la llamada se revierte, incluida
	// la deducción ya hecha de la primera línea y las disposiciones.
	_, err := f.uc.Dispose(context.Background(), withdrawal.DisposeInput{
		DocumentID: docID,
		Dispositions: []withdrawal.Disposition{
			{LineID: lineIDs[0], ApprovedQuantity: 3},
			{LineID: lineIDs[1], ApprovedQuantity: 2},
		},
		ApproverID: "admin-1",
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.Equal(t, entity.DocumentRequested, f.store.Document(docID).Status)
	assert.Equal(t, entity.LinePending, f.store.Line(lineIDs[0]).Status)
	assert.Equal(t, entity.LinePending, f.store.Line(lineIDs[1]).Status)
	assert.Equal(t, int64(10), f.store.StockQuantity(1))
	assert.Equal(t, int64(1), f.store.StockQuantity(2))
	assert.Empty(t, f.store.LedgerEntries())

	// El documento queda reintentable con una disposición viable.
	res, err := f.uc.Dispose(context.Background(), withdrawal.DisposeInput{
		DocumentID: docID,
		Dispositions: []withdrawal.Disposition{
			{LineID: lineIDs[0], ApprovedQuantity: 3},
			{LineID: lineIDs[1], ApprovedQuantity: 1, RejectReason: "stock agotado"},
		},
		ApproverID: "admin-1",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.DocumentApproved, res.Status)
	assert.Equal(t, int64(0), f.store.StockQuantity(2))
}

func TestDispose_DocumentoTerminalRechazaReintentos(t *testing.T) {
	f := newFixture()
	f.store.SeedItem(1, "guantes", true, 10)
	docID, lineIDs := f.createDoc(t, "user-1", map[int64]int64{1: 3})

	input := withdrawal.DisposeInput{
		DocumentID:   docID,
		Dispositions: []withdrawal.Disposition{{LineID: lineIDs[0], ApprovedQuantity: 3}},
		ApproverID:   "admin-1",
	}
	_, err := f.uc.Dispose(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, int64(7), f.store.StockQuantity(1))

	// Un segundo intento no duplica la deducción.
	_, err = f.uc.Dispose(context.Background(), input)
	require.ErrorIs(t, err, domain.ErrAlreadyFinalized)
	assert.Equal(t, int64(7), f.store.StockQuantity(1))
	assert.Len(t, f.store.LedgerEntries(), 1)
}

func TestDispose_LineaYaDispuestaEsInvalida(t *testing.T) {
	f := newFixture()
	f.store.SeedItem(1, "guantes", true, 10)
	f.store.SeedItem(2, "cascos", true, 4)
	docID, lineIDs := f.createDoc(t, "user-1", map[int64]int64{1: 3, 2: 2})

	_, err := f.uc.Dispose(context.Background(), withdrawal.DisposeInput{
		DocumentID:   docID,
		Dispositions: []withdrawal.Disposition{{LineID: lineIDs[0], ApprovedQuantity: 3}},
		ApproverID:   "admin-1",
	})
	require.NoError(t, err)

	_, err = f.uc.Dispose(context.Background(), withdrawal.DisposeInput{
		DocumentID:   docID,
		Dispositions: []withdrawal.Disposition{{LineID: lineIDs[0], ApprovedQuantity: 1}},
		ApproverID:   "admin-1",
	})
	require.ErrorIs(t, err, domain.ErrInvalidLineState)
}

func TestDispose_AprobarMasDeLoPedidoEsInvalido(t *testing.T) {
	f := newFixture()
	f.store.SeedItem(1, "guantes", true, 10)
	docID, lineIDs := f.createDoc(t, "user-1", map[int64]int64{1: 3})

	_, err := f.uc.Dispose(context.Background(), withdrawal.DisposeInput{
		DocumentID:   docID,
		Dispositions: []withdrawal.Disposition{{LineID: lineIDs[0], ApprovedQuantity: 4}},
		ApproverID:   "admin-1",
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, entity.LinePending, f.store.Line(lineIDs[0]).Status)
}

func TestCancel_SinAsientosYLineasCanceladas(t *testing.T) {
	f := newFixture()
	f.store.SeedItem(1, "guantes", true, 10)
	docID, lineIDs := f.createDoc(t, "user-1", map[int64]int64{1: 3})

	require.NoError(t, f.uc.Cancel(context.Background(), docID, "user-1"))

	assert.Equal(t, entity.DocumentCanceled, f.store.Document(docID).Status)
	assert.Equal(t, entity.LineCancelled, f.store.Line(lineIDs[0]).Status)
	assert.Equal(t, int64(10), f.store.StockQuantity(1))
	assert.Empty(t, f.store.LedgerEntries())

	// Cancelar un documento ya terminal es rechazado.
	err := f.uc.Cancel(context.Background(), docID, "user-1")
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)
}

func TestCancel_DocumentoAprobadoNoSeCancela(t *testing.T) {
	f := newFixture()
	f.store.SeedItem(1, "guantes", true, 10)
	docID, lineIDs := f.createDoc(t, "user-1", map[int64]int64{1: 3})

	_, err := f.uc.Dispose(context.Background(), withdrawal.DisposeInput{
		DocumentID:   docID,
		Dispositions: []withdrawal.Disposition{{LineID: lineIDs[0], ApprovedQuantity: 3}},
		ApproverID:   "admin-1",
	})
	require.NoError(t, err)

	err = f.uc.Cancel(context.Background(), docID, "user-1")
	assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)
	assert.Equal(t, int64(7), f.store.StockQuantity(1))
}

func TestReturnLine_ParcialYCompleta(t *testing.T) {
	f := newFixture()
	f.store.SeedItem(1, "guantes", true, 10)
	docID, lineIDs := f.createDoc(t, "user-1", map[int64]int64{1: 5})

	_, err := f.uc.Dispose(context.Background(), withdrawal.DisposeInput{
		DocumentID:   docID,
		Dispositions: []withdrawal.Disposition{{LineID: lineIDs[0], ApprovedQuantity: 5}},
		ApproverID:   "admin-1",
	})
	require.NoError(t, err)
	require.Equal(t, int64(5), f.store.StockQuantity(1))

	// Devolución parcial.
	require.NoError(t, f.uc.ReturnLine(context.Background(), docID, lineIDs[0], 2, "user-1"))
	line := f.store.Line(lineIDs[0])
	assert.Equal(t, int64(2), line.ReturnedQuantity)
	assert.Equal(t, entity.LineApproved, line.Status)
	assert.Equal(t, int64(7), f.store.StockQuantity(1))

	// El resto: la línea queda returned y el stock vuelve al punto de partida.
	require.NoError(t, f.uc.ReturnLine(context.Background(), docID, lineIDs[0], 3, "user-1"))
	line = f.store.Line(lineIDs[0])
	assert.Equal(t, int64(5), line.ReturnedQuantity)
	assert.Equal(t, entity.LineReturned, line.Status)
	assert.Equal(t, int64(10), f.store.StockQuantity(1))

	entries := f.store.LedgerEntries()
	require.Len(t, entries, 3) // 1 OUT + 2 RETURN
	assert.Equal(t, f.store.LedgerSum(1), f.store.StockQuantity(1))
}

func TestReturnLine_ExcesoYEstadosInvalidos(t *testing.T) {
	f := newFixture()
	f.store.SeedItem(1, "guantes", true, 10)
	f.store.SeedItem(2, "cascos", true, 4)
	docID, lineIDs := f.createDoc(t, "user-1", map[int64]int64{1: 5, 2: 2})

	// Documento aún REQUESTED: no hay nada que devolver.
	err := f.uc.ReturnLine(context.Background(), docID, lineIDs[0], 1, "user-1")
	assert.ErrorIs(t, err, domain.ErrInvalidLineState)

	_, err = f.uc.Dispose(context.Background(), withdrawal.DisposeInput{
		DocumentID: docID,
		Dispositions: []withdrawal.Disposition{
			{LineID: lineIDs[0], ApprovedQuantity: 5},
			{LineID: lineIDs[1], ApprovedQuantity: 0, RejectReason: "no autorizado"},
		},
		ApproverID: "admin-1",
	})
	require.NoError(t, err)

	// Devolver más de lo aprobado pendiente.
	err = f.uc.ReturnLine(context.Background(), docID, lineIDs[0], 6, "user-1")
	assert.ErrorIs(t, err, domain.ErrInvalidLineState)

	// Una línea rechazada no admite devoluciones.
	err = f.uc.ReturnLine(context.Background(), docID, lineIDs[1], 1, "user-1")
	assert.ErrorIs(t, err, domain.ErrInvalidLineState)

	// El exceso acumulado también se rechaza.
	require.NoError(t, f.uc.ReturnLine(context.Background(), docID, lineIDs[0], 4, "user-1"))
	err = f.uc.ReturnLine(context.Background(), docID, lineIDs[0], 2, "user-1")
	assert.ErrorIs(t, err, domain.ErrInvalidLineState)
	assert.Equal(t, int64(4), f.store.Line(lineIDs[0]).ReturnedQuantity)
}
