package service

import (
	"context"
	"testing"

	"fleetmaint/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type inventarioFixture struct {
	service    InventarioService
	inventario *fakeInventarioRepo
	audit      *fakeAuditRepo
	user       *model.User
}

func newInventarioFixture(t *testing.T) *inventarioFixture {
	t.Helper()

	user := &model.User{ID: uuid.New(), Username: "almacen1", Role: "supervisor"}
	f := &inventarioFixture{
		inventario: newFakeInventarioRepo(),
		audit:      &fakeAuditRepo{},
		user:       user,
	}
	f.service = NewInventarioService(
		f.inventario, newFakeUserRepo(user), f.audit,
		newFakeTxManager(f.inventario, f.audit), nil,
	)
	return f
}

func (f *inventarioFixture) seedItem(t *testing.T, nombre string, cantidad, stockMinimo int) *model.Inventario {
	t.Helper()
	item := &model.Inventario{
		Nombre:               nombre,
		CodigoIdentificacion: "INV-" + uuid.NewString()[:8],
		Cantidad:             cantidad,
		StockMinimo:          stockMinimo,
		Activo:               true,
	}
	require.NoError(t, f.inventario.Create(context.Background(), item))
	return item
}

func TestCreateInventarioRecordsInitialStock(t *testing.T) {
	f := newInventarioFixture(t)

	resp, err := f.service.Create(context.Background(), f.user.ID.String(), CreateInventarioRequest{
		Nombre:               "Filtro de aceite",
		NumeroParte:          "1R-1808",
		CodigoIdentificacion: "FLT-001",
		Cantidad:             12,
		StockMinimo:          4,
		CostoUnitario:        "35.50",
	})
	require.NoError(t, err)

	assert.Equal(t, "Filtro de aceite", resp.Nombre)
	assert.Equal(t, 12, resp.Cantidad)
	assert.Equal(t, "35.50", resp.CostoUnitario)
	assert.False(t, resp.BajoStock)

	require.Len(t, f.inventario.movimientos, 1)
	assert.Equal(t, model.MovTipoEntrada, f.inventario.movimientos[0].Tipo)
	assert.Equal(t, 12, f.inventario.movimientos[0].StockAfter)
	assert.Equal(t, "Stock inicial", f.inventario.movimientos[0].Motivo)
	assert.Len(t, f.audit.byAction(model.ActionCreateInventario), 1)
}

func TestCreateInventarioRejectsDuplicateCodigo(t *testing.T) {
	f := newInventarioFixture(t)

	req := CreateInventarioRequest{Nombre: "Filtro", CodigoIdentificacion: "FLT-001"}
	_, err := f.service.Create(context.Background(), f.user.ID.String(), req)
	require.NoError(t, err)

	_, err = f.service.Create(context.Background(), f.user.ID.String(), req)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestMovimientoEntradaAddsStock(t *testing.T) {
	f := newInventarioFixture(t)
	item := f.seedItem(t, "Filtro de aire", 3, 2)

	resp, err := f.service.RegisterMovimiento(context.Background(), f.user.ID.String(), item.ID.String(), MovimientoRequest{
		Tipo: model.MovTipoEntrada, Cantidad: 5, Motivo: "Compra local",
	})
	require.NoError(t, err)

	assert.Equal(t, 5, resp.Cantidad)
	assert.Equal(t, 8, resp.StockAfter)
	assert.Equal(t, "almacen1", resp.Responsable)

	stocked, err := f.inventario.FindByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, stocked.Cantidad)
	assert.Len(t, f.audit.byAction(model.ActionStockMovement), 1)
}

func TestMovimientoSalidaRejectsInsufficientStock(t *testing.T) {
	f := newInventarioFixture(t)
	item := f.seedItem(t, "Correa de alternador", 2, 1)

	// Manual withdrawals never clamp: oversized requests fail outright
	_, err := f.service.RegisterMovimiento(context.Background(), f.user.ID.String(), item.ID.String(), MovimientoRequest{
		Tipo: model.MovTipoSalida, Cantidad: 5,
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	stocked, err := f.inventario.FindByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stocked.Cantidad)
	assert.Empty(t, f.inventario.movimientos)
}

func TestMovimientoSalidaDiscountsStock(t *testing.T) {
	f := newInventarioFixture(t)
	item := f.seedItem(t, "Aceite 15W-40", 10, 3)

	resp, err := f.service.RegisterMovimiento(context.Background(), f.user.ID.String(), item.ID.String(), MovimientoRequest{
		Tipo: model.MovTipoSalida, Cantidad: 4, Motivo: "Servicio EX-02",
	})
	require.NoError(t, err)

	assert.Equal(t, -4, resp.Cantidad)
	assert.Equal(t, 6, resp.StockAfter)
	require.Len(t, f.inventario.movimientos, 1)
	assert.Nil(t, f.inventario.movimientos[0].SubmissionID)
}

func TestMovimientoAjusteRejectsNegativeResult(t *testing.T) {
	f := newInventarioFixture(t)
	item := f.seedItem(t, "Bujía", 3, 1)

	_, err := f.service.RegisterMovimiento(context.Background(), f.user.ID.String(), item.ID.String(), MovimientoRequest{
		Tipo: model.MovTipoAjuste, Cantidad: -5, Motivo: "Conteo físico",
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	resp, err := f.service.RegisterMovimiento(context.Background(), f.user.ID.String(), item.ID.String(), MovimientoRequest{
		Tipo: model.MovTipoAjuste, Cantidad: -3, Motivo: "Conteo físico",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.StockAfter)
}

func TestMovimientoRejectsZeroQuantity(t *testing.T) {
	f := newInventarioFixture(t)
	item := f.seedItem(t, "Manguera hidráulica", 4, 1)

	_, err := f.service.RegisterMovimiento(context.Background(), f.user.ID.String(), item.ID.String(), MovimientoRequest{
		Tipo: model.MovTipoEntrada, Cantidad: 0,
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestListBajoStockFlagsItemsAtMinimum(t *testing.T) {
	f := newInventarioFixture(t)
	f.seedItem(t, "Filtro de cabina", 2, 2)
	f.seedItem(t, "Grasa multiuso", 9, 2)

	low, err := f.service.ListBajoStock(context.Background())
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Filtro de cabina", low[0].Nombre)
	assert.True(t, low[0].BajoStock)
}
