package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"fleetmaint/internal/maintenance"
	"fleetmaint/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mantenimientoFixture struct {
	service    MantenimientoService
	progs      *fakeProgramadoRepo
	realizados *fakeRealizadoRepo
	inventario *fakeInventarioRepo
	kits       *fakeKitRepo
	audit      *fakeAuditRepo
	equipo     *model.Equipo
	user       *model.User
}

func newMantenimientoFixture(t *testing.T) *mantenimientoFixture {
	t.Helper()

	equipo := &model.Equipo{
		ID:      uuid.New(),
		Ficha:   "EX-02",
		Nombre:  "Excavadora CAT 336",
		Marca:   "CAT",
		Modelo:  "336",
		Empresa: model.EmpresaAlitoGroup,
		Activo:  true,
	}
	user := &model.User{ID: uuid.New(), Username: "taller1", Role: "supervisor"}

	f := &mantenimientoFixture{
		progs:      newFakeProgramadoRepo(),
		realizados: &fakeRealizadoRepo{},
		inventario: newFakeInventarioRepo(),
		kits:       newFakeKitRepo(),
		audit:      &fakeAuditRepo{},
		equipo:     equipo,
		user:       user,
	}
	f.service = NewMantenimientoService(
		f.progs, f.realizados, newFakeEquipoRepo(equipo), f.inventario,
		f.kits, newFakeUserRepo(user), f.audit,
		newFakeTxManager(f.progs, f.realizados, f.inventario, f.audit),
	)
	return f
}

func TestCreateProgramadoComputesCaches(t *testing.T) {
	f := newMantenimientoFixture(t)

	resp, err := f.service.CreateProgramado(context.Background(), f.user.ID.String(), CreateProgramadoRequest{
		EquipoID:                   f.equipo.ID.String(),
		TipoMantenimiento:          "Cambio de aceite",
		Frecuencia:                 250,
		HorasKmActuales:            980,
		HorasKmUltimoMantenimiento: 900,
	})
	require.NoError(t, err)

	assert.Equal(t, "EX-02", resp.Ficha)
	assert.Equal(t, 1150.0, resp.ProximoMantenimiento)
	assert.Equal(t, 170.0, resp.HorasKmRestante)
	assert.Equal(t, string(maintenance.StatusNormal), resp.Estado)
	// 250h frequency maps to the PM1 tier
	assert.Equal(t, "PM1", resp.IntervaloCodigo)

	assert.Len(t, f.audit.byAction(model.ActionRegisterMaintenance), 1)
}

func TestCreateProgramadoValidation(t *testing.T) {
	f := newMantenimientoFixture(t)

	_, err := f.service.CreateProgramado(context.Background(), f.user.ID.String(), CreateProgramadoRequest{
		EquipoID: f.equipo.ID.String(), TipoMantenimiento: "x", Frecuencia: 0,
	})
	assert.True(t, IsValidationError(err))

	_, err = f.service.CreateProgramado(context.Background(), f.user.ID.String(), CreateProgramadoRequest{
		EquipoID: uuid.NewString(), TipoMantenimiento: "x", Frecuencia: 250,
	})
	assert.True(t, IsValidationError(err))
}

func TestStatusRecomputedOverStoredCaches(t *testing.T) {
	f := newMantenimientoFixture(t)

	// Stored caches are stale on purpose: readers must ignore them.
	prog := &model.MantenimientoProgramado{
		EquipoID:                   f.equipo.ID,
		Ficha:                      "EX-02",
		TipoMantenimiento:          "Preventivo",
		HorasKmActuales:            1480,
		Frecuencia:                 500,
		HorasKmUltimoMantenimiento: 1000,
		ProximoMantenimiento:       9999,
		HorasKmRestante:            9999,
		Activo:                     true,
	}
	require.NoError(t, f.progs.Create(context.Background(), prog))

	rows, err := f.service.GetStatusByFicha(context.Background(), "EX-02", 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, 1500.0, rows[0].ProximoMantenimiento)
	assert.Equal(t, 20.0, rows[0].HorasKmRestante)
	// 20h remaining inside the default 100h window
	assert.Equal(t, string(maintenance.StatusProximo), rows[0].Estado)
	assert.Equal(t, "20 horas restantes", rows[0].EstadoLabel)
	assert.Equal(t, "PM2", rows[0].IntervaloCodigo)
}

func TestStatusThresholdTunesClassification(t *testing.T) {
	f := newMantenimientoFixture(t)

	prog := &model.MantenimientoProgramado{
		EquipoID:                   f.equipo.ID,
		Ficha:                      "EX-02",
		HorasKmActuales:            1420,
		Frecuencia:                 500,
		HorasKmUltimoMantenimiento: 1000,
		Activo:                     true,
	}
	require.NoError(t, f.progs.Create(context.Background(), prog))

	// 80h remaining: proximo under the default window, normal under a 50h one
	rows, err := f.service.GetStatusByFicha(context.Background(), "EX-02", 0)
	require.NoError(t, err)
	assert.Equal(t, string(maintenance.StatusProximo), rows[0].Estado)

	rows, err = f.service.GetStatusByFicha(context.Background(), "EX-02", 50)
	require.NoError(t, err)
	assert.Equal(t, string(maintenance.StatusNormal), rows[0].Estado)
}

func TestRegisterRealizadoAdvancesBaselineAndDiscountsParts(t *testing.T) {
	f := newMantenimientoFixture(t)

	prog := &model.MantenimientoProgramado{
		EquipoID:                   f.equipo.ID,
		Ficha:                      "EX-02",
		HorasKmActuales:            1980,
		Frecuencia:                 500,
		HorasKmUltimoMantenimiento: 1500,
		Activo:                     true,
	}
	require.NoError(t, f.progs.Create(context.Background(), prog))

	item := &model.Inventario{Nombre: "Filtro de combustible", Cantidad: 6, Activo: true}
	require.NoError(t, f.inventario.Create(context.Background(), item))

	resp, err := f.service.RegisterRealizado(context.Background(), f.user.ID.String(), RegisterRealizadoRequest{
		EquipoID:           f.equipo.ID.String(),
		FechaMantenimiento: "2026-08-15",
		HorasKmAlMomento:   2000,
		Observaciones:      "Servicio de 2000 horas completado",
		PartesUsadas: []ParteUsadaRequest{
			{Nombre: "Filtro de combustible", Cantidad: 2, DelInventario: true, InventarioID: item.ID.String()},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 500.0, resp.IncrementoDesdeUltimo)
	assert.Equal(t, "taller1", resp.UsuarioResponsable)
	// Direct registration carries no submission reference
	assert.Nil(t, resp.SubmissionID)

	advanced, err := f.progs.FindByID(context.Background(), prog.ID)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, advanced.HorasKmUltimoMantenimiento)
	assert.Equal(t, 2000.0, advanced.HorasKmActuales)
	assert.Equal(t, 2500.0, advanced.ProximoMantenimiento)

	stocked, err := f.inventario.FindByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stocked.Cantidad)
	require.Len(t, f.inventario.movimientos, 1)
	assert.Equal(t, model.MovTipoSalida, f.inventario.movimientos[0].Tipo)
	assert.Nil(t, f.inventario.movimientos[0].SubmissionID)
}

func TestRegisterRealizadoHistoryLoadFailureAborts(t *testing.T) {
	f := newMantenimientoFixture(t) // no scheduled record: baseline comes from history

	f.realizados.lastErr = errors.New("connection reset")
	_, err := f.service.RegisterRealizado(context.Background(), f.user.ID.String(), RegisterRealizadoRequest{
		EquipoID:           f.equipo.ID.String(),
		FechaMantenimiento: "2026-08-15",
		HorasKmAlMomento:   500,
	})
	require.Error(t, err)
	assert.Empty(t, f.realizados.records)
}

func TestRegisterRealizadoClampsInventoryAtZero(t *testing.T) {
	f := newMantenimientoFixture(t)

	item := &model.Inventario{Nombre: "Filtro de aceite", Cantidad: 1, Activo: true}
	require.NoError(t, f.inventario.Create(context.Background(), item))

	// The work already happened in the field, so the parts were consumed
	// regardless of what the shelf says: clamp and surface the gap.
	_, err := f.service.RegisterRealizado(context.Background(), f.user.ID.String(), RegisterRealizadoRequest{
		EquipoID:           f.equipo.ID.String(),
		FechaMantenimiento: "2026-08-15",
		HorasKmAlMomento:   600,
		PartesUsadas: []ParteUsadaRequest{
			{Nombre: "Filtro de aceite", Cantidad: 3, DelInventario: true, InventarioID: item.ID.String()},
		},
	})
	require.NoError(t, err)

	stocked, err := f.inventario.FindByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stocked.Cantidad)
	require.Len(t, f.inventario.movimientos, 1)
	assert.Equal(t, -1, f.inventario.movimientos[0].Cantidad)
	require.Len(t, f.audit.byAction(model.ActionStockClamped), 1)
}

func TestListStaleUsesCutoff(t *testing.T) {
	f := newMantenimientoFixture(t)

	stale := &model.MantenimientoProgramado{
		EquipoID: f.equipo.ID, Ficha: "EX-02",
		FechaUltimaActualizacion: time.Now().AddDate(0, 0, -15),
		Activo:                   true,
	}
	fresh := &model.MantenimientoProgramado{
		EquipoID: f.equipo.ID, Ficha: "EX-02",
		FechaUltimaActualizacion: time.Now().AddDate(0, 0, -2),
		Activo:                   true,
	}
	require.NoError(t, f.progs.Create(context.Background(), stale))
	require.NoError(t, f.progs.Create(context.Background(), fresh))

	rows, err := f.service.ListStale(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, stale.ID.String(), rows[0].ID)
}

func TestRoutePlanSimulatesCycle(t *testing.T) {
	f := newMantenimientoFixture(t)

	prog := &model.MantenimientoProgramado{
		EquipoID:        f.equipo.ID,
		Ficha:           "EX-02",
		HorasKmActuales: 730,
		Frecuencia:      250,
		Activo:          true,
	}
	require.NoError(t, f.progs.Create(context.Background(), prog))

	plan, err := f.service.RoutePlan(context.Background(), "EX-02")
	require.NoError(t, err)

	assert.Equal(t, "EX-02", plan.Ficha)
	assert.Equal(t, "336", plan.Modelo)
	// 730h: the 750h PM1 is next, 20h away -> urgente inside the 50h window
	require.NotNil(t, plan.Estado.IntervaloProximo)
	assert.Equal(t, "PM1", plan.Estado.IntervaloProximo.Codigo)
	assert.Equal(t, 20.0, plan.Estado.HorasParaProximo)
	assert.Equal(t, maintenance.AlertUrgente, plan.Estado.EstadoAlerta)
	assert.NotEmpty(t, plan.Resumen)
	// No DB kit and no built-in catalog for this model: empty kit, never nil
	assert.NotNil(t, plan.KitProximo.Tareas)
	assert.NotNil(t, plan.KitProximo.Piezas)
}

func TestRoutePlanPrefersAdminKit(t *testing.T) {
	f := newMantenimientoFixture(t)

	prog := &model.MantenimientoProgramado{
		EquipoID:        f.equipo.ID,
		Ficha:           "EX-02",
		HorasKmActuales: 400,
		Activo:          true,
	}
	require.NoError(t, f.progs.Create(context.Background(), prog))

	require.NoError(t, f.kits.Create(context.Background(), &model.KitMantenimiento{
		Marca:     "CAT",
		Modelo:    "336",
		Intervalo: "PM2",
		Tareas:    model.StringList{"Cambio de filtros de combustible"},
		Piezas: []model.KitPieza{
			{Nombre: "Filtro de combustible", NumeroParte: "1R-0751", Cantidad: 2},
		},
	}))

	plan, err := f.service.RoutePlan(context.Background(), "EX-02")
	require.NoError(t, err)

	// 400h: next is the 500h PM2, served by the admin-managed kit
	require.NotNil(t, plan.Estado.IntervaloProximo)
	assert.Equal(t, "PM2", plan.Estado.IntervaloProximo.Codigo)
	require.Len(t, plan.KitProximo.Piezas, 1)
	assert.Equal(t, "1R-0751", plan.KitProximo.Piezas[0].NumeroParte)
	assert.Equal(t, []string{"Cambio de filtros de combustible"}, plan.KitProximo.Tareas)
}
