package service

import (
	"context"
	"testing"
	"time"

	"fleetmaint/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lecturaFixture struct {
	service  LecturaService
	lecturas *fakeLecturaRepo
	progs    *fakeProgramadoRepo
	audit    *fakeAuditRepo
	equipo   *model.Equipo
	user     *model.User
}

func newLecturaFixture(t *testing.T) *lecturaFixture {
	t.Helper()

	equipo := &model.Equipo{
		ID:      uuid.New(),
		Ficha:   "CM-07",
		Nombre:  "Camión Volvo FMX",
		Empresa: model.EmpresaAlitoGroup,
		Activo:  true,
	}
	user := &model.User{ID: uuid.New(), Username: "operador3", Role: "mecanico"}

	f := &lecturaFixture{
		lecturas: &fakeLecturaRepo{},
		progs:    newFakeProgramadoRepo(),
		audit:    &fakeAuditRepo{},
		equipo:   equipo,
		user:     user,
	}
	f.service = NewLecturaService(
		f.lecturas, newFakeEquipoRepo(equipo), f.progs,
		newFakeUserRepo(user), f.audit,
		newFakeTxManager(f.lecturas, f.progs, f.audit),
	)
	return f
}

func (f *lecturaFixture) register(t *testing.T, fecha string, horasKm float64) (LecturaResponse, error) {
	t.Helper()
	return f.service.Register(context.Background(), f.user.ID.String(), RegisterLecturaRequest{
		EquipoID: f.equipo.ID.String(),
		Fecha:    fecha,
		HorasKm:  horasKm,
	})
}

func TestRegisterFirstReading(t *testing.T) {
	f := newLecturaFixture(t)

	resp, err := f.register(t, "2026-08-01", 3200)
	require.NoError(t, err)

	assert.Equal(t, "CM-07", resp.Ficha)
	assert.Equal(t, 3200.0, resp.HorasKm)
	// No previous reading: the increment is the reading itself
	assert.Equal(t, 3200.0, resp.Incremento)
	assert.Equal(t, "operador3", resp.UsuarioResponsable)

	assert.Len(t, f.audit.byAction(model.ActionRegisterReading), 1)
}

func TestRegisterComputesIncrement(t *testing.T) {
	f := newLecturaFixture(t)

	_, err := f.register(t, "2026-08-01", 3200)
	require.NoError(t, err)

	resp, err := f.register(t, "2026-08-05", 3275)
	require.NoError(t, err)
	assert.Equal(t, 75.0, resp.Incremento)
}

func TestRegisterRejectsDecreasingReading(t *testing.T) {
	f := newLecturaFixture(t)

	_, err := f.register(t, "2026-08-01", 3200)
	require.NoError(t, err)

	_, err = f.register(t, "2026-08-05", 3100)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	// The rejected reading was not stored
	lecturas, _, listErr := f.lecturas.FindByFicha(context.Background(), "CM-07", 1, 20)
	require.NoError(t, listErr)
	assert.Len(t, lecturas, 1)
}

func TestRegisterRefreshesScheduledMaintenance(t *testing.T) {
	f := newLecturaFixture(t)

	prog := &model.MantenimientoProgramado{
		EquipoID:                   f.equipo.ID,
		Ficha:                      "CM-07",
		HorasKmActuales:            3000,
		Frecuencia:                 500,
		HorasKmUltimoMantenimiento: 3000,
		FechaUltimaActualizacion:   time.Now().AddDate(0, 0, -10),
		Activo:                     true,
	}
	require.NoError(t, f.progs.Create(context.Background(), prog))

	_, err := f.register(t, "2026-08-10", 3450)
	require.NoError(t, err)

	refreshed, err := f.progs.FindByID(context.Background(), prog.ID)
	require.NoError(t, err)
	assert.Equal(t, 3450.0, refreshed.HorasKmActuales)
	// Baseline untouched, caches recomputed from the new reading
	assert.Equal(t, 3000.0, refreshed.HorasKmUltimoMantenimiento)
	assert.Equal(t, 3500.0, refreshed.ProximoMantenimiento)
	assert.Equal(t, 50.0, refreshed.HorasKmRestante)
	assert.WithinDuration(t, time.Now(), refreshed.FechaUltimaActualizacion, time.Minute)
}

func TestRegisterValidation(t *testing.T) {
	f := newLecturaFixture(t)

	_, err := f.register(t, "2026-08-01", 0)
	assert.True(t, IsValidationError(err))

	_, err = f.register(t, "01-08-2026", 100)
	assert.True(t, IsValidationError(err))

	_, err = f.service.Register(context.Background(), f.user.ID.String(), RegisterLecturaRequest{
		EquipoID: uuid.NewString(), Fecha: "2026-08-01", HorasKm: 100,
	})
	assert.True(t, IsValidationError(err))
}
