package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fleetmaint/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type submissionFixture struct {
	service    SubmissionService
	subs       *fakeSubmissionRepo
	equipos    *fakeEquipoRepo
	progs      *fakeProgramadoRepo
	realizados *fakeRealizadoRepo
	inventario *fakeInventarioRepo
	audit      *fakeAuditRepo
	equipo     *model.Equipo
	mecanico   *model.User
	admin      *model.User
}

func newSubmissionFixture(t *testing.T) *submissionFixture {
	t.Helper()

	equipo := &model.Equipo{
		ID:      uuid.New(),
		Ficha:   "EX-01",
		Nombre:  "Excavadora CAT 320D",
		Marca:   "CAT",
		Modelo:  "320D",
		Empresa: model.EmpresaAlitoGroup,
		Activo:  true,
	}
	mecanico := &model.User{ID: uuid.New(), Username: "jperez", Role: "mecanico"}
	admin := &model.User{ID: uuid.New(), Username: "supervisor1", Role: "supervisor"}

	f := &submissionFixture{
		subs:       newFakeSubmissionRepo(),
		equipos:    newFakeEquipoRepo(equipo),
		progs:      newFakeProgramadoRepo(),
		realizados: &fakeRealizadoRepo{},
		inventario: newFakeInventarioRepo(),
		audit:      &fakeAuditRepo{},
		equipo:     equipo,
		mecanico:   mecanico,
		admin:      admin,
	}
	f.service = NewSubmissionService(
		f.subs, f.equipos, f.progs, f.realizados, f.inventario,
		newFakeUserRepo(mecanico, admin), f.audit,
		newFakeTxManager(f.subs, f.progs, f.realizados, f.inventario, f.audit), nil,
	)
	return f
}

func (f *submissionFixture) submit(t *testing.T, req CreateSubmissionRequest) SubmissionResponse {
	t.Helper()
	resp, err := f.service.Submit(context.Background(), f.mecanico.ID.String(), req)
	require.NoError(t, err)
	return resp
}

func validSubmission(equipoID string) CreateSubmissionRequest {
	return CreateSubmissionRequest{
		EquipoID:           equipoID,
		FechaMantenimiento: "2026-08-20",
		HorasKmActuales:    1250,
		TipoMantenimiento:  "Preventivo PM1",
		DescripcionTrabajo: "Cambio de aceite y filtro de motor",
	}
}

func TestSubmitCreatesPendingSubmission(t *testing.T) {
	f := newSubmissionFixture(t)

	resp := f.submit(t, validSubmission(f.equipo.ID.String()))

	assert.Equal(t, model.SubmissionPending, resp.Status)
	assert.Equal(t, "EX-01", resp.Ficha)
	assert.Equal(t, "PM1", resp.IntervaloCodigo)

	stored, err := f.subs.FindByID(context.Background(), uuid.MustParse(resp.ID))
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionPending, stored.Status)

	entries := f.audit.byAction(model.ActionSubmitWorkOrder)
	require.Len(t, entries, 1)
	assert.Equal(t, "EX-01", entries[0].EntityName)
}

func TestSubmitValidation(t *testing.T) {
	f := newSubmissionFixture(t)
	ctx := context.Background()
	mecanicoID := f.mecanico.ID.String()

	t.Run("short description rejected", func(t *testing.T) {
		req := validSubmission(f.equipo.ID.String())
		req.DescripcionTrabajo = "1234567890123456789" // 19 chars
		_, err := f.service.Submit(ctx, mecanicoID, req)
		require.Error(t, err)
		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "descripcion_trabajo", vErr.Field)
	})

	t.Run("exactly twenty chars accepted", func(t *testing.T) {
		req := validSubmission(f.equipo.ID.String())
		req.DescripcionTrabajo = "12345678901234567890" // 20 chars
		_, err := f.service.Submit(ctx, mecanicoID, req)
		assert.NoError(t, err)
	})

	t.Run("zero reading rejected", func(t *testing.T) {
		req := validSubmission(f.equipo.ID.String())
		req.HorasKmActuales = 0
		_, err := f.service.Submit(ctx, mecanicoID, req)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("bad date rejected", func(t *testing.T) {
		req := validSubmission(f.equipo.ID.String())
		req.FechaMantenimiento = "20/08/2026"
		_, err := f.service.Submit(ctx, mecanicoID, req)
		assert.True(t, IsValidationError(err))
	})

	t.Run("unknown equipment rejected", func(t *testing.T) {
		req := validSubmission(uuid.NewString())
		_, err := f.service.Submit(ctx, mecanicoID, req)
		assert.True(t, IsValidationError(err))
	})

	t.Run("inventory part without id rejected", func(t *testing.T) {
		req := validSubmission(f.equipo.ID.String())
		req.PartesUsadas = []ParteUsadaRequest{
			{Nombre: "Filtro de aceite", Cantidad: 1, DelInventario: true},
		}
		_, err := f.service.Submit(ctx, mecanicoID, req)
		require.Error(t, err)
		var vErr *ValidationError
		require.True(t, errors.As(err, &vErr))
		assert.Equal(t, "partes_usadas", vErr.Field)
	})
}

func TestSubmitRejectsUnavailableEquipment(t *testing.T) {
	f := newSubmissionFixture(t)

	vendido := &model.Equipo{Ficha: "EX-99", Nombre: "Vendida", Empresa: model.EmpresaVendido, Activo: true}
	require.NoError(t, f.equipos.Create(context.Background(), vendido))

	_, err := f.service.Submit(context.Background(), f.mecanico.ID.String(), validSubmission(vendido.ID.String()))
	assert.True(t, IsValidationError(err))
}

func TestApproveIntegratesSubmission(t *testing.T) {
	prog := &model.MantenimientoProgramado{
		Ficha:                      "EX-01",
		TipoMantenimiento:          "Preventivo PM1",
		HorasKmActuales:            1200,
		Frecuencia:                 250,
		HorasKmUltimoMantenimiento: 1000,
		Activo:                     true,
	}
	f := newSubmissionFixture(t)
	prog.EquipoID = f.equipo.ID
	require.NoError(t, f.progs.Create(context.Background(), prog))

	item := &model.Inventario{Nombre: "Filtro de aceite", Cantidad: 10, Activo: true}
	require.NoError(t, f.inventario.Create(context.Background(), item))

	req := validSubmission(f.equipo.ID.String())
	req.PartesUsadas = []ParteUsadaRequest{
		{Nombre: "Filtro de aceite", Cantidad: 2, DelInventario: true, InventarioID: item.ID.String()},
		{Nombre: "Grasa", Cantidad: 1}, // free-form part, no stock effect
	}
	created := f.submit(t, req)

	resp, err := f.service.Approve(context.Background(), created.ID, f.admin.ID.String(), "todo en orden")
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionIntegrated, resp.Status)
	assert.Equal(t, "todo en orden", resp.AdminFeedback)
	require.NotNil(t, resp.ReviewedBy)
	assert.Equal(t, f.admin.ID.String(), *resp.ReviewedBy)

	// Realized-maintenance record with increment against the scheduled baseline
	require.Len(t, f.realizados.records, 1)
	realizado := f.realizados.records[0]
	assert.Equal(t, 1250.0, realizado.HorasKmAlMomento)
	assert.Equal(t, 250.0, realizado.IncrementoDesdeUltimo)
	assert.Equal(t, "supervisor1", realizado.UsuarioResponsable)
	require.NotNil(t, realizado.SubmissionID)
	assert.Equal(t, created.ID, realizado.SubmissionID.String())

	// Scheduled baseline advanced and caches recomputed
	advanced, err := f.progs.FindByID(context.Background(), prog.ID)
	require.NoError(t, err)
	assert.Equal(t, 1250.0, advanced.HorasKmUltimoMantenimiento)
	assert.Equal(t, 1250.0, advanced.HorasKmActuales)
	assert.Equal(t, 1500.0, advanced.ProximoMantenimiento)
	assert.Equal(t, 250.0, advanced.HorasKmRestante)

	// Inventory decremented with a SALIDA movement tied to the submission
	stocked, err := f.inventario.FindByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, stocked.Cantidad)
	require.Len(t, f.inventario.movimientos, 1)
	mov := f.inventario.movimientos[0]
	assert.Equal(t, model.MovTipoSalida, mov.Tipo)
	assert.Equal(t, -2, mov.Cantidad)
	assert.Equal(t, 8, mov.StockAfter)
	require.NotNil(t, mov.SubmissionID)
	assert.Equal(t, created.ID, mov.SubmissionID.String())

	assert.Len(t, f.audit.byAction(model.ActionApproveSubmission), 1)
	assert.Empty(t, f.audit.byAction(model.ActionStockClamped))
}

func TestApproveFallsBackToLastRealizadoBaseline(t *testing.T) {
	f := newSubmissionFixture(t) // no scheduled maintenance

	require.NoError(t, f.realizados.Create(context.Background(), &model.MantenimientoRealizado{
		EquipoID:           f.equipo.ID,
		Ficha:              "EX-01",
		FechaMantenimiento: time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		HorasKmAlMomento:   1100,
	}))

	created := f.submit(t, validSubmission(f.equipo.ID.String()))
	_, err := f.service.Approve(context.Background(), created.ID, f.admin.ID.String(), "")
	require.NoError(t, err)

	require.Len(t, f.realizados.records, 2)
	assert.Equal(t, 150.0, f.realizados.records[1].IncrementoDesdeUltimo)
}

func TestApproveClampsInventoryAtZero(t *testing.T) {
	f := newSubmissionFixture(t)

	item := &model.Inventario{Nombre: "Filtro hidráulico", Cantidad: 2, Activo: true}
	require.NoError(t, f.inventario.Create(context.Background(), item))

	req := validSubmission(f.equipo.ID.String())
	req.PartesUsadas = []ParteUsadaRequest{
		{Nombre: "Filtro hidráulico", Cantidad: 5, DelInventario: true, InventarioID: item.ID.String()},
	}
	created := f.submit(t, req)

	_, err := f.service.Approve(context.Background(), created.ID, f.admin.ID.String(), "")
	require.NoError(t, err)

	stocked, err := f.inventario.FindByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stocked.Cantidad)

	require.Len(t, f.inventario.movimientos, 1)
	assert.Equal(t, -2, f.inventario.movimientos[0].Cantidad)
	assert.Equal(t, 0, f.inventario.movimientos[0].StockAfter)

	clamped := f.audit.byAction(model.ActionStockClamped)
	require.Len(t, clamped, 1)
	assert.Contains(t, clamped[0].Details, `"solicitado":5`)
	assert.Contains(t, clamped[0].Details, `"descontado":2`)
}

func TestApproveInventoryFailureLeavesSubmissionPending(t *testing.T) {
	f := newSubmissionFixture(t)

	item := &model.Inventario{Nombre: "Filtro de aire", Cantidad: 4, Activo: true}
	require.NoError(t, f.inventario.Create(context.Background(), item))

	req := validSubmission(f.equipo.ID.String())
	req.PartesUsadas = []ParteUsadaRequest{
		{Nombre: "Filtro de aire", Cantidad: 1, DelInventario: true, InventarioID: item.ID.String()},
	}
	created := f.submit(t, req)

	f.inventario.findErr = errors.New("row lock timeout")
	_, err := f.service.Approve(context.Background(), created.ID, f.admin.ID.String(), "")
	require.Error(t, err)
	assert.True(t, IsIntegrationError(err))

	// The status CAS runs after all side effects, so the row is untouched.
	stored, findErr := f.subs.FindByID(context.Background(), uuid.MustParse(created.ID))
	require.NoError(t, findErr)
	assert.Equal(t, model.SubmissionPending, stored.Status)

	// And the transaction rolled the partial effects back with it.
	assert.Empty(t, f.realizados.records)
	assert.Empty(t, f.inventario.movimientos)
	assert.Empty(t, f.audit.byAction(model.ActionApproveSubmission))
}

func TestApproveHistoryLoadFailureAborts(t *testing.T) {
	f := newSubmissionFixture(t) // no scheduled record: baseline comes from history
	created := f.submit(t, validSubmission(f.equipo.ID.String()))

	f.realizados.lastErr = errors.New("connection reset")
	_, err := f.service.Approve(context.Background(), created.ID, f.admin.ID.String(), "")
	require.Error(t, err)
	assert.True(t, IsIntegrationError(err))

	stored, findErr := f.subs.FindByID(context.Background(), uuid.MustParse(created.ID))
	require.NoError(t, findErr)
	assert.Equal(t, model.SubmissionPending, stored.Status)
	assert.Empty(t, f.realizados.records)
}

func TestApproveOnlyOnceWins(t *testing.T) {
	f := newSubmissionFixture(t)
	created := f.submit(t, validSubmission(f.equipo.ID.String()))

	_, err := f.service.Approve(context.Background(), created.ID, f.admin.ID.String(), "")
	require.NoError(t, err)

	_, err = f.service.Approve(context.Background(), created.ID, f.admin.ID.String(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStateConflict))

	// A single realized record despite the second attempt
	assert.Len(t, f.realizados.records, 1)
}

func TestApproveConcurrentReviewsSingleWinner(t *testing.T) {
	f := newSubmissionFixture(t)
	created := f.submit(t, validSubmission(f.equipo.ID.String()))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Approve(context.Background(), created.ID, f.admin.ID.String(), "ok")
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t, errors.Is(err, ErrStateConflict))
		}
	}
	assert.Equal(t, 1, winners)
	assert.Len(t, f.realizados.records, 1)

	stored, err := f.subs.FindByID(context.Background(), uuid.MustParse(created.ID))
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionIntegrated, stored.Status)
}

func TestApproveRefusesReviewBetweenLoadAndWrite(t *testing.T) {
	f := newSubmissionFixture(t)

	item := &model.Inventario{Nombre: "Filtro de aceite", Cantidad: 3, Activo: true}
	require.NoError(t, f.inventario.Create(context.Background(), item))

	req := validSubmission(f.equipo.ID.String())
	req.PartesUsadas = []ParteUsadaRequest{
		{Nombre: "Filtro de aceite", Cantidad: 1, DelInventario: true, InventarioID: item.ID.String()},
	}
	created := f.submit(t, req)
	subID := uuid.MustParse(created.ID)

	// Another reviewer lands between the locked read and the status write:
	// the guarded transition refuses and the side effects roll back.
	f.subs.afterLoadForUpdate = func() {
		f.subs.subs[subID].Status = model.SubmissionRejected
		f.subs.afterLoadForUpdate = nil
	}

	_, err := f.service.Approve(context.Background(), created.ID, f.admin.ID.String(), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStateConflict))

	assert.Empty(t, f.realizados.records)
	assert.Empty(t, f.inventario.movimientos)
	stocked, findErr := f.inventario.FindByID(context.Background(), item.ID)
	require.NoError(t, findErr)
	assert.Equal(t, 3, stocked.Cantidad)
}

func TestRejectRequiresFeedback(t *testing.T) {
	f := newSubmissionFixture(t)
	created := f.submit(t, validSubmission(f.equipo.ID.String()))

	for _, feedback := range []string{"", "   ", "\t\n"} {
		_, err := f.service.Reject(context.Background(), created.ID, f.admin.ID.String(), feedback)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	}

	stored, err := f.subs.FindByID(context.Background(), uuid.MustParse(created.ID))
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionPending, stored.Status)
}

func TestRejectSetsFeedbackAndStatus(t *testing.T) {
	f := newSubmissionFixture(t)
	created := f.submit(t, validSubmission(f.equipo.ID.String()))

	resp, err := f.service.Reject(context.Background(), created.ID, f.admin.ID.String(), "faltan horas de la máquina")
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionRejected, resp.Status)
	assert.Equal(t, "faltan horas de la máquina", resp.AdminFeedback)

	// No ledger side effects on rejection
	assert.Empty(t, f.realizados.records)
	assert.Empty(t, f.inventario.movimientos)
	assert.Len(t, f.audit.byAction(model.ActionRejectSubmission), 1)

	// Rejected submissions cannot be approved afterwards
	_, err = f.service.Approve(context.Background(), created.ID, f.admin.ID.String(), "")
	assert.True(t, errors.Is(err, ErrStateConflict))
}

func TestStatsBucketsApprovedWithIntegrated(t *testing.T) {
	f := newSubmissionFixture(t)
	ctx := context.Background()

	seed := []string{
		model.SubmissionPending, model.SubmissionPending,
		model.SubmissionApproved,
		model.SubmissionIntegrated, model.SubmissionIntegrated, model.SubmissionIntegrated,
		model.SubmissionRejected,
	}
	for _, status := range seed {
		require.NoError(t, f.subs.Create(ctx, &model.MaintenanceSubmission{
			CreatedBy: f.mecanico.ID,
			EquipoID:  f.equipo.ID,
			Status:    status,
		}))
	}

	stats, err := f.service.Stats(ctx, f.mecanico.ID.String())
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(4), stats.Approved) // approved + integrated
	assert.Equal(t, int64(1), stats.Rejected)
	assert.Equal(t, int64(7), stats.ThisMonth)
}

func TestAttachFile(t *testing.T) {
	f := newSubmissionFixture(t)
	created := f.submit(t, validSubmission(f.equipo.ID.String()))

	err := f.service.AttachFile(context.Background(), created.ID, AttachmentRequest{
		StoragePath: "uploads/ex-01/foto1.jpg",
		Filename:    "foto1.jpg",
		MimeType:    "image/jpeg",
		FileSize:    2048,
	})
	require.NoError(t, err)

	atts, err := f.subs.ListAttachments(context.Background(), uuid.MustParse(created.ID))
	require.NoError(t, err)
	require.Len(t, atts, 1)
	assert.Equal(t, "foto1.jpg", atts[0].Filename)

	err = f.service.AttachFile(context.Background(), uuid.NewString(), AttachmentRequest{
		StoragePath: "x", Filename: "x",
	})
	assert.Error(t, err)
}
