package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"fleetmaint/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory fakes backing the service tests. They reproduce the repository
// contracts (not-found errors, CAS semantics, ordering) without a database.

// txStore is implemented by fakes whose state takes part in transactions.
type txStore interface {
	snapshot() func()
}

// fakeTxManager serializes transactions and restores its stores when fn
// fails, mirroring the commit/rollback the real manager gets from Postgres.
type fakeTxManager struct {
	mu     sync.Mutex
	stores []txStore
}

func newFakeTxManager(stores ...txStore) *fakeTxManager {
	return &fakeTxManager{stores: stores}
}

func (m *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	restores := make([]func(), len(m.stores))
	for i, s := range m.stores {
		restores[i] = s.snapshot()
	}
	if err := fn(ctx); err != nil {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
		return err
	}
	return nil
}

// --- submissions ---

type fakeSubmissionRepo struct {
	mu          sync.Mutex
	subs        map[uuid.UUID]*model.MaintenanceSubmission
	attachments []model.SubmissionAttachment
	// afterLoadForUpdate runs after a locked read returned its copy, letting
	// tests change the stored row the way a concurrent reviewer would.
	afterLoadForUpdate func()
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{subs: make(map[uuid.UUID]*model.MaintenanceSubmission)}
}

func (r *fakeSubmissionRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs := make(map[uuid.UUID]*model.MaintenanceSubmission, len(r.subs))
	for id, sub := range r.subs {
		cp := *sub
		subs[id] = &cp
	}
	attachments := append([]model.SubmissionAttachment(nil), r.attachments...)
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.subs, r.attachments = subs, attachments
	}
}

func (r *fakeSubmissionRepo) Create(_ context.Context, sub *model.MaintenanceSubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	cp := *sub
	r.subs[sub.ID] = &cp
	return nil
}

func (r *fakeSubmissionRepo) find(id uuid.UUID) (*model.MaintenanceSubmission, error) {
	sub, ok := r.subs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *sub
	return &cp, nil
}

func (r *fakeSubmissionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.MaintenanceSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(id)
}

func (r *fakeSubmissionRepo) FindByIDForUpdate(_ context.Context, id uuid.UUID) (*model.MaintenanceSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, err := r.find(id)
	if err != nil {
		return nil, err
	}
	if r.afterLoadForUpdate != nil {
		r.afterLoadForUpdate()
	}
	return sub, nil
}

func (r *fakeSubmissionRepo) FindByIDWithRelations(ctx context.Context, id uuid.UUID) (*model.MaintenanceSubmission, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeSubmissionRepo) List(_ context.Context, status string, page, limit int) ([]model.MaintenanceSubmission, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MaintenanceSubmission
	for _, sub := range r.subs {
		if status == "" || sub.Status == status {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (r *fakeSubmissionRepo) ListByCreator(_ context.Context, createdBy uuid.UUID) ([]model.MaintenanceSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MaintenanceSubmission
	for _, sub := range r.subs {
		if sub.CreatedBy == createdBy {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (r *fakeSubmissionRepo) TransitionFromPending(_ context.Context, id uuid.UUID, updates map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[id]
	if !ok || sub.Status != model.SubmissionPending {
		return false, nil
	}
	if v, ok := updates["status"].(string); ok {
		sub.Status = v
	}
	if v, ok := updates["reviewed_by"].(uuid.UUID); ok {
		sub.ReviewedBy = &v
	}
	if v, ok := updates["reviewed_at"].(time.Time); ok {
		sub.ReviewedAt = &v
	}
	if v, ok := updates["admin_feedback"].(string); ok {
		sub.AdminFeedback = v
	}
	return true, nil
}

func (r *fakeSubmissionRepo) CountByStatus(_ context.Context, createdBy *uuid.UUID) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, sub := range r.subs {
		if createdBy != nil && sub.CreatedBy != *createdBy {
			continue
		}
		counts[sub.Status]++
	}
	return counts, nil
}

func (r *fakeSubmissionRepo) CountCreatedSince(_ context.Context, createdBy *uuid.UUID, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, sub := range r.subs {
		if createdBy != nil && sub.CreatedBy != *createdBy {
			continue
		}
		if !sub.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (r *fakeSubmissionRepo) CreateAttachment(_ context.Context, att *model.SubmissionAttachment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if att.ID == uuid.Nil {
		att.ID = uuid.New()
	}
	r.attachments = append(r.attachments, *att)
	return nil
}

func (r *fakeSubmissionRepo) ListAttachments(_ context.Context, submissionID uuid.UUID) ([]model.SubmissionAttachment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.SubmissionAttachment
	for _, att := range r.attachments {
		if att.SubmissionID == submissionID {
			out = append(out, att)
		}
	}
	return out, nil
}

// --- equipos ---

type fakeEquipoRepo struct {
	equipos map[uuid.UUID]*model.Equipo
}

func newFakeEquipoRepo(equipos ...*model.Equipo) *fakeEquipoRepo {
	r := &fakeEquipoRepo{equipos: make(map[uuid.UUID]*model.Equipo)}
	for _, e := range equipos {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		r.equipos[e.ID] = e
	}
	return r
}

func (r *fakeEquipoRepo) Create(_ context.Context, equipo *model.Equipo) error {
	if equipo.ID == uuid.Nil {
		equipo.ID = uuid.New()
	}
	cp := *equipo
	r.equipos[equipo.ID] = &cp
	return nil
}

func (r *fakeEquipoRepo) Update(_ context.Context, equipo *model.Equipo) error {
	cp := *equipo
	r.equipos[equipo.ID] = &cp
	return nil
}

func (r *fakeEquipoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Equipo, error) {
	e, ok := r.equipos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *fakeEquipoRepo) FindByFicha(_ context.Context, ficha string) (*model.Equipo, error) {
	for _, e := range r.equipos {
		if e.Ficha == ficha {
			cp := *e
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeEquipoRepo) List(_ context.Context, page, limit int, search string, soloActivos bool) ([]model.Equipo, int64, error) {
	var out []model.Equipo
	for _, e := range r.equipos {
		if soloActivos && !e.Activo {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(e.Ficha+e.Nombre+e.Placa), strings.ToLower(search)) {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ficha < out[j].Ficha })
	return out, int64(len(out)), nil
}

func (r *fakeEquipoRepo) ListAllActive(_ context.Context) ([]model.Equipo, error) {
	var out []model.Equipo
	for _, e := range r.equipos {
		if e.Activo && e.Empresa != model.EmpresaVendido {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ficha < out[j].Ficha })
	return out, nil
}

// --- scheduled maintenance ---

type fakeProgramadoRepo struct {
	progs map[uuid.UUID]*model.MantenimientoProgramado
}

func newFakeProgramadoRepo(progs ...*model.MantenimientoProgramado) *fakeProgramadoRepo {
	r := &fakeProgramadoRepo{progs: make(map[uuid.UUID]*model.MantenimientoProgramado)}
	for _, p := range progs {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		r.progs[p.ID] = p
	}
	return r
}

func (r *fakeProgramadoRepo) snapshot() func() {
	progs := make(map[uuid.UUID]*model.MantenimientoProgramado, len(r.progs))
	for id, p := range r.progs {
		cp := *p
		progs[id] = &cp
	}
	return func() { r.progs = progs }
}

func (r *fakeProgramadoRepo) Create(_ context.Context, m *model.MantenimientoProgramado) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	cp := *m
	r.progs[m.ID] = &cp
	return nil
}

func (r *fakeProgramadoRepo) Update(_ context.Context, m *model.MantenimientoProgramado) error {
	cp := *m
	r.progs[m.ID] = &cp
	return nil
}

func (r *fakeProgramadoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.MantenimientoProgramado, error) {
	p, ok := r.progs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProgramadoRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.MantenimientoProgramado, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeProgramadoRepo) FindByFicha(_ context.Context, ficha string) ([]model.MantenimientoProgramado, error) {
	var out []model.MantenimientoProgramado
	for _, p := range r.progs {
		if p.Ficha == ficha {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeProgramadoRepo) FindActiveByEquipoForUpdate(_ context.Context, equipoID uuid.UUID) (*model.MantenimientoProgramado, error) {
	for _, p := range r.progs {
		if p.EquipoID == equipoID && p.Activo {
			cp := *p
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeProgramadoRepo) List(_ context.Context, page, limit int, soloActivos bool) ([]model.MantenimientoProgramado, int64, error) {
	var out []model.MantenimientoProgramado
	for _, p := range r.progs {
		if soloActivos && !p.Activo {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ficha < out[j].Ficha })
	return out, int64(len(out)), nil
}

func (r *fakeProgramadoRepo) ListStale(_ context.Context, cutoff time.Time) ([]model.MantenimientoProgramado, error) {
	var out []model.MantenimientoProgramado
	for _, p := range r.progs {
		if p.Activo && p.FechaUltimaActualizacion.Before(cutoff) {
			out = append(out, *p)
		}
	}
	return out, nil
}

// --- realized maintenance ---

type fakeRealizadoRepo struct {
	records []model.MantenimientoRealizado
	lastErr error // injected failure for FindLastByFicha
}

func (r *fakeRealizadoRepo) snapshot() func() {
	records := append([]model.MantenimientoRealizado(nil), r.records...)
	return func() { r.records = records }
}

func (r *fakeRealizadoRepo) Create(_ context.Context, m *model.MantenimientoRealizado) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.records = append(r.records, *m)
	return nil
}

func (r *fakeRealizadoRepo) FindByFicha(_ context.Context, ficha string, page, limit int) ([]model.MantenimientoRealizado, int64, error) {
	var out []model.MantenimientoRealizado
	for _, rec := range r.records {
		if rec.Ficha == ficha {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FechaMantenimiento.After(out[j].FechaMantenimiento) })
	return out, int64(len(out)), nil
}

func (r *fakeRealizadoRepo) FindLastByFicha(_ context.Context, ficha string) (*model.MantenimientoRealizado, error) {
	if r.lastErr != nil {
		return nil, r.lastErr
	}
	var last *model.MantenimientoRealizado
	for i := range r.records {
		rec := &r.records[i]
		if rec.Ficha != ficha {
			continue
		}
		if last == nil || rec.FechaMantenimiento.After(last.FechaMantenimiento) {
			last = rec
		}
	}
	if last == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *last
	return &cp, nil
}

func (r *fakeRealizadoRepo) CountBySubmission(_ context.Context, submissionID uuid.UUID) (int64, error) {
	var count int64
	for _, rec := range r.records {
		if rec.SubmissionID != nil && *rec.SubmissionID == submissionID {
			count++
		}
	}
	return count, nil
}

// --- inventory ---

type fakeInventarioRepo struct {
	items       map[uuid.UUID]*model.Inventario
	movimientos []model.MovimientoInventario
	findErr     error // injected failure for FindByIDForUpdate
}

func newFakeInventarioRepo(items ...*model.Inventario) *fakeInventarioRepo {
	r := &fakeInventarioRepo{items: make(map[uuid.UUID]*model.Inventario)}
	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		r.items[item.ID] = item
	}
	return r
}

func (r *fakeInventarioRepo) snapshot() func() {
	items := make(map[uuid.UUID]*model.Inventario, len(r.items))
	for id, item := range r.items {
		cp := *item
		items[id] = &cp
	}
	movimientos := append([]model.MovimientoInventario(nil), r.movimientos...)
	return func() { r.items, r.movimientos = items, movimientos }
}

func (r *fakeInventarioRepo) Create(_ context.Context, item *model.Inventario) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *fakeInventarioRepo) Update(_ context.Context, item *model.Inventario) error {
	cp := *item
	r.items[item.ID] = &cp
	return nil
}

func (r *fakeInventarioRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.items, id)
	return nil
}

func (r *fakeInventarioRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Inventario, error) {
	item, ok := r.items[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *item
	return &cp, nil
}

func (r *fakeInventarioRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Inventario, error) {
	if r.findErr != nil {
		return nil, r.findErr
	}
	return r.FindByID(ctx, id)
}

func (r *fakeInventarioRepo) FindByCodigo(_ context.Context, codigo string) (*model.Inventario, error) {
	for _, item := range r.items {
		if item.CodigoIdentificacion == codigo {
			cp := *item
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeInventarioRepo) List(_ context.Context, page, limit int, search string) ([]model.Inventario, int64, error) {
	var out []model.Inventario
	for _, item := range r.items {
		out = append(out, *item)
	}
	return out, int64(len(out)), nil
}

func (r *fakeInventarioRepo) ListBajoStock(_ context.Context) ([]model.Inventario, error) {
	var out []model.Inventario
	for _, item := range r.items {
		if item.Activo && item.Cantidad <= item.StockMinimo {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (r *fakeInventarioRepo) UpdateCantidad(_ context.Context, id uuid.UUID, cantidad int) error {
	item, ok := r.items[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	item.Cantidad = cantidad
	return nil
}

func (r *fakeInventarioRepo) CreateMovimiento(_ context.Context, mov *model.MovimientoInventario) error {
	if mov.ID == uuid.Nil {
		mov.ID = uuid.New()
	}
	r.movimientos = append(r.movimientos, *mov)
	return nil
}

func (r *fakeInventarioRepo) ListMovimientos(_ context.Context, itemID uuid.UUID, page, limit int) ([]model.MovimientoInventario, int64, error) {
	var out []model.MovimientoInventario
	for _, mov := range r.movimientos {
		if mov.InventarioID == itemID {
			out = append(out, mov)
		}
	}
	return out, int64(len(out)), nil
}

// --- users ---

type fakeUserRepo struct {
	users map[string]*model.User
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[string]*model.User)}
	for _, u := range users {
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		r.users[u.ID.String()] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.users[user.ID.String()] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) List(_ context.Context, page, limit int) ([]model.User, int64, error) {
	var out []model.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	r.users[user.ID.String()] = user
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id string) error {
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) CreateRefreshToken(_ context.Context, _ *model.RefreshToken) error {
	return nil
}

func (r *fakeUserRepo) GetRefreshToken(_ context.Context, _ string) (*model.RefreshToken, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) DeleteRefreshToken(_ context.Context, _ string) error {
	return nil
}

// --- audit ---

type fakeAuditRepo struct {
	entries []model.AuditLog
}

func (r *fakeAuditRepo) snapshot() func() {
	entries := append([]model.AuditLog(nil), r.entries...)
	return func() { r.entries = entries }
}

func (r *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, page, limit int) ([]model.AuditLog, int64, error) {
	return r.entries, int64(len(r.entries)), nil
}

func (r *fakeAuditRepo) byAction(action string) []model.AuditLog {
	var out []model.AuditLog
	for _, e := range r.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// --- readings ---

type fakeLecturaRepo struct {
	lecturas []model.ActualizacionHorasKm
}

func (r *fakeLecturaRepo) snapshot() func() {
	lecturas := append([]model.ActualizacionHorasKm(nil), r.lecturas...)
	return func() { r.lecturas = lecturas }
}

func (r *fakeLecturaRepo) Create(_ context.Context, lectura *model.ActualizacionHorasKm) error {
	if lectura.ID == uuid.Nil {
		lectura.ID = uuid.New()
	}
	r.lecturas = append(r.lecturas, *lectura)
	return nil
}

func (r *fakeLecturaRepo) FindLastByFicha(_ context.Context, ficha string) (*model.ActualizacionHorasKm, error) {
	var last *model.ActualizacionHorasKm
	for i := range r.lecturas {
		l := &r.lecturas[i]
		if l.Ficha != ficha {
			continue
		}
		if last == nil || l.Fecha.After(last.Fecha) {
			last = l
		}
	}
	if last == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *last
	return &cp, nil
}

func (r *fakeLecturaRepo) FindByFicha(_ context.Context, ficha string, page, limit int) ([]model.ActualizacionHorasKm, int64, error) {
	var out []model.ActualizacionHorasKm
	for _, l := range r.lecturas {
		if l.Ficha == ficha {
			out = append(out, l)
		}
	}
	return out, int64(len(out)), nil
}

// --- kits ---

type fakeKitRepo struct {
	kits       map[uuid.UUID]*model.KitMantenimiento
	intervalos []model.PlanIntervalo
}

func newFakeKitRepo() *fakeKitRepo {
	return &fakeKitRepo{kits: make(map[uuid.UUID]*model.KitMantenimiento)}
}

func (r *fakeKitRepo) Create(_ context.Context, kit *model.KitMantenimiento) error {
	if kit.ID == uuid.Nil {
		kit.ID = uuid.New()
	}
	cp := *kit
	r.kits[kit.ID] = &cp
	return nil
}

func (r *fakeKitRepo) Update(_ context.Context, kit *model.KitMantenimiento) error {
	cp := *kit
	r.kits[kit.ID] = &cp
	return nil
}

func (r *fakeKitRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.kits, id)
	return nil
}

func (r *fakeKitRepo) FindByID(_ context.Context, id uuid.UUID) (*model.KitMantenimiento, error) {
	kit, ok := r.kits[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *kit
	return &cp, nil
}

func (r *fakeKitRepo) FindByModeloIntervalo(_ context.Context, marca, modelo, intervalo string) (*model.KitMantenimiento, error) {
	for _, kit := range r.kits {
		if strings.EqualFold(kit.Marca, marca) && strings.EqualFold(kit.Modelo, modelo) && kit.Intervalo == intervalo {
			cp := *kit
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeKitRepo) List(_ context.Context, page, limit int) ([]model.KitMantenimiento, int64, error) {
	var out []model.KitMantenimiento
	for _, kit := range r.kits {
		out = append(out, *kit)
	}
	return out, int64(len(out)), nil
}

func (r *fakeKitRepo) ListIntervalos(_ context.Context) ([]model.PlanIntervalo, error) {
	return r.intervalos, nil
}

func (r *fakeKitRepo) UpsertIntervalo(_ context.Context, intervalo *model.PlanIntervalo) error {
	r.intervalos = append(r.intervalos, *intervalo)
	return nil
}
