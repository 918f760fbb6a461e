package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleetmaint/internal/model"
	"fleetmaint/internal/repository"
	ws "fleetmaint/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type CreateInventarioRequest struct {
	Nombre               string   `json:"nombre" binding:"required"`
	NumeroParte          string   `json:"numero_parte"`
	Tipo                 string   `json:"tipo"`
	Sistema              string   `json:"sistema"`
	CategoriaEquipo      string   `json:"categoria_equipo"`
	Cantidad             int      `json:"cantidad" binding:"min=0"`
	StockMinimo          int      `json:"stock_minimo" binding:"min=0"`
	CostoUnitario        string   `json:"costo_unitario"`
	CodigoIdentificacion string   `json:"codigo_identificacion" binding:"required"`
	Ubicacion            string   `json:"ubicacion"`
	EmpresaSuplidora     string   `json:"empresa_suplidora"`
	MarcaFabricante      string   `json:"marca_fabricante"`
	MarcasCompatibles    []string `json:"marcas_compatibles"`
	ModelosCompatibles   []string `json:"modelos_compatibles"`
}

type UpdateInventarioRequest struct {
	Nombre             string   `json:"nombre" binding:"required"`
	NumeroParte        string   `json:"numero_parte"`
	Tipo               string   `json:"tipo"`
	Sistema            string   `json:"sistema"`
	CategoriaEquipo    string   `json:"categoria_equipo"`
	StockMinimo        int      `json:"stock_minimo" binding:"min=0"`
	CostoUnitario      string   `json:"costo_unitario"`
	Ubicacion          string   `json:"ubicacion"`
	EmpresaSuplidora   string   `json:"empresa_suplidora"`
	MarcaFabricante    string   `json:"marca_fabricante"`
	MarcasCompatibles  []string `json:"marcas_compatibles"`
	ModelosCompatibles []string `json:"modelos_compatibles"`
	Activo             *bool    `json:"activo"`
}

type MovimientoRequest struct {
	Tipo     string `json:"tipo" binding:"required,oneof=ENTRADA SALIDA AJUSTE"`
	Cantidad int    `json:"cantidad" binding:"required"`
	Motivo   string `json:"motivo"`
}

type InventarioResponse struct {
	ID                   string   `json:"id"`
	Nombre               string   `json:"nombre"`
	NumeroParte          string   `json:"numero_parte"`
	Tipo                 string   `json:"tipo"`
	Sistema              string   `json:"sistema"`
	CategoriaEquipo      string   `json:"categoria_equipo"`
	Cantidad             int      `json:"cantidad"`
	StockMinimo          int      `json:"stock_minimo"`
	BajoStock            bool     `json:"bajo_stock"`
	CostoUnitario        string   `json:"costo_unitario"`
	CodigoIdentificacion string   `json:"codigo_identificacion"`
	Ubicacion            string   `json:"ubicacion"`
	EmpresaSuplidora     string   `json:"empresa_suplidora"`
	MarcaFabricante      string   `json:"marca_fabricante"`
	MarcasCompatibles    []string `json:"marcas_compatibles"`
	ModelosCompatibles   []string `json:"modelos_compatibles"`
	Activo               bool     `json:"activo"`
}

type MovimientoResponse struct {
	ID           string  `json:"id"`
	InventarioID string  `json:"inventario_id"`
	SubmissionID *string `json:"submission_id,omitempty"`
	Tipo         string  `json:"tipo"`
	Cantidad     int     `json:"cantidad"`
	StockAfter   int     `json:"stock_after"`
	Responsable  string  `json:"responsable"`
	Motivo       string  `json:"motivo"`
	CreatedAt    string  `json:"created_at"`
}

type InventarioService interface {
	Create(ctx context.Context, userID string, req CreateInventarioRequest) (InventarioResponse, error)
	Update(ctx context.Context, userID string, id string, req UpdateInventarioRequest) (InventarioResponse, error)
	Delete(ctx context.Context, userID string, id string) error
	GetByID(ctx context.Context, id string) (InventarioResponse, error)
	List(ctx context.Context, page, limit int, search string) ([]InventarioResponse, int64, error)
	ListBajoStock(ctx context.Context) ([]InventarioResponse, error)
	// RegisterMovimiento applies a manual stock movement. Unlike the
	// approval-integration path, a manual SALIDA larger than the stock on hand
	// is rejected instead of clamped.
	RegisterMovimiento(ctx context.Context, userID string, id string, req MovimientoRequest) (MovimientoResponse, error)
	ListMovimientos(ctx context.Context, id string, page, limit int) ([]MovimientoResponse, int64, error)
}

type inventarioService struct {
	inventarioRepo repository.InventarioRepository
	userRepo       repository.UserRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
	hub            *ws.Hub
}

func NewInventarioService(
	inventarioRepo repository.InventarioRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) InventarioService {
	return &inventarioService{
		inventarioRepo: inventarioRepo,
		userRepo:       userRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
		hub:            hub,
	}
}

func (s *inventarioService) Create(ctx context.Context, userID string, req CreateInventarioRequest) (InventarioResponse, error) {
	codigo := strings.TrimSpace(req.CodigoIdentificacion)
	if codigo == "" {
		return InventarioResponse{}, NewValidationError("codigo_identificacion", "identification code is required")
	}

	if _, err := s.inventarioRepo.FindByCodigo(ctx, codigo); err == nil {
		return InventarioResponse{}, NewValidationError("codigo_identificacion", "identification code already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return InventarioResponse{}, fmt.Errorf("database error: %w", err)
	}

	costo, err := parseCosto(req.CostoUnitario)
	if err != nil {
		return InventarioResponse{}, NewValidationError("costo_unitario", "invalid unit cost")
	}

	item := model.Inventario{
		Nombre:               req.Nombre,
		NumeroParte:          req.NumeroParte,
		Tipo:                 req.Tipo,
		Sistema:              req.Sistema,
		CategoriaEquipo:      req.CategoriaEquipo,
		Cantidad:             req.Cantidad,
		StockMinimo:          req.StockMinimo,
		CostoUnitario:        costo,
		CodigoIdentificacion: codigo,
		Ubicacion:            req.Ubicacion,
		EmpresaSuplidora:     req.EmpresaSuplidora,
		MarcaFabricante:      req.MarcaFabricante,
		MarcasCompatibles:    model.StringList(req.MarcasCompatibles),
		ModelosCompatibles:   model.StringList(req.ModelosCompatibles),
		Activo:               true,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.inventarioRepo.Create(txCtx, &item); createErr != nil {
			return fmt.Errorf("failed to create inventory item: %w", createErr)
		}

		if item.Cantidad > 0 {
			mov := &model.MovimientoInventario{
				InventarioID: item.ID,
				Tipo:         model.MovTipoEntrada,
				Cantidad:     item.Cantidad,
				StockAfter:   item.Cantidad,
				Responsable:  s.lookupUsername(txCtx, userID),
				Motivo:       "Stock inicial",
			}
			if movErr := s.inventarioRepo.CreateMovimiento(txCtx, mov); movErr != nil {
				return fmt.Errorf("failed to record initial stock: %w", movErr)
			}
		}

		var uid *uuid.UUID
		if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
			uid = &parsed
		}
		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionCreateInventario,
			EntityID:   item.ID.String(),
			EntityName: item.Nombre,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return InventarioResponse{}, err
	}

	return toInventarioResponse(item), nil
}

func (s *inventarioService) Update(ctx context.Context, userID string, id string, req UpdateInventarioRequest) (InventarioResponse, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return InventarioResponse{}, fmt.Errorf("invalid inventory id: %w", err)
	}

	item, err := s.inventarioRepo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InventarioResponse{}, errors.New("inventory item not found")
		}
		return InventarioResponse{}, fmt.Errorf("database error: %w", err)
	}

	costo, err := parseCosto(req.CostoUnitario)
	if err != nil {
		return InventarioResponse{}, NewValidationError("costo_unitario", "invalid unit cost")
	}

	item.Nombre = req.Nombre
	item.NumeroParte = req.NumeroParte
	item.Tipo = req.Tipo
	item.Sistema = req.Sistema
	item.CategoriaEquipo = req.CategoriaEquipo
	item.StockMinimo = req.StockMinimo
	item.CostoUnitario = costo
	item.Ubicacion = req.Ubicacion
	item.EmpresaSuplidora = req.EmpresaSuplidora
	item.MarcaFabricante = req.MarcaFabricante
	item.MarcasCompatibles = model.StringList(req.MarcasCompatibles)
	item.ModelosCompatibles = model.StringList(req.ModelosCompatibles)
	if req.Activo != nil {
		item.Activo = *req.Activo
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.inventarioRepo.Update(txCtx, item); updateErr != nil {
			return fmt.Errorf("failed to update inventory item: %w", updateErr)
		}

		var uid *uuid.UUID
		if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
			uid = &parsed
		}
		details, _ := json.Marshal(req)
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionUpdateInventario,
			EntityID:   item.ID.String(),
			EntityName: item.Nombre,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return InventarioResponse{}, err
	}

	return toInventarioResponse(*item), nil
}

func (s *inventarioService) Delete(ctx context.Context, userID string, id string) error {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid inventory id: %w", err)
	}

	item, err := s.inventarioRepo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("inventory item not found")
		}
		return fmt.Errorf("database error: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.inventarioRepo.Delete(txCtx, itemID); delErr != nil {
			return fmt.Errorf("failed to delete inventory item: %w", delErr)
		}

		var uid *uuid.UUID
		if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
			uid = &parsed
		}
		audit := &model.AuditLog{
			UserID:     uid,
			Action:     model.ActionDeleteInventario,
			EntityID:   item.ID.String(),
			EntityName: item.Nombre,
			Details:    `{"deleted": true}`,
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
}

func (s *inventarioService) GetByID(ctx context.Context, id string) (InventarioResponse, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return InventarioResponse{}, fmt.Errorf("invalid inventory id: %w", err)
	}

	item, err := s.inventarioRepo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InventarioResponse{}, errors.New("inventory item not found")
		}
		return InventarioResponse{}, fmt.Errorf("database error: %w", err)
	}

	return toInventarioResponse(*item), nil
}

func (s *inventarioService) List(ctx context.Context, page, limit int, search string) ([]InventarioResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	items, total, err := s.inventarioRepo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch inventory: %w", err)
	}

	res := make([]InventarioResponse, 0, len(items))
	for _, item := range items {
		res = append(res, toInventarioResponse(item))
	}
	return res, total, nil
}

func (s *inventarioService) ListBajoStock(ctx context.Context) ([]InventarioResponse, error) {
	items, err := s.inventarioRepo.ListBajoStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch low-stock items: %w", err)
	}

	res := make([]InventarioResponse, 0, len(items))
	for _, item := range items {
		res = append(res, toInventarioResponse(item))
	}
	return res, nil
}

func (s *inventarioService) RegisterMovimiento(ctx context.Context, userID string, id string, req MovimientoRequest) (MovimientoResponse, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return MovimientoResponse{}, fmt.Errorf("invalid inventory id: %w", err)
	}
	if req.Cantidad == 0 {
		return MovimientoResponse{}, NewValidationError("cantidad", "quantity must not be zero")
	}

	actorID, _ := uuid.Parse(userID)
	responsable := s.lookupUsername(ctx, userID)

	var mov model.MovimientoInventario
	var itemNombre string
	var bajoStock bool

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		item, findErr := s.inventarioRepo.FindByIDForUpdate(txCtx, itemID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return errors.New("inventory item not found")
			}
			return fmt.Errorf("database error: %w", findErr)
		}
		itemNombre = item.Nombre

		delta := 0
		switch req.Tipo {
		case model.MovTipoEntrada:
			if req.Cantidad < 0 {
				return NewValidationError("cantidad", "ENTRADA requires a positive quantity")
			}
			delta = req.Cantidad
		case model.MovTipoSalida:
			if req.Cantidad < 0 {
				return NewValidationError("cantidad", "SALIDA requires a positive quantity")
			}
			if req.Cantidad > item.Cantidad {
				return NewValidationError("cantidad",
					fmt.Sprintf("insufficient stock: %d available, %d requested", item.Cantidad, req.Cantidad))
			}
			delta = -req.Cantidad
		case model.MovTipoAjuste:
			delta = req.Cantidad
			if item.Cantidad+delta < 0 {
				return NewValidationError("cantidad", "adjustment would leave negative stock")
			}
		default:
			return NewValidationError("tipo", "unknown movement type")
		}

		stockAfter := item.Cantidad + delta
		if updateErr := s.inventarioRepo.UpdateCantidad(txCtx, item.ID, stockAfter); updateErr != nil {
			return fmt.Errorf("failed to update stock: %w", updateErr)
		}

		mov = model.MovimientoInventario{
			InventarioID: item.ID,
			Tipo:         req.Tipo,
			Cantidad:     delta,
			StockAfter:   stockAfter,
			Responsable:  responsable,
			Motivo:       req.Motivo,
		}
		if movErr := s.inventarioRepo.CreateMovimiento(txCtx, &mov); movErr != nil {
			return fmt.Errorf("failed to record movement: %w", movErr)
		}
		bajoStock = stockAfter <= item.StockMinimo

		details, _ := json.Marshal(map[string]interface{}{
			"tipo":        req.Tipo,
			"cantidad":    delta,
			"stock_after": stockAfter,
			"motivo":      req.Motivo,
		})
		audit := &model.AuditLog{
			UserID:     &actorID,
			Action:     model.ActionStockMovement,
			EntityID:   item.ID.String(),
			EntityName: item.Nombre,
			Details:    string(details),
		}
		if auditErr := s.auditRepo.Log(txCtx, audit); auditErr != nil {
			return fmt.Errorf("failed to write audit log: %w", auditErr)
		}
		return nil
	})
	if err != nil {
		return MovimientoResponse{}, err
	}

	if bajoStock {
		s.notifyLowStock(itemID.String(), itemNombre, mov.StockAfter)
	}

	return toMovimientoResponse(mov), nil
}

func (s *inventarioService) ListMovimientos(ctx context.Context, id string, page, limit int) ([]MovimientoResponse, int64, error) {
	itemID, err := uuid.Parse(id)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid inventory id: %w", err)
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	movs, total, err := s.inventarioRepo.ListMovimientos(ctx, itemID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch movements: %w", err)
	}

	res := make([]MovimientoResponse, 0, len(movs))
	for _, m := range movs {
		res = append(res, toMovimientoResponse(m))
	}
	return res, total, nil
}

func (s *inventarioService) lookupUsername(ctx context.Context, userID string) string {
	if s.userRepo == nil {
		return userID
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return userID
	}
	return user.Username
}

func (s *inventarioService) notifyLowStock(id, nombre string, stock int) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(SubmissionEvent{
		Event: "low_stock",
		Data: map[string]interface{}{
			"inventario_id": id,
			"nombre":        nombre,
			"cantidad":      stock,
		},
	})
	if err != nil {
		return
	}
	select {
	case s.hub.Broadcast <- payload:
	default:
	}
}

func parseCosto(v string) (decimal.Decimal, error) {
	if strings.TrimSpace(v) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(v)
}

func toInventarioResponse(item model.Inventario) InventarioResponse {
	marcas := []string(item.MarcasCompatibles)
	if marcas == nil {
		marcas = []string{}
	}
	modelos := []string(item.ModelosCompatibles)
	if modelos == nil {
		modelos = []string{}
	}
	return InventarioResponse{
		ID:                   item.ID.String(),
		Nombre:               item.Nombre,
		NumeroParte:          item.NumeroParte,
		Tipo:                 item.Tipo,
		Sistema:              item.Sistema,
		CategoriaEquipo:      item.CategoriaEquipo,
		Cantidad:             item.Cantidad,
		StockMinimo:          item.StockMinimo,
		BajoStock:            item.Cantidad <= item.StockMinimo,
		CostoUnitario:        item.CostoUnitario.StringFixed(2),
		CodigoIdentificacion: item.CodigoIdentificacion,
		Ubicacion:            item.Ubicacion,
		EmpresaSuplidora:     item.EmpresaSuplidora,
		MarcaFabricante:      item.MarcaFabricante,
		MarcasCompatibles:    marcas,
		ModelosCompatibles:   modelos,
		Activo:               item.Activo,
	}
}

func toMovimientoResponse(m model.MovimientoInventario) MovimientoResponse {
	resp := MovimientoResponse{
		ID:           m.ID.String(),
		InventarioID: m.InventarioID.String(),
		Tipo:         m.Tipo,
		Cantidad:     m.Cantidad,
		StockAfter:   m.StockAfter,
		Responsable:  m.Responsable,
		Motivo:       m.Motivo,
		CreatedAt:    m.CreatedAt.Format(time.RFC3339),
	}
	if m.SubmissionID != nil {
		v := m.SubmissionID.String()
		resp.SubmissionID = &v
	}
	return resp
}
