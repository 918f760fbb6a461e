package service

import (
	"context"
	"encoding/json"

	"fleetmaint/internal/model"
	"fleetmaint/internal/repository"

	"github.com/google/uuid"
)

// discountInventoryParts applies the stock decrement for every part flagged
// del_inventario. Decrements clamp at zero; a clamped decrement still succeeds
// but leaves a STOCK_CLAMPED audit entry so the discrepancy is visible.
// Must run inside a transaction: each item row is locked before the write.
func discountInventoryParts(
	ctx context.Context,
	inventarioRepo repository.InventarioRepository,
	auditRepo repository.AuditRepository,
	partes model.ParteUsadaList,
	refID *uuid.UUID,
	actorID *uuid.UUID,
	responsable string,
	motivo string,
) error {
	for _, parte := range partes {
		if !parte.DelInventario || parte.InventarioID == nil {
			continue
		}

		item, err := inventarioRepo.FindByIDForUpdate(ctx, *parte.InventarioID)
		if err != nil {
			return &IntegrationError{Step: "load inventory item", Err: err}
		}

		applied := parte.Cantidad
		clamped := false
		if applied > item.Cantidad {
			applied = item.Cantidad
			clamped = true
		}
		stockAfter := item.Cantidad - applied

		if err := inventarioRepo.UpdateCantidad(ctx, item.ID, stockAfter); err != nil {
			return &IntegrationError{Step: "decrement inventory", Err: err}
		}

		mov := &model.MovimientoInventario{
			InventarioID: item.ID,
			SubmissionID: refID,
			Tipo:         model.MovTipoSalida,
			Cantidad:     -applied,
			StockAfter:   stockAfter,
			Responsable:  responsable,
			Motivo:       motivo,
		}
		if err := inventarioRepo.CreateMovimiento(ctx, mov); err != nil {
			return &IntegrationError{Step: "inventory movement", Err: err}
		}

		if clamped {
			details, _ := json.Marshal(map[string]interface{}{
				"inventario_id": item.ID.String(),
				"solicitado":    parte.Cantidad,
				"descontado":    applied,
			})
			audit := &model.AuditLog{
				UserID:     actorID,
				Action:     model.ActionStockClamped,
				EntityID:   item.ID.String(),
				EntityName: item.Nombre,
				Details:    string(details),
			}
			if err := auditRepo.Log(ctx, audit); err != nil {
				return &IntegrationError{Step: "stock clamp audit", Err: err}
			}
		}
	}
	return nil
}
