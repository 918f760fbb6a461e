package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateEquipo     = "CREATE_EQUIPO"
	ActionUpdateEquipo     = "UPDATE_EQUIPO"
	ActionDeactivateEquipo = "DEACTIVATE_EQUIPO"

	ActionRegisterReading     = "REGISTER_READING"
	ActionRegisterMaintenance = "REGISTER_MAINTENANCE"

	ActionCreateInventario = "CREATE_INVENTARIO"
	ActionUpdateInventario = "UPDATE_INVENTARIO"
	ActionDeleteInventario = "DELETE_INVENTARIO"
	ActionStockMovement    = "STOCK_MOVEMENT"
	ActionStockClamped     = "STOCK_CLAMPED"

	ActionCreateKit = "CREATE_KIT"
	ActionUpdateKit = "UPDATE_KIT"
	ActionDeleteKit = "DELETE_KIT"

	// Submission workflow actions
	ActionSubmitWorkOrder   = "SUBMIT_WORK_ORDER"
	ActionApproveSubmission = "APPROVE_SUBMISSION"
	ActionRejectSubmission  = "REJECT_SUBMISSION"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated bot
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/ficha)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
