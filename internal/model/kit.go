package model

import (
	"time"

	"github.com/google/uuid"
)

// PlanIntervalo stores one preventive-maintenance interval definition
// (PM1..PM4) with its operating-hour length. Reference data, admin-managed.
type PlanIntervalo struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Codigo         string    `gorm:"type:varchar(10);uniqueIndex;not null" json:"codigo"` // PM1..PM4
	Nombre         string    `gorm:"type:varchar(255);not null" json:"nombre"`
	HorasIntervalo float64   `gorm:"type:decimal(12,2);not null" json:"horas_intervalo"`
	Descripcion    string    `gorm:"type:text" json:"descripcion"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// KitMantenimiento groups the recommended parts and tasks for one interval
// code of a model family (e.g. CAT 320D / PM2). Consumed by the resolver to
// attach kit contents to an interval; carries no computed state.
type KitMantenimiento struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Marca       string     `gorm:"type:varchar(100);not null;index" json:"marca"`
	Modelo      string     `gorm:"type:varchar(100);not null;index" json:"modelo"`
	Intervalo   string     `gorm:"type:varchar(10);not null;index" json:"intervalo"` // PM1..PM4
	Tareas      StringList `gorm:"type:jsonb;default:'[]'" json:"tareas"`
	Piezas      []KitPieza `gorm:"foreignKey:KitID;constraint:OnDelete:CASCADE" json:"piezas"`
	Descripcion string     `gorm:"type:text" json:"descripcion"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// KitPieza is one part line within a maintenance kit
type KitPieza struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	KitID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"kit_id"`
	Nombre       string     `gorm:"type:varchar(255);not null" json:"nombre"`
	NumeroParte  string     `gorm:"type:varchar(100)" json:"numero_parte"`
	Cantidad     int        `gorm:"not null;default:1" json:"cantidad"`
	InventarioID *uuid.UUID `gorm:"type:uuid;index" json:"inventario_id"` // optional link to stock
}
