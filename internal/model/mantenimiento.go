package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// MantenimientoProgramado is the scheduled-maintenance row for an equipment.
// ProximoMantenimiento and HorasKmRestante are stored as caches only: every
// read path recomputes them from the three base fields through the resolver,
// and the recomputed value is authoritative over whatever is stored here.
type MantenimientoProgramado struct {
	ID                         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EquipoID                   uuid.UUID  `gorm:"type:uuid;not null;index" json:"equipo_id"`
	Equipo                     *Equipo    `gorm:"foreignKey:EquipoID" json:"equipo,omitempty"`
	Ficha                      string     `gorm:"type:varchar(50);not null;index" json:"ficha"`
	TipoMantenimiento          string     `gorm:"type:varchar(255)" json:"tipo_mantenimiento"`
	HorasKmActuales            float64    `gorm:"type:decimal(12,2);not null;default:0" json:"horas_km_actuales"`
	Frecuencia                 float64    `gorm:"type:decimal(12,2);not null;default:0" json:"frecuencia"`
	HorasKmUltimoMantenimiento float64    `gorm:"type:decimal(12,2);not null;default:0" json:"horas_km_ultimo_mantenimiento"`
	FechaUltimoMantenimiento   *time.Time `json:"fecha_ultimo_mantenimiento"`
	FechaUltimaActualizacion   time.Time  `json:"fecha_ultima_actualizacion"`
	ProximoMantenimiento       float64    `gorm:"type:decimal(12,2);not null;default:0" json:"proximo_mantenimiento"`
	HorasKmRestante            float64    `gorm:"type:decimal(12,2);not null;default:0" json:"horas_km_restante"`
	Activo                     bool       `gorm:"default:true;index" json:"activo"`
	CreatedAt                  time.Time  `json:"created_at"`
	UpdatedAt                  time.Time  `json:"updated_at"`
}

// ParteUsada is one spare part consumed by a maintenance or work order.
// DelInventario marks parts that must be discounted from stock on integration.
type ParteUsada struct {
	Nombre        string     `json:"nombre"`
	Cantidad      int        `json:"cantidad"`
	Referencia    string     `json:"referencia,omitempty"`
	DelInventario bool       `json:"del_inventario"`
	InventarioID  *uuid.UUID `json:"inventario_id,omitempty"`
}

// ParteUsadaList stores a list of parts as a jsonb column
type ParteUsadaList []ParteUsada

func (l ParteUsadaList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *ParteUsadaList) Scan(value interface{}) error {
	if value == nil {
		*l = ParteUsadaList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("unsupported type for ParteUsadaList")
	}
}

// MantenimientoRealizado is an immutable historical maintenance record.
// Rows are created either by direct registration or by approval-integration
// of a mechanic submission, and are never updated afterwards.
type MantenimientoRealizado struct {
	ID                    uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EquipoID              uuid.UUID      `gorm:"type:uuid;not null;index" json:"equipo_id"`
	Equipo                *Equipo        `gorm:"foreignKey:EquipoID" json:"equipo,omitempty"`
	Ficha                 string         `gorm:"type:varchar(50);not null;index" json:"ficha"`
	FechaMantenimiento    time.Time      `gorm:"not null" json:"fecha_mantenimiento"`
	HorasKmAlMomento      float64        `gorm:"type:decimal(12,2);not null" json:"horas_km_al_momento"`
	IncrementoDesdeUltimo float64        `gorm:"type:decimal(12,2);not null;default:0" json:"incremento_desde_ultimo"`
	UsuarioResponsable    string         `gorm:"type:varchar(255)" json:"usuario_responsable"`
	Observaciones         string         `gorm:"type:text" json:"observaciones"`
	PartesUsadas          ParteUsadaList `gorm:"type:jsonb;default:'[]'" json:"partes_usadas"`
	SubmissionID          *uuid.UUID     `gorm:"type:uuid;index" json:"submission_id"` // set when created by approval-integration
	CreatedAt             time.Time      `json:"created_at"`
}

// ActualizacionHorasKm is one append-only hours/km reading for a ficha.
// Incremento is computed against the previous reading of the same ficha.
type ActualizacionHorasKm struct {
	ID                 uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EquipoID           uuid.UUID `gorm:"type:uuid;not null;index" json:"equipo_id"`
	Ficha              string    `gorm:"type:varchar(50);not null;index" json:"ficha"`
	Fecha              time.Time `gorm:"not null;index" json:"fecha"`
	HorasKm            float64   `gorm:"type:decimal(12,2);not null" json:"horas_km"`
	Incremento         float64   `gorm:"type:decimal(12,2);not null;default:0" json:"incremento"`
	UsuarioResponsable string    `gorm:"type:varchar(255)" json:"usuario_responsable"`
	Observaciones      string    `gorm:"type:text" json:"observaciones"`
	CreatedAt          time.Time `json:"created_at"`
}
