package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Empresa enum constants. VENDIDO marks equipment that was sold and must no
// longer be offered in selectors.
const (
	EmpresaAlitoGroup = "ALITO GROUP SRL"
	EmpresaAlitoEirl  = "ALITO EIRL"
	EmpresaVendido    = "VENDIDO"
)

// Equipo represents a single piece of fleet equipment identified by its ficha
type Equipo struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Ficha             string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"ficha"`
	Nombre            string         `gorm:"type:varchar(255);not null" json:"nombre"`
	Marca             string         `gorm:"type:varchar(100)" json:"marca"`
	Modelo            string         `gorm:"type:varchar(100)" json:"modelo"`
	NumeroSerie       string         `gorm:"type:varchar(100)" json:"numero_serie"`
	Placa             string         `gorm:"type:varchar(50)" json:"placa"`
	Categoria         string         `gorm:"type:varchar(100);index" json:"categoria"`
	Empresa           string         `gorm:"type:varchar(100);not null;default:'ALITO GROUP SRL'" json:"empresa"`
	Activo            bool           `gorm:"default:true;index" json:"activo"`
	MotivoInactividad string         `gorm:"type:text" json:"motivo_inactividad"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

// Disponible reports whether the equipment may receive readings, work orders
// or scheduled maintenance. Sold equipment is never available.
func (e *Equipo) Disponible() bool {
	return e.Activo && e.Empresa != EmpresaVendido
}
