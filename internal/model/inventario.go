package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MovimientoTipo enum constants
const (
	MovTipoEntrada = "ENTRADA"
	MovTipoSalida  = "SALIDA"
	MovTipoAjuste  = "AJUSTE"
)

// StringList stores a list of strings as a jsonb column
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return errors.New("unsupported type for StringList")
	}
}

// Inventario represents a spare part (filtro, aceite, repuesto) in stock.
// Cantidad never goes negative: decrements are clamped at zero and the
// discrepancy is surfaced through an audit entry.
type Inventario struct {
	ID                   uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Nombre               string          `gorm:"type:varchar(255);not null" json:"nombre"`
	NumeroParte          string          `gorm:"type:varchar(100);index" json:"numero_parte"`
	Tipo                 string          `gorm:"type:varchar(100);index" json:"tipo"`
	Sistema              string          `gorm:"type:varchar(100)" json:"sistema"`
	CategoriaEquipo      string          `gorm:"type:varchar(100);index" json:"categoria_equipo"`
	Cantidad             int             `gorm:"not null;default:0" json:"cantidad"`
	StockMinimo          int             `gorm:"not null;default:0" json:"stock_minimo"`
	CostoUnitario        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"costo_unitario"`
	CodigoIdentificacion string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"codigo_identificacion"`
	Ubicacion            string          `gorm:"type:varchar(255)" json:"ubicacion"`
	EmpresaSuplidora     string          `gorm:"type:varchar(255)" json:"empresa_suplidora"`
	MarcaFabricante      string          `gorm:"type:varchar(100)" json:"marca_fabricante"`
	MarcasCompatibles    StringList      `gorm:"type:jsonb;default:'[]'" json:"marcas_compatibles"`
	ModelosCompatibles   StringList      `gorm:"type:jsonb;default:'[]'" json:"modelos_compatibles"`
	Activo               bool            `gorm:"default:true;index" json:"activo"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
	DeletedAt            gorm.DeletedAt  `gorm:"index" json:"-"`
}

// MovimientoInventario records stock changes strictly, one row per change
type MovimientoInventario struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InventarioID uuid.UUID  `gorm:"type:uuid;not null;index" json:"inventario_id"`
	SubmissionID *uuid.UUID `gorm:"type:uuid;index" json:"submission_id"` // nullable, set on approval-integration
	Tipo         string     `gorm:"type:varchar(10);not null" json:"tipo"` // ENTRADA, SALIDA, AJUSTE
	Cantidad     int        `gorm:"not null" json:"cantidad"`              // signed change applied to stock
	StockAfter   int        `gorm:"not null" json:"stock_after"`
	Responsable  string     `gorm:"type:varchar(255)" json:"responsable"`
	Motivo       string     `gorm:"type:text" json:"motivo"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`
}
