package model

import (
	"time"

	"github.com/google/uuid"
)

// Submission status enum constants. Approve() moves a submission straight
// from pending to integrated (review and integration happen in one atomic
// step); "approved" remains a legal stored value for legacy rows and is
// bucketed together with "integrated" in mechanic-facing stats.
const (
	SubmissionPending    = "pending"
	SubmissionApproved   = "approved"
	SubmissionRejected   = "rejected"
	SubmissionIntegrated = "integrated"
)

// MaintenanceSubmission is a mechanic-authored work-order report awaiting
// admin review. Status transitions are owned exclusively by SubmissionService.
type MaintenanceSubmission struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CreatedBy          uuid.UUID      `gorm:"type:uuid;not null;index" json:"created_by"`
	Creator            *User          `gorm:"foreignKey:CreatedBy" json:"creator,omitempty"`
	EquipoID           uuid.UUID      `gorm:"type:uuid;not null;index" json:"equipo_id"`
	Equipo             *Equipo        `gorm:"foreignKey:EquipoID" json:"equipo,omitempty"`
	FechaMantenimiento time.Time      `gorm:"not null" json:"fecha_mantenimiento"`
	HorasKmActuales    float64        `gorm:"type:decimal(12,2);not null" json:"horas_km_actuales"`
	TipoMantenimiento  string         `gorm:"type:varchar(255)" json:"tipo_mantenimiento"`
	DescripcionTrabajo string         `gorm:"type:text" json:"descripcion_trabajo"`
	Observaciones      string         `gorm:"type:text" json:"observaciones"`
	PartesUsadas       ParteUsadaList `gorm:"type:jsonb;default:'[]'" json:"partes_usadas"`
	Status             string         `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ReviewedBy         *uuid.UUID     `gorm:"type:uuid" json:"reviewed_by"`
	Reviewer           *User          `gorm:"foreignKey:ReviewedBy" json:"reviewer,omitempty"`
	ReviewedAt         *time.Time     `json:"reviewed_at"`
	AdminFeedback      string         `gorm:"type:text" json:"admin_feedback"`
	CreatedAt          time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// SubmissionAttachment references an uploaded photo/file for a submission.
// Uploads are best-effort: a failed upload never blocks submission creation.
type SubmissionAttachment struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SubmissionID uuid.UUID `gorm:"type:uuid;not null;index" json:"submission_id"`
	StoragePath  string    `gorm:"type:varchar(500);not null" json:"storage_path"`
	Filename     string    `gorm:"type:varchar(255);not null" json:"filename"`
	MimeType     string    `gorm:"type:varchar(100)" json:"mime_type"`
	FileSize     int64     `gorm:"default:0" json:"file_size"`
	CreatedAt    time.Time `json:"created_at"`
}
