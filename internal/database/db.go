package database

import (
	"log"

	"fleetmaint/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Auto-migrate core models
	err = db.AutoMigrate(
		&model.User{},
		&model.RefreshToken{},
		&model.Role{},
		&model.Permission{},
		&model.Equipo{},
		&model.MantenimientoProgramado{},
		&model.MantenimientoRealizado{},
		&model.ActualizacionHorasKm{},
		&model.MaintenanceSubmission{},
		&model.SubmissionAttachment{},
		&model.Inventario{},
		&model.MovimientoInventario{},
		&model.PlanIntervalo{},
		&model.KitMantenimiento{},
		&model.KitPieza{},
		&model.AuditLog{},
	)
	if err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}
