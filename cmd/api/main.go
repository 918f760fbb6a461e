package main

import (
	_ "fleetmaint/api/swagger" // swagger docs
	"fleetmaint/internal/database"
	"fleetmaint/internal/handler"
	"fleetmaint/internal/middleware"
	"fleetmaint/internal/repository"
	"fleetmaint/internal/service"
	"fleetmaint/internal/websocket"
	"context"
	"log"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Fleet Maintenance API
// @version         1.0
// @description     Backend for heavy-equipment maintenance tracking: scheduled maintenance, readings, work-order submissions, spare-part inventory and reports.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	// Permission middleware needs direct DB access for role lookups
	middleware.InitPermissionMiddleware(db)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	userRepo := repository.NewUserRepository(db)
	equipoRepo := repository.NewEquipoRepository(db)
	programadoRepo := repository.NewProgramadoRepository(db)
	realizadoRepo := repository.NewRealizadoRepository(db)
	lecturaRepo := repository.NewLecturaRepository(db)
	inventarioRepo := repository.NewInventarioRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	kitRepo := repository.NewKitRepository(db)
	reporteRepo := repository.NewReporteRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	userService := service.NewUserService(userRepo)
	roleService := service.NewRoleService(db)
	auditService := service.NewAuditService(db)
	equipoService := service.NewEquipoService(equipoRepo, auditRepo, txManager)
	mantenimientoService := service.NewMantenimientoService(programadoRepo, realizadoRepo, equipoRepo, inventarioRepo, kitRepo, userRepo, auditRepo, txManager)
	lecturaService := service.NewLecturaService(lecturaRepo, equipoRepo, programadoRepo, userRepo, auditRepo, txManager)
	inventarioService := service.NewInventarioService(inventarioRepo, userRepo, auditRepo, txManager, wsHub)
	submissionService := service.NewSubmissionService(submissionRepo, equipoRepo, programadoRepo, realizadoRepo, inventarioRepo, userRepo, auditRepo, txManager, wsHub)
	kitService := service.NewKitService(kitRepo, auditRepo, txManager)
	reporteService := service.NewReporteService(reporteRepo, programadoRepo, equipoRepo)

	// Seed baseline roles and permissions (idempotent)
	if err := roleService.SeedDefaultRolesAndPermissions(context.Background()); err != nil {
		log.Printf("WARNING: Failed to seed roles and permissions: %v", err)
	}

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleService)
	auditHandler := handler.NewAuditHandler(auditService)
	equipoHandler := handler.NewEquipoHandler(equipoService)
	mantenimientoHandler := handler.NewMantenimientoHandler(mantenimientoService)
	lecturaHandler := handler.NewLecturaHandler(lecturaService)
	inventarioHandler := handler.NewInventarioHandler(inventarioService)
	submissionHandler := handler.NewSubmissionHandler(submissionService)
	kitHandler := handler.NewKitHandler(kitService)
	reporteHandler := handler.NewReporteHandler(reporteService)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:5174"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	root := router.Group("")
	userHandler.RegisterRoutes(root)
	roleHandler.RegisterRoutes(root)
	auditHandler.RegisterRoutes(root)
	equipoHandler.RegisterRoutes(root)
	mantenimientoHandler.RegisterRoutes(root)
	lecturaHandler.RegisterRoutes(root)
	inventarioHandler.RegisterRoutes(root)
	submissionHandler.RegisterRoutes(root)
	kitHandler.RegisterRoutes(root)
	reporteHandler.RegisterRoutes(root)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
