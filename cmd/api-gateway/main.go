package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/college-attendance-api/api/swagger"
	"github.com/noah-isme/college-attendance-api/internal/authz"
	"github.com/noah-isme/college-attendance-api/internal/handler"
	"github.com/noah-isme/college-attendance-api/internal/middleware"
	"github.com/noah-isme/college-attendance-api/internal/repository"
	"github.com/noah-isme/college-attendance-api/internal/service"
	"github.com/noah-isme/college-attendance-api/pkg/cache"
	"github.com/noah-isme/college-attendance-api/pkg/config"
	"github.com/noah-isme/college-attendance-api/pkg/database"
	"github.com/noah-isme/college-attendance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/college-attendance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/college-attendance-api/pkg/middleware/requestid"
)

// @title College Attendance API
// @version 0.1.0
// @description Identity, rosters, enrollments and the attendance register
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, reporting cache disabled", "error", err)
		redisClient = nil
	}

	accountRepo := repository.NewAccountRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	gate := authz.NewGate(courseRepo, studentRepo)
	validate := validator.New()

	authSvc := service.NewAuthService(accountRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	accountSvc := service.NewAccountService(accountRepo, gate, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, accountRepo, gate, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, accountRepo, gate, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, studentRepo, courseRepo, gate, validate, logr)
	reportSvc := service.NewReportService(attendanceRepo, dashboardRepo, cacheRepo, cfg.Reports.StatsCacheTTL, gate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, gate, reportSvc, validate, logr)
	metricsSvc := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authSvc)
	accountHandler := handler.NewAccountHandler(accountSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	courseHandler := handler.NewCourseHandler(courseSvc, enrollmentSvc, attendanceSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc, attendanceSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	reportHandler := handler.NewReportHandler(reportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))
	{
		protected.GET("/faculty", accountHandler.ListFaculty)
		protected.POST("/faculty", accountHandler.CreateFaculty)

		protected.GET("/students", studentHandler.List)
		protected.POST("/students", studentHandler.Create)
		protected.GET("/students/:id", studentHandler.Get)
		protected.GET("/students/:id/enrollments", enrollmentHandler.ListForStudent)
		protected.GET("/students/:id/attendance", enrollmentHandler.HistoryForStudent)

		protected.GET("/courses", courseHandler.List)
		protected.POST("/courses", courseHandler.Create)
		protected.GET("/courses/:id", courseHandler.Get)
		protected.GET("/courses/:id/enrollments", courseHandler.Roster)
		protected.GET("/courses/:id/attendance", courseHandler.Sheet)

		protected.GET("/enrollments", enrollmentHandler.List)
		protected.POST("/enrollments", enrollmentHandler.Create)

		protected.POST("/attendance", attendanceHandler.Mark)

		protected.GET("/reports/attendance", reportHandler.Stats)
		protected.GET("/reports/attendance/export", reportHandler.ExportStats)
		protected.GET("/reports/courses/:id/attendance/export", reportHandler.ExportSheet)
		protected.GET("/reports/dashboard", reportHandler.Dashboard)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
