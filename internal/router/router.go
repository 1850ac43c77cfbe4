package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/tutorhub/class-engine/internal/config"
	"github.com/tutorhub/class-engine/internal/handler"
	"github.com/tutorhub/class-engine/internal/middleware"
	"github.com/tutorhub/class-engine/internal/model"
	"github.com/tutorhub/class-engine/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Class        *handler.ClassHandler
	Session      *handler.SessionHandler
	Availability *handler.AvailabilityHandler
	Holiday      *handler.HolidayHandler
	Makeup       *handler.MakeupHandler
	Setting      *handler.SettingHandler
	WS           *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	verifier *middleware.TokenVerifier,
	limiter *middleware.RateLimiter,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// ─── 1. WebSocket Group (Staff WS Auth) ────────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStaffWSAuth(verifier))
	{
		ws.GET("/branches/:id/events",
			middleware.RequirePermission(model.PermissionClassesRead),
			middleware.RequireBranchParam("id"),
			handlers.WS.BranchEvents,
		)
	}

	// ─── 2. Admin Group (JWT + RBAC) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireStaffJWT(verifier), limiter.Middleware(), middleware.NoStore())
	{
		read := middleware.RequirePermission(model.PermissionClassesRead)
		writeClasses := middleware.RequirePermission(model.PermissionClassesWrite)
		writeSchedule := middleware.RequirePermission(model.PermissionScheduleWrite)

		// Classes
		classes := adminAPI.Group("/classes")
		{
			classes.POST("", writeClasses, handlers.Class.CreateClass)
			classes.POST("/regenerate", writeSchedule, handlers.Class.RegenerateAll)
			classes.GET("/:id", read, handlers.Class.GetClass)
			classes.PUT("/:id", writeClasses, handlers.Class.UpdateClass)
			classes.POST("/:id/status", writeClasses, handlers.Class.TransitionStatus)
			classes.POST("/:id/end", writeClasses, handlers.Class.EndClass)
			classes.POST("/:id/sessions/generate", writeSchedule, handlers.Class.GenerateSessions)
			classes.GET("/:id/sessions", read, handlers.Class.ListSessions)
			classes.GET("/:id/next-available-date", read, handlers.Class.NextAvailableDate)
			classes.GET("/:id/students/:student_id/summary", read, handlers.Class.StudentSummary)
		}

		// Availability
		availability := adminAPI.Group("/availability", read)
		{
			availability.POST("/rooms", handlers.Availability.CheckRoom)
			availability.POST("/slots", handlers.Availability.CheckSlot)
		}

		// Sessions
		sessions := adminAPI.Group("/sessions")
		{
			sessions.POST("/:id/reschedule", writeSchedule, handlers.Session.Reschedule)
			sessions.GET("/:id/reschedules", read, handlers.Session.ListReschedules)
			sessions.PUT("/:id/attendance",
				middleware.RequirePermission(model.PermissionAttendanceWrite),
				handlers.Session.RecordAttendance,
			)
		}

		// Branch day board
		adminAPI.GET("/branches/:id/board", read, middleware.RequireBranchParam("id"), handlers.WS.DayBoard)

		// Holidays
		holidays := adminAPI.Group("/holidays")
		{
			writeHolidays := middleware.RequirePermission(model.PermissionHolidaysWrite)
			holidays.GET("", read, handlers.Holiday.ListHolidays)
			holidays.POST("", writeHolidays, handlers.Holiday.CreateHoliday)
			holidays.DELETE("/:id", writeHolidays, handlers.Holiday.DeleteHoliday)
		}

		// Makeups
		makeups := adminAPI.Group("/makeups")
		{
			readMakeups := middleware.RequirePermission(model.PermissionMakeupsRead)
			writeMakeups := middleware.RequireAnyPermission(model.PermissionMakeupsWrite, model.PermissionMakeupsOverride)
			makeups.GET("", readMakeups, handlers.Makeup.ListMakeups)
			makeups.POST("", writeMakeups, handlers.Makeup.CreateMakeup)
			makeups.GET("/:id", readMakeups, handlers.Makeup.GetMakeup)
			makeups.GET("/:id/audit", readMakeups, handlers.Makeup.AuditLog)
			makeups.POST("/:id/schedule", writeMakeups, handlers.Makeup.ScheduleMakeup)
			makeups.POST("/:id/attendance", writeMakeups, handlers.Makeup.RecordAttendance)
			makeups.POST("/:id/revert",
				middleware.RequirePermission(model.PermissionMakeupsOverride),
				handlers.Makeup.RevertAttendance,
			)
			makeups.POST("/:id/cancel", writeMakeups, handlers.Makeup.CancelMakeup)
		}

		// Settings
		settings := adminAPI.Group("/settings")
		{
			settings.GET("/makeup-policy",
				middleware.RequirePermission(model.PermissionSettingsRead),
				middleware.CacheControl(time.Minute),
				handlers.Setting.GetMakeupPolicy,
			)
		}
	}

	return router
}
