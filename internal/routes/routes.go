package routes

import (
	"github.com/gin-gonic/gin"

	"hospital-ops-server/internal/config"
	"hospital-ops-server/internal/handlers"
	"hospital-ops-server/internal/middleware"
	"hospital-ops-server/internal/models"
	"hospital-ops-server/internal/utils"
)

// Handlers bundles the HTTP handlers the route table dispatches to.
type Handlers struct {
	Appointments  *handlers.AppointmentHandler
	Users         *handlers.UserHandler
	Notifications *handlers.NotificationHandler
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, cfg *config.Config, h Handlers) {
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		userRoutes := private.Group("/users")
		{
			userRoutes.GET("/doctors", h.Users.GetDoctors)
		}

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient, models.RoleAdmin, models.RoleSuperAdmin), h.Appointments.CreateAppointment)
			appointmentRoutes.GET("", h.Appointments.GetAppointments)

			// fixed paths before /:id
			appointmentRoutes.GET("/stats", h.Appointments.GetAppointmentStats)
			appointmentRoutes.GET("/slots/:doctorId", h.Appointments.GetAvailableSlots)
			appointmentRoutes.POST("/bulk/status", middleware.RoleAuthMiddleware(models.RoleAdmin, models.RoleSuperAdmin), h.Appointments.BulkUpdateStatus)

			appointmentRoutes.GET("/:id", h.Appointments.GetAppointmentByID)
			appointmentRoutes.PUT("/:id", h.Appointments.UpdateAppointment)
			appointmentRoutes.PATCH("/:id/status", h.Appointments.UpdateAppointmentStatus)
			appointmentRoutes.POST("/:id/cancel", h.Appointments.CancelAppointment)
			appointmentRoutes.POST("/:id/payment", h.Appointments.RecordPayment)
		}

		notificationRoutes := private.Group("/notifications")
		{
			notificationRoutes.GET("", h.Notifications.GetNotifications)
			notificationRoutes.PATCH("/:id/read", h.Notifications.MarkNotificationAsRead)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		utils.Success(c, "OK", gin.H{"status": "UP"})
	})
}
