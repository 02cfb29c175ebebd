package routes

import (
	"studioops_go/controllers"
	"studioops_go/handlers"
	"studioops_go/middleware"

	"github.com/gofiber/fiber/v2"
)

// Controllers bundles the handlers the router mounts.
type Controllers struct {
	Assignments   *controllers.AssignmentController
	Catalog       *controllers.CatalogController
	Health        *controllers.HealthController
	Notifications *controllers.NotificationController
	WebSocket     *controllers.WebSocketController
	LineWebhook   *handlers.LineWebhookHandler
}

// SetupRoutes configures all application routes
func SetupRoutes(app *fiber.App, ctl Controllers, jwtSecret string) {
	app.Get("/health", ctl.Health.GetHealthStatus)
	if ctl.LineWebhook != nil {
		app.Post("/line/webhook", ctl.LineWebhook.Handle)
	}

	api := app.Group("/api", middleware.JWTMiddleware(jwtSecret))

	catalog := api.Group("/catalog")
	catalog.Get("/packages", ctl.Catalog.GetPackages)
	catalog.Get("/class-types", ctl.Catalog.GetClassTypes)
	catalog.Get("/templates", ctl.Catalog.GetTemplates)

	assignments := api.Group("/assignments")
	assignments.Get("/", ctl.Assignments.List)
	assignments.Get("/export", ctl.Assignments.Export)
	assignments.Post("/preview", middleware.RequireScheduler(), ctl.Assignments.Preview)
	assignments.Post("/validate", middleware.RequireScheduler(), ctl.Assignments.Validate)
	assignments.Post("/conflicts", middleware.RequireScheduler(), ctl.Assignments.CheckConflicts)
	assignments.Post("/bulk-delete", middleware.RequireScheduler(), ctl.Assignments.BulkDelete)
	assignments.Post("/export/archive", middleware.RequireScheduler(), ctl.Assignments.Archive)
	assignments.Post("/", middleware.RequireScheduler(), ctl.Assignments.Create)
	assignments.Patch("/:id/respond", middleware.RequireRole(middleware.RoleInstructor), ctl.Assignments.Respond)
	assignments.Patch("/:id/status", middleware.RequireScheduler(), ctl.Assignments.UpdateClassStatus)
	assignments.Patch("/:id/payment", middleware.RequireScheduler(), ctl.Assignments.UpdatePaymentStatus)
	assignments.Delete("/:id", middleware.RequireScheduler(), ctl.Assignments.Delete)

	notifs := api.Group("/notifications")
	notifs.Get("/", ctl.Notifications.GetNotifications)
	notifs.Patch("/read-all", ctl.Notifications.MarkAllAsRead)
	notifs.Patch("/:id/read", ctl.Notifications.MarkAsRead)

	api.Get("/ws/stats", middleware.RequireScheduler(), ctl.WebSocket.GetWebSocketStats)

	// WebSocket connection endpoint; the token travels in the query string.
	app.Use("/ws", ctl.WebSocket.UpgradeGuard)
	app.Get("/ws", ctl.WebSocket.WebSocketHandler())
}
