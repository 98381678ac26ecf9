package routes

import (
	"github.com/arnold/pursue-api/internal/handlers"
	"github.com/arnold/pursue-api/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func Setup(app *fiber.App) {
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", handlers.Register)
	auth.Post("/login", handlers.Login)

	protected := api.Group("/", middleware.Protected())

	protected.Get("/me", handlers.GetMe)
	protected.Put("/me", handlers.UpdateProfile)

	groups := protected.Group("/groups")
	groups.Get("/", handlers.GetGroups)
	groups.Post("/", handlers.CreateGroup)
	groups.Get("/:id", handlers.GetGroup)
	groups.Put("/:id", handlers.UpdateGroup)
	groups.Delete("/:id", handlers.DeleteGroup)

	// Goals live under their group for creation and listing
	groups.Post("/:id/goals", handlers.CreateGoal)

	// Group invites & members
	groups.Post("/:id/invites", handlers.CreateInvite)
	groups.Get("/:id/members", handlers.GetMembers)
	groups.Delete("/:id/members/:userId", handlers.RemoveMember)
	groups.Post("/:id/leave", handlers.LeaveGroup)

	// Member logged-status for the current period
	groups.Get("/:id/status", handlers.GetGroupStatus)

	// Retrospective summaries over a date range
	groups.Get("/:id/report", handlers.GetGroupReport)

	// Group activity feed
	groups.Get("/:id/activity", handlers.GetGroupActivity)

	// Join group via invite code
	protected.Post("/invites/:code/join", handlers.JoinGroup)

	goals := protected.Group("/goals")
	goals.Put("/:id", handlers.UpdateGoal)
	goals.Delete("/:id", handlers.DeleteGoal)
	goals.Post("/:id/progress", handlers.LogProgress)
	goals.Get("/:id/progress/current", handlers.GetCurrentEntry)

	progress := protected.Group("/progress")
	progress.Put("/:id", handlers.ReplaceProgress)
	progress.Delete("/:id", handlers.DeleteProgress)
	progress.Post("/:id/photo", handlers.AttachProgressPhoto)

	// Cross-group view of everyone the caller shares a group with
	protected.Get("/pulse", handlers.GetPulse)

	// Nudges
	protected.Post("/nudges", handlers.SendNudge)

	// Notifications
	notifications := protected.Group("/notifications")
	notifications.Get("/", handlers.GetNotifications)
	notifications.Put("/:id/read", handlers.MarkNotificationRead)
	notifications.Post("/read-all", handlers.MarkAllRead)

	// Device token for push notifications
	protected.Post("/device-token", handlers.RegisterDeviceToken)

	// Progress photo upload
	protected.Post("/upload", handlers.UploadPhoto)

	// WebSocket for real-time group updates
	app.Use("/ws", handlers.WebSocketUpgrade())
	app.Get("/ws/groups/:id", websocket.New(handlers.HandleWebSocket))
}
