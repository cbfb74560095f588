package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/voyora/messaging-service/internal/handlers"
	"github.com/voyora/messaging-service/internal/ws"
)

// Register wires every HTTP endpoint and the websocket upgrade behind
// the auth middleware.
func Register(app *fiber.App, auth fiber.Handler, chats *handlers.ChatHandler, groups *handlers.GroupHandler, notifs *handlers.NotificationHandler, hub *ws.Hub) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1", auth)

	chat := api.Group("/chats")
	chat.Post("/", chats.CreateChat)
	chat.Get("/", chats.ListChats)
	chat.Post("/:id/messages", chats.SendMessage)
	chat.Get("/:id/messages", chats.ListMessages)
	chat.Post("/:id/messages/:mid/seen", chats.MarkSeen)

	grp := api.Group("/groups")
	grp.Post("/", groups.CreateGroup)
	grp.Get("/", groups.ListGroups)
	grp.Get("/:id", groups.GetGroup)
	grp.Patch("/:id", groups.UpdateGroup)
	grp.Post("/:id/members", groups.AddMembers)
	grp.Delete("/:id/members/:uid", groups.RemoveMember)
	grp.Post("/:id/messages", groups.SendMessage)
	grp.Get("/:id/messages", groups.ListMessages)
	grp.Post("/:id/read", groups.MarkRead)

	ntf := api.Group("/notifications")
	ntf.Get("/", notifs.List)
	ntf.Post("/", notifs.Record)
	ntf.Post("/read", notifs.MarkAllRead)

	app.Use("/ws", auth, func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(hub.HandleConn))
}
