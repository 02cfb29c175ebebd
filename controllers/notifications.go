package controllers

import (
	"errors"

	"studioops_go/middleware"
	"studioops_go/services/notifications"
	"studioops_go/utils"

	"github.com/gofiber/fiber/v2"
)

// NotificationController serves the signed-in user's inbox.
type NotificationController struct {
	service *notifications.Service
}

func NewNotificationController(service *notifications.Service) *NotificationController {
	return &NotificationController{service: service}
}

// GetNotifications - GET /api/notifications?read=false
func (nc *NotificationController) GetNotifications(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return err
	}
	rows, err := nc.service.List(c.UserContext(), claims.UserID, c.Query("read") == "false")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch notifications",
		})
	}
	out := make([]utils.NotificationDTO, 0, len(rows))
	unread := 0
	for _, n := range rows {
		out = append(out, utils.ToNotificationDTO(n, nil))
		if !n.Read {
			unread++
		}
	}
	return c.JSON(fiber.Map{"notifications": out, "total": len(out), "unread_count": unread})
}

// MarkAsRead - PATCH /api/notifications/:id/read
func (nc *NotificationController) MarkAsRead(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return err
	}
	if err := nc.service.MarkRead(c.UserContext(), claims.UserID, c.Params("id")); err != nil {
		if errors.Is(err, notifications.ErrNotificationNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Notification not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to mark notification as read",
		})
	}
	return c.JSON(fiber.Map{"message": "Notification marked as read"})
}

// MarkAllAsRead - PATCH /api/notifications/read-all
func (nc *NotificationController) MarkAllAsRead(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return err
	}
	if err := nc.service.MarkAllRead(c.UserContext(), claims.UserID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to mark notifications as read",
		})
	}
	return c.JSON(fiber.Map{"message": "All notifications marked as read"})
}
