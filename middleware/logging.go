package middleware

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"studioops_go/models"
	"studioops_go/storage"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		fields := logrus.Fields{
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     c.Response().StatusCode(),
			"duration":   time.Since(start).String(),
			"ip":         c.IP(),
			"user_agent": c.Get("User-Agent"),
		}
		if uid, ok := c.Locals("user_id").(string); ok {
			fields["user_id"] = uid
		}
		logrus.WithFields(fields).Info("HTTP Request")
		return err
	}
}

// LogActivity writes an audit row in the background. Failures are logged and
// never reach the caller.
func LogActivity(c *fiber.Ctx, store storage.QueryStore, action, resource, resourceID string, details interface{}) {
	userID := ""
	if claims, err := GetCurrentClaims(c); err == nil {
		userID = claims.UserID
	}

	now := time.Now().UTC()
	meta := map[string]interface{}{
		"details":    details,
		"request_id": c.Get("X-Request-ID", generateRequestID(now)),
		"method":     c.Method(),
		"path":       c.Path(),
		"status":     c.Response().StatusCode(),
	}
	al := models.ActivityLog{
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IPAddress:  c.IP(),
		UserAgent:  c.Get("User-Agent"),
	}
	al.CreatedAt = now
	meta["integrity_hash"] = generateIntegrityHash(al)
	if b, err := json.Marshal(meta); err == nil {
		al.Details = b
	}

	go func(al models.ActivityLog) {
		defer func() {
			if r := recover(); r != nil {
				logrus.WithField("panic", r).Error("panic recovered in LogActivity goroutine")
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		rows := []models.ActivityLog{al}
		if err := store.Insert(ctx, models.TableActivityLogs, &rows); err != nil {
			logrus.WithError(err).Error("Failed to save activity log")
		}
	}(al)
}

// generateIntegrityHash creates a hash for tamper detection
func generateIntegrityHash(al models.ActivityLog) string {
	data := fmt.Sprintf("%s:%s:%s:%s:%s:%s:%s",
		al.UserID, al.Action, al.Resource, al.ResourceID, al.IPAddress, al.UserAgent,
		al.CreatedAt.Format(time.RFC3339))
	return fmt.Sprintf("%x", md5.Sum([]byte(data)))
}

func generateRequestID(now time.Time) string {
	return fmt.Sprintf("req_%d", now.UnixNano())
}

// LogActivityMiddleware records successful mutations under /api.
func LogActivityMiddleware(store storage.QueryStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() == fiber.MethodGet || strings.Contains(c.Path(), "/auth/") {
			return c.Next()
		}

		err := c.Next()

		var action string
		switch c.Method() {
		case fiber.MethodPost:
			action = "CREATE"
		case fiber.MethodPut, fiber.MethodPatch:
			action = "UPDATE"
		case fiber.MethodDelete:
			action = "DELETE"
		default:
			return err
		}

		// /api/<resource>/...
		var resource string
		if parts := strings.Split(strings.Trim(c.Path(), "/"), "/"); len(parts) >= 2 {
			resource = parts[1]
		}

		if err == nil && c.Response().StatusCode() < 400 {
			LogActivity(c, store, action, resource, c.Params("id"), nil)
		}
		return err
	}
}
