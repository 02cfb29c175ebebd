package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"studioops_go/models"
	"studioops_go/storage"
	"studioops_go/utils"

	"github.com/go-redis/redis/v8"
)

// Queued is the payload pushed onto the Redis list. One item can address
// many users. If Redis is down we fall back to a direct insert; the table is
// the source of truth.
type Queued struct {
	UserIDs   []string  `json:"user_ids"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Channels  []string  `json:"channels,omitempty"`
	Data      any       `json:"data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

const redisListKey = "studioops:notifications:queue"

// Service exposes notification creation with optional Redis queue
// If Redis disabled/unavailable, performs direct insert.
type Service struct {
	store    storage.QueryStore
	redis    *redis.Client
	useRedis bool
	wsHub    WSHub // WebSocket hub interface
}

// WSHub interface for WebSocket broadcasting
type WSHub interface {
	BroadcastToUser(userID string, message interface{})
}

// defaultHub lets services created elsewhere (cron jobs) broadcast over the
// same WebSocket hub without wiring each instance.
var defaultHub WSHub

// SetDefaultWSHub sets the package-level default WebSocket hub used by new Service instances.
func SetDefaultWSHub(h WSHub) {
	defaultHub = h
}

func NewService(store storage.QueryStore, client *redis.Client, useRedis bool) *Service {
	return &Service{
		store:    store,
		redis:    client,
		useRedis: useRedis && client != nil,
		wsHub:    defaultHub,
	}
}

// SetWebSocketHub sets the WebSocket hub for real-time notifications
func (s *Service) SetWebSocketHub(hub WSHub) {
	s.wsHub = hub
}

// normalizeChannels keeps only allowed values and ensures default channel
func normalizeChannels(in []string) []string {
	if len(in) == 0 {
		return []string{"normal"}
	}
	allowed := map[string]struct{}{"normal": {}, "popup": {}, "line": {}}
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, ch := range in {
		if _, ok := allowed[ch]; ok {
			if _, dup := seen[ch]; !dup {
				out = append(out, ch)
				seen[ch] = struct{}{}
			}
		}
	}
	if len(out) == 0 {
		out = []string{"normal"}
	}
	return out
}

// Message builds a queue item. data is an optional deep-link payload.
func Message(title, message, typ string, data any, channels ...string) Queued {
	return Queued{Title: title, Message: message, Type: typ, Channels: normalizeChannels(channels), Data: data}
}

// EnqueueOrCreate stores notifications using Redis queue if enabled, else direct insert.
func (s *Service) EnqueueOrCreate(ctx context.Context, userIDs []string, n Queued) error {
	if len(userIDs) == 0 {
		return errors.New("no user ids")
	}
	n.UserIDs = userIDs
	n.CreatedAt = time.Now().UTC()

	if s.useRedis {
		b, err := json.Marshal(n)
		if err != nil {
			return err
		}
		if err = s.redis.RPush(ctx, redisListKey, b).Err(); err == nil {
			return nil // queued successfully
		}
		log.Printf("[notif] Redis queue failed, falling back to direct insert: %v", err)
	}

	// fallback: direct insert
	return s.createDirect(ctx, userIDs, n)
}

// createDirect writes through the store (used by worker or fallback).
func (s *Service) createDirect(ctx context.Context, userIDs []string, n Queued) error {
	if len(userIDs) == 0 {
		return nil
	}
	// Always set channels JSON, defaulting to ["normal"] to avoid DB default on JSON which MySQL forbids
	channelsJSON, err := json.Marshal(normalizeChannels(n.Channels))
	if err != nil {
		channelsJSON = []byte(`["normal"]`)
	}
	var dataJSON []byte
	if n.Data != nil {
		if b, err2 := json.Marshal(n.Data); err2 == nil {
			dataJSON = b
		}
	}
	notifs := make([]models.Notification, 0, len(userIDs))
	for _, uid := range userIDs {
		notifs = append(notifs, models.Notification{
			UserID:   uid,
			Title:    n.Title,
			Message:  n.Message,
			Type:     n.Type,
			Read:     false,
			Channels: channelsJSON,
			Data:     dataJSON,
		})
	}

	if err := s.store.Insert(ctx, models.TableNotifications, &notifs); err != nil {
		return err
	}

	// Send WebSocket notifications if hub is available
	if s.wsHub != nil {
		for _, notif := range notifs {
			s.wsHub.BroadcastToUser(notif.UserID, map[string]interface{}{
				"type": "notification",
				"data": utils.ToNotificationDTO(notif, nil),
			})
		}
	}
	return nil
}

// StartWorker starts a background worker polling Redis queue and flushing to the store
func (s *Service) StartWorker(stop <-chan struct{}) {
	if !s.useRedis {
		log.Println("[notif] Redis notifications disabled; worker not started")
		return
	}
	go func() {
		log.Println("[notif] Redis notification worker started")
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		ctx := context.Background()
		batchSize := 200
		for {
			select {
			case <-stop:
				log.Println("[notif] Worker stopping")
				return
			case <-ticker.C:
				s.flushBatch(ctx, batchSize)
			}
		}
	}()
}

// flushBatch polls redis queue and processes notifications in batches.
func (s *Service) flushBatch(ctx context.Context, batchSize int) {
	if s.redis == nil {
		return
	}
	// LRange + LTrim is safe enough for moderate concurrency
	for i := 0; i < 5; i++ { // up to 5 sub-batches per tick
		vals, err := s.redis.LRange(ctx, redisListKey, 0, int64(batchSize-1)).Result()
		if err != nil || len(vals) == 0 {
			return
		}
		// Trim immediately to avoid duplicates (best-effort)
		if err = s.redis.LTrim(ctx, redisListKey, int64(len(vals)), -1).Err(); err != nil {
			log.Printf("[notif] LTrim failed: %v", err)
		}
		for _, raw := range vals {
			var q Queued
			if err := json.Unmarshal([]byte(raw), &q); err != nil {
				continue
			}
			if err := s.createDirect(ctx, q.UserIDs, q); err != nil {
				log.Printf("[notif] insert failed: %v", err)
			}
		}
		if len(vals) < batchSize {
			return
		}
	}
}

// ErrNotificationNotFound is returned when the id does not belong to the user.
var ErrNotificationNotFound = errors.New("notification not found")

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	filters := []storage.Filter{storage.Eq("user_id", userID)}
	if unreadOnly {
		filters = append(filters, storage.Eq("read", false))
	}
	var rows []models.Notification
	if err := s.store.Select(ctx, models.TableNotifications, &rows, filters, storage.Desc("created_at")); err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkRead marks one of the user's notifications as read.
func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	var rows []models.Notification
	filters := []storage.Filter{storage.Eq("id", id), storage.Eq("user_id", userID)}
	if err := s.store.Select(ctx, models.TableNotifications, &rows, filters); err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrNotificationNotFound
	}
	return s.store.Update(ctx, models.TableNotifications, filters, map[string]interface{}{"read": true, "read_at": time.Now().UTC()})
}

// MarkAllRead marks every unread notification of the user as read.
func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	return s.store.Update(ctx, models.TableNotifications,
		[]storage.Filter{storage.Eq("user_id", userID), storage.Eq("read", false)},
		map[string]interface{}{"read": true, "read_at": time.Now().UTC()})
}
