package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"xupload/pkg/logger"
)

const (
	EventFileUploaded = "file.uploaded"
	EventFileDeleted  = "file.deleted"
)

// FileEvent is fanned out to every open widget of the same user.
type FileEvent struct {
	Type      string        `json:"type"`
	File      FileEventData `json:"file"`
	Timestamp time.Time     `json:"timestamp"`
}

type FileEventData struct {
	Name         string `json:"name,omitempty"`
	Filename     string `json:"filename"`
	Folder       string `json:"folder"`
	URL          string `json:"url,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	SyncStatus   string `json:"syncStatus,omitempty"`
}

// UserPublisher delivers a payload to one user's channel.
type UserPublisher interface {
	PublishToUser(ctx context.Context, userID int64, v any) error
}

// EventPublisher publishes file events. Failures are logged, never returned.
type EventPublisher struct {
	pub UserPublisher
	log *logger.Logger
}

func NewEventPublisher(pub UserPublisher) *EventPublisher {
	return &EventPublisher{pub: pub, log: logger.GetGlobalLogger()}
}

func (p *EventPublisher) Publish(ctx context.Context, userID int64, eventType string, data FileEventData) {
	if p == nil || p.pub == nil {
		return
	}
	event := FileEvent{Type: eventType, File: data, Timestamp: time.Now().UTC()}
	if err := p.pub.PublishToUser(ctx, userID, event); err != nil {
		p.log.Warn(ctx, "publish file event failed",
			zap.String("type", eventType),
			zap.String("filename", data.Filename),
			zap.Error(err))
	}
}
