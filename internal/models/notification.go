package models

import (
	"encoding/json"
	"fmt"
)

type NotificationType string

const (
	NotificationInfo  NotificationType = "info"
	NotificationError NotificationType = "error"
)

type NotificationCategory string

const NotificationFile NotificationCategory = "file"

// Notification is a pushed event envelope.
type Notification struct {
	Type     NotificationType     `json:"type"`
	Category NotificationCategory `json:"category,omitempty"`
	Message  string               `json:"message"`
}

// IsError reports whether the notification should be shown as an error. Any other type is informational.
func (n Notification) IsError() bool { return n.Type == NotificationError }

// AffectsFiles reports whether the file list is stale after this event.
func (n Notification) AffectsFiles() bool { return n.Category == NotificationFile }

// ParseNotification decodes a pushed message.
func ParseNotification(data []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return Notification{}, fmt.Errorf("failed to decode notification: %w", err)
	}
	return n, nil
}
