package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminInbox is the recipient id shared by every admin.
const AdminInbox = "admin"

type NotificationStatus string

const (
	NotificationUnread NotificationStatus = "unread"
	NotificationRead   NotificationStatus = "read"
)

type Notification struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RecipientID string             `bson:"recipientId" json:"recipientId"`
	Type        string             `bson:"type" json:"type"` // icon/routing tag only
	Title       string             `bson:"title" json:"title"`
	Message     string             `bson:"message" json:"message"`
	Link        string             `bson:"link,omitempty" json:"link,omitempty"`
	Status      NotificationStatus `bson:"status" json:"status"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	ReadAt      *time.Time         `bson:"readAt,omitempty" json:"readAt,omitempty"`
}
