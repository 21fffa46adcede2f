package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketClosed     TicketStatus = "closed"
)

func (s TicketStatus) Valid() bool {
	return s == TicketOpen || s == TicketInProgress || s == TicketClosed
}

type TicketReply struct {
	AuthorID   string    `bson:"authorId" json:"authorId"`
	AuthorType UserType  `bson:"authorType" json:"authorType"`
	Message    string    `bson:"message" json:"message"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
}

type Ticket struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	UserName  string             `bson:"userName" json:"userName"`
	Subject   string             `bson:"subject" json:"subject"`
	Message   string             `bson:"message" json:"message"`
	Status    TicketStatus       `bson:"status" json:"status"`
	Replies   []TicketReply      `bson:"replies" json:"replies"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
