package model

import "time"

type NotificationModel struct {
	ID         string    `json:"id" bson:"_id"`
	ReceiverID string    `json:"receiver_id" bson:"receiver_id"`
	SenderID   string    `json:"sender_id" bson:"sender_id"`
	Kind       string    `json:"kind" bson:"kind"`
	Message    string    `json:"message" bson:"message"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}
