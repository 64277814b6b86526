package models

import "time"

type Message struct {
	ID          string    `json:"id"`
	FlatID      *string   `json:"flatId"`
	SenderID    string    `json:"senderId"`
	SenderEmail string    `json:"senderEmail"`
	RecipientID string    `json:"recipientId"`
	Content     string    `json:"content"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"createdAt"`
}
