package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"flatfinder/internal/ids"
	"flatfinder/internal/models"
	"flatfinder/internal/repository"
	"flatfinder/internal/security"
)

type MessageService struct {
	messages repository.MessageRepository
	flats    repository.FlatRepository
	users    repository.UserRepository
	log      zerolog.Logger
}

func NewMessageService(messages repository.MessageRepository, flats repository.FlatRepository, users repository.UserRepository, log zerolog.Logger) *MessageService {
	return &MessageService{messages: messages, flats: flats, users: users, log: log}
}

type Inbox struct {
	Messages []models.Message
	Unread   int
}

func (s *MessageService) Inbox(ctx context.Context, actor security.Identity, page Page) (Inbox, error) {
	msgs, err := s.messages.ListByRecipient(ctx, actor.UserID, page.Limit(), page.Offset())
	if err != nil {
		return Inbox{}, err
	}
	unread, err := s.messages.CountUnread(ctx, actor.UserID)
	if err != nil {
		return Inbox{}, err
	}
	if err := s.currentSenderEmails(ctx, msgs); err != nil {
		return Inbox{}, err
	}
	return Inbox{Messages: msgs, Unread: unread}, nil
}

func (s *MessageService) Sent(ctx context.Context, actor security.Identity, page Page) ([]models.Message, error) {
	msgs, err := s.messages.ListBySender(ctx, actor.UserID, page.Limit(), page.Offset())
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		msgs[i].SenderEmail = actor.Email
	}
	return msgs, nil
}

// currentSenderEmails replaces the email stored at send time with the
// sender's current one. Senders that no longer exist keep the stored value.
func (s *MessageService) currentSenderEmails(ctx context.Context, msgs []models.Message) error {
	emails := make(map[string]string)
	for i, msg := range msgs {
		email, seen := emails[msg.SenderID]
		if !seen {
			user, err := s.users.GetByID(ctx, msg.SenderID)
			switch {
			case errors.Is(err, repository.ErrUserNotFound):
				email = msg.SenderEmail
			case err != nil:
				return err
			default:
				email = user.Email
			}
			emails[msg.SenderID] = email
		}
		msgs[i].SenderEmail = email
	}
	return nil
}

type SendMessageInput struct {
	FlatID      string `json:"flatId" validate:"required"`
	Content     string `json:"content" validate:"required,max=2000"`
	RecipientID string `json:"recipientId"`
}

// Send addresses the flat owner unless a recipient is named, which is how
// owners reply to enquiries.
func (s *MessageService) Send(ctx context.Context, actor security.Identity, input SendMessageInput) (models.Message, error) {
	input.Content = strings.TrimSpace(input.Content)
	if err := validateStruct("Invalid message.", input, nil); err != nil {
		return models.Message{}, err
	}

	flat, err := s.flats.GetByID(ctx, input.FlatID)
	if err != nil {
		return models.Message{}, err
	}

	recipientID := input.RecipientID
	if recipientID == "" {
		recipientID = flat.OwnerID
	}
	if recipientID == actor.UserID {
		return models.Message{}, invalid("Invalid message.", "recipientId", "cannot be yourself")
	}
	if _, err := s.users.GetByID(ctx, recipientID); err != nil {
		return models.Message{}, err
	}

	msg := models.Message{
		ID:          ids.New(),
		FlatID:      &flat.ID,
		SenderID:    actor.UserID,
		SenderEmail: actor.Email,
		RecipientID: recipientID,
		Content:     input.Content,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

func (s *MessageService) MarkRead(ctx context.Context, actor security.Identity, id string) (models.Message, error) {
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return models.Message{}, err
	}
	if msg.RecipientID != actor.UserID {
		return models.Message{}, ErrForbidden
	}
	if !msg.Read {
		if err := s.messages.MarkRead(ctx, id); err != nil {
			return models.Message{}, err
		}
		msg.Read = true
	}
	msgs := []models.Message{msg}
	if err := s.currentSenderEmails(ctx, msgs); err != nil {
		return models.Message{}, err
	}
	return msgs[0], nil
}

func (s *MessageService) Delete(ctx context.Context, actor security.Identity, id string) error {
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin && msg.SenderID != actor.UserID && msg.RecipientID != actor.UserID {
		return ErrForbidden
	}
	return s.messages.Delete(ctx, id)
}
