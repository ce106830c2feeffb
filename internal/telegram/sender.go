// Package telegram adapts the bot API for publishing and owner commands.
package telegram

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"postqueue/internal/domain"
	"postqueue/internal/domain/entity"

	tele "gopkg.in/telebot.v4"
)

// channelRecipient lets @username channel identifiers pass through to
// the API untouched; numeric identifiers go through tele.ChatID.
type channelRecipient string

func (r channelRecipient) Recipient() string { return string(r) }

func recipient(channelID string) tele.Recipient {
	if id, err := strconv.ParseInt(channelID, 10, 64); err == nil {
		return tele.ChatID(id)
	}
	return channelRecipient(channelID)
}

// Sender publishes posts to their channels over the Telegram API.
type Sender struct {
	bot *tele.Bot
}

func NewSender(bot *tele.Bot) *Sender {
	return &Sender{bot: bot}
}

func (s *Sender) Publish(ctx context.Context, post *entity.Post, mediaPath string) error {
	var what interface{}

	file := tele.FromDisk(mediaPath)
	switch post.MediaType {
	case domain.MediaPhoto:
		what = &tele.Photo{File: file, Caption: post.Caption}
	case domain.MediaVideo:
		what = &tele.Video{File: file, Caption: post.Caption}
	case domain.MediaAudio:
		what = &tele.Audio{File: file, Caption: post.Caption}
	case domain.MediaAnimation:
		what = &tele.Animation{File: file, Caption: post.Caption}
	default:
		what = &tele.Document{File: file, Caption: post.Caption, FileName: filepath.Base(mediaPath)}
	}

	if _, err := s.bot.Send(recipient(post.ChannelID), what); err != nil {
		return fmt.Errorf("failed to send %s to %s: %w", post.MediaType, post.ChannelID, err)
	}
	return nil
}

func (s *Sender) NotifyOwner(ctx context.Context, ownerID int64, text string) error {
	if _, err := s.bot.Send(tele.ChatID(ownerID), text); err != nil {
		return fmt.Errorf("failed to notify owner %d: %w", ownerID, err)
	}
	return nil
}
