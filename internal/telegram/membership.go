package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/yordamchi/pkg/gate"
)

// Membership answers gate checks with getChatMember on one channel.
type Membership struct {
	api     API
	channel string
}

// NewMembership returns an oracle for channel, given as @username or numeric id.
func NewMembership(api API, channel string) *Membership {
	return &Membership{api: api, channel: strings.TrimSpace(channel)}
}

// Check reports whether userID belongs to the channel. The Bot API call does not take
// a context, so a cancelled ctx abandons it and yields an error.
func (m *Membership) Check(ctx context.Context, userID int64) (gate.Status, error) {
	cfg := tgbotapi.GetChatMemberConfig{ChatConfigWithUser: m.chatUser(userID)}

	type answer struct {
		member tgbotapi.ChatMember
		err    error
	}
	done := make(chan answer, 1)
	go func() {
		member, err := m.api.GetChatMember(cfg)
		done <- answer{member: member, err: err}
	}()

	select {
	case <-ctx.Done():
		return gate.StatusUnknown, ctx.Err()
	case a := <-done:
		if a.err != nil {
			return gate.StatusUnknown, fmt.Errorf("get chat member: %w", a.err)
		}
		return memberStatus(a.member), nil
	}
}

func (m *Membership) chatUser(userID int64) tgbotapi.ChatConfigWithUser {
	cfg := tgbotapi.ChatConfigWithUser{UserID: userID}
	if id, err := strconv.ParseInt(m.channel, 10, 64); err == nil {
		cfg.ChatID = id
	} else {
		cfg.SuperGroupUsername = m.channel
	}
	return cfg
}

func memberStatus(member tgbotapi.ChatMember) gate.Status {
	switch member.Status {
	case "creator", "administrator", "member":
		return gate.StatusMember
	case "restricted":
		if member.IsMember {
			return gate.StatusMember
		}
		return gate.StatusNotMember
	case "left", "kicked":
		return gate.StatusNotMember
	default:
		return gate.StatusUnknown
	}
}
