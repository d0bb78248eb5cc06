package discord

import (
	"fmt"
	"runtime/debug"

	"community-bot/internal/common/logger"
	"community-bot/internal/membership"

	"github.com/bwmarrin/discordgo"
)

// Intents the bot needs: guild metadata, member updates and presences.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsGuildPresences

// NewSession creates a gateway session. It does not connect; call Open.
func NewSession(token string) (*discordgo.Session, error) {
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = Intents
	s.StateEnabled = true
	s.State.TrackMembers = true
	s.State.TrackPresences = false
	return s, nil
}

// Tag renders a user the way Discord shows it: the bare username for
// migrated accounts, username#1234 for legacy ones.
func Tag(u *discordgo.User) string {
	if u == nil {
		return ""
	}
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

// ToMember converts a discordgo member into the membership snapshot.
func ToMember(guildID string, m *discordgo.Member) *membership.Member {
	member := &membership.Member{
		GuildID: guildID,
		RoleIDs: append([]string{}, m.Roles...),
	}
	if m.User != nil {
		member.UserID = m.User.ID
		member.Username = m.User.Username
		member.Tag = Tag(m.User)
		member.Bot = m.User.Bot
	}
	return member
}

// InteractionUser returns the invoking user for guild and DM interactions.
func InteractionUser(i *discordgo.Interaction) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}

// Recover logs a panic raised by an event handler. Use with defer.
func Recover(log logger.Logger, handler string) {
	if r := recover(); r != nil {
		log.Error("Event handler panicked", map[string]interface{}{
			"handler": handler,
			"panic":   fmt.Sprint(r),
			"stack":   string(debug.Stack()),
		})
	}
}
