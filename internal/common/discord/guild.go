package discord

import (
	"context"
	stderrors "errors"
	"net/http"

	"community-bot/internal/common/errors"
	"community-bot/internal/membership"

	"github.com/bwmarrin/discordgo"
)

// sessionAPI is the slice of *discordgo.Session the guild adapter uses.
type sessionAPI interface {
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMemberEdit(guildID, userID string, data *discordgo.GuildMemberParams, options ...discordgo.RequestOption) (*discordgo.Member, error)
}

// Guild adapts the Discord REST API to membership.RoleAssigner and
// membership.MemberDirectory.
type Guild struct {
	api sessionAPI
}

var (
	_ membership.RoleAssigner    = (*Guild)(nil)
	_ membership.MemberDirectory = (*Guild)(nil)
)

func NewGuild(api sessionAPI) *Guild {
	return &Guild{api: api}
}

func (g *Guild) GuildExists(ctx context.Context, guildID string) (bool, error) {
	if _, err := g.api.Guild(guildID, discordgo.WithContext(ctx)); err != nil {
		if isUnknown(err, discordgo.ErrCodeUnknownGuild) {
			return false, nil
		}
		return false, errors.NewTransportError("discord", "get guild", err)
	}
	return true, nil
}

// Member returns MEMBER_NOT_FOUND when the user is not in the guild.
func (g *Guild) Member(ctx context.Context, guildID, userID string) (*membership.Member, error) {
	m, err := g.api.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		if isUnknown(err, discordgo.ErrCodeUnknownMember) || isUnknown(err, discordgo.ErrCodeUnknownUser) {
			return nil, errors.NewMemberNotFoundError(guildID, userID)
		}
		return nil, errors.NewTransportError("discord", "get guild member", err)
	}
	return ToMember(guildID, m), nil
}

func (g *Guild) RoleExists(ctx context.Context, guildID, roleID string) (bool, error) {
	roles, err := g.api.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if r.ID == roleID {
			return true, nil
		}
	}
	return false, nil
}

// SetMemberRoles replaces the member's whole role set.
func (g *Guild) SetMemberRoles(ctx context.Context, guildID, userID string, roleIDs []string) error {
	roles := append([]string{}, roleIDs...)
	_, err := g.api.GuildMemberEdit(guildID, userID, &discordgo.GuildMemberParams{Roles: &roles}, discordgo.WithContext(ctx))
	return err
}

func isUnknown(err error, code int) bool {
	var restErr *discordgo.RESTError
	if !stderrors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil && restErr.Message.Code == code {
		return true
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
