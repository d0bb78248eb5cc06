// Package discordtest provides interaction fixtures and a recording responder.
package discordtest

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Responder records every interaction response and follow-up.
type Responder struct {
	mu        sync.Mutex
	Responses []*discordgo.InteractionResponse
	FollowUps []*discordgo.WebhookParams

	RespondErr error
}

func (r *Responder) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Responses = append(r.Responses, resp)
	return r.RespondErr
}

func (r *Responder) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, data *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.FollowUps = append(r.FollowUps, data)
	return &discordgo.Message{Content: data.Content}, nil
}

// LastFollowUp returns the content of the most recent follow-up, or "".
func (r *Responder) LastFollowUp() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.FollowUps) == 0 {
		return ""
	}
	return r.FollowUps[len(r.FollowUps)-1].Content
}

func member(userID, username string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: userID, Username: username, Discriminator: "0"}}
}

// Command builds a slash command interaction issued by a guild member.
func Command(guildID, userID, username, name string, permissions int64) *discordgo.InteractionCreate {
	m := member(userID, username)
	m.Permissions = permissions
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:      "interaction-" + name,
		Type:    discordgo.InteractionApplicationCommand,
		GuildID: guildID,
		Member:  m,
		Data:    discordgo.ApplicationCommandInteractionData{Name: name},
	}}
}

// Button builds a component interaction for the given custom id.
func Button(guildID, userID, username, customID string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:      "interaction-" + customID,
		Type:    discordgo.InteractionMessageComponent,
		GuildID: guildID,
		Member:  member(userID, username),
		Data:    discordgo.MessageComponentInteractionData{CustomID: customID, ComponentType: discordgo.ButtonComponent},
	}}
}

// ModalSubmit builds a modal submission carrying a single text input.
func ModalSubmit(guildID, userID, username, modalID, inputID, value string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		ID:      "interaction-" + modalID,
		Type:    discordgo.InteractionModalSubmit,
		GuildID: guildID,
		Member:  member(userID, username),
		Data: discordgo.ModalSubmitInteractionData{
			CustomID: modalID,
			Components: []discordgo.MessageComponent{
				&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					&discordgo.TextInput{CustomID: inputID, Value: value},
				}},
			},
		},
	}}
}
