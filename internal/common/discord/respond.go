package discord

import (
	"github.com/bwmarrin/discordgo"
)

// Responder is the part of *discordgo.Session interaction handlers reply through.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DeferEphemeral acknowledges the interaction with a hidden "thinking" state.
func DeferEphemeral(r Responder, i *discordgo.Interaction) error {
	return r.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}

// FollowUp sends the ephemeral reply to a deferred interaction.
func FollowUp(r Responder, i *discordgo.Interaction, content string) error {
	_, err := r.FollowupMessageCreate(i, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	return err
}

func ShowModal(r Responder, i *discordgo.Interaction, modal *discordgo.InteractionResponseData) error {
	return r.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: modal,
	})
}

// Reply answers with a public channel message.
func Reply(r Responder, i *discordgo.Interaction, content string, components ...discordgo.MessageComponent) error {
	return r.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: components,
		},
	})
}

// ModalValue returns the value of the text input with the given custom id.
func ModalValue(data discordgo.ModalSubmitInteractionData, inputID string) string {
	for _, c := range data.Components {
		var row *discordgo.ActionsRow
		switch v := c.(type) {
		case *discordgo.ActionsRow:
			row = v
		case discordgo.ActionsRow:
			row = &v
		default:
			continue
		}
		for _, inner := range row.Components {
			switch in := inner.(type) {
			case *discordgo.TextInput:
				if in.CustomID == inputID {
					return in.Value
				}
			case discordgo.TextInput:
				if in.CustomID == inputID {
					return in.Value
				}
			}
		}
	}
	return ""
}

// ReplyEphemeral answers with a message only the invoking user sees.
func ReplyEphemeral(r Responder, i *discordgo.Interaction, content string) error {
	return r.InteractionRespond(i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}
