package verifyprompt

import (
	"fmt"

	"community-bot/internal/common/discord"
	"community-bot/internal/common/logger"
	"community-bot/pkg/registry"

	"github.com/bwmarrin/discordgo"
)

const (
	HandlerName = "verify-prompt"

	ReplyAdminOnly = "Only administrators can use this command."
)

// Handler opens the verification modal and posts the verify channel prompt.
type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", HandlerName, err)
	}
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"handler": HandlerName}),
	}, nil
}

// Register wires the prompt handlers into router.
func (h *Handler) Register(router *discord.Router) {
	router.
		Command(registry.CommandVerify, h.ShowModal).
		Component(registry.VerifyButtonID, h.ShowModal).
		Command(registry.CommandInitChannel, h.InitChannel)
}

// ShowModal answers /verify and the "Verify me" button.
func (h *Handler) ShowModal(r discord.Responder, i *discordgo.InteractionCreate) {
	if err := discord.ShowModal(r, i.Interaction, registry.VerifyModal()); err != nil {
		h.logger.Error("Failed to show verify modal", map[string]interface{}{
			"interactionId": i.ID,
			"error":         err.Error(),
		})
	}
}

// InitChannel posts the verify message with its button in the current
// channel. Discord hides the command from non-admins already; the
// permission is checked again here.
func (h *Handler) InitChannel(r discord.Responder, i *discordgo.InteractionCreate) {
	if !isAdmin(i) {
		h.logger.Warn("Rejected initchannel from non-admin", map[string]interface{}{"userId": userID(i)})
		if err := discord.ReplyEphemeral(r, i.Interaction, ReplyAdminOnly); err != nil {
			h.logger.Error("Failed to reply", map[string]interface{}{"error": err.Error()})
		}
		return
	}

	if err := discord.Reply(r, i.Interaction, h.config.VerifyMessage, registry.VerifyButtonRow()); err != nil {
		h.logger.Error("Failed to post verify message", map[string]interface{}{
			"channelId": i.ChannelID,
			"error":     err.Error(),
		})
		return
	}
	h.logger.Info("Verify channel initialized", map[string]interface{}{
		"channelId": i.ChannelID,
		"userId":    userID(i),
	})
}

func isAdmin(i *discordgo.InteractionCreate) bool {
	return i.Member != nil && i.Member.Permissions&discordgo.PermissionAdministrator != 0
}

func userID(i *discordgo.InteractionCreate) string {
	if u := discord.InteractionUser(i.Interaction); u != nil {
		return u.ID
	}
	return ""
}
