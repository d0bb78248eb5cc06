package discord

import (
	"github.com/bwmarrin/discordgo"

	"community-bot/internal/common/logger"
)

// InteractionHandler answers one interaction.
type InteractionHandler func(r Responder, i *discordgo.InteractionCreate)

// Router dispatches INTERACTION_CREATE events by slash command name,
// component custom id or modal custom id.
type Router struct {
	commands   map[string]InteractionHandler
	components map[string]InteractionHandler
	modals     map[string]InteractionHandler
	logger     logger.Logger
}

func NewRouter(log logger.Logger) *Router {
	return &Router{
		commands:   make(map[string]InteractionHandler),
		components: make(map[string]InteractionHandler),
		modals:     make(map[string]InteractionHandler),
		logger:     log.WithFields(map[string]interface{}{"component": "interaction-router"}),
	}
}

func (rt *Router) Command(name string, h InteractionHandler) *Router {
	rt.commands[name] = h
	return rt
}

func (rt *Router) Component(customID string, h InteractionHandler) *Router {
	rt.components[customID] = h
	return rt
}

func (rt *Router) Modal(customID string, h InteractionHandler) *Router {
	rt.modals[customID] = h
	return rt
}

// Handle is registered with session.AddHandler.
func (rt *Router) Handle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	rt.Dispatch(s, i)
}

// Dispatch routes an interaction and reports whether a handler matched.
func (rt *Router) Dispatch(r Responder, i *discordgo.InteractionCreate) (handled bool) {
	var (
		h   InteractionHandler
		key string
	)
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		key = i.ApplicationCommandData().Name
		h = rt.commands[key]
	case discordgo.InteractionMessageComponent:
		key = i.MessageComponentData().CustomID
		h = rt.components[key]
	case discordgo.InteractionModalSubmit:
		key = i.ModalSubmitData().CustomID
		h = rt.modals[key]
	default:
		return false
	}
	if h == nil {
		rt.logger.Debug("No handler for interaction", map[string]interface{}{
			"type": i.Type.String(),
			"key":  key,
		})
		return false
	}

	handled = true
	defer Recover(rt.logger, key)
	h(r, i)
	return handled
}
