package usernamesync

import (
	"context"
	"fmt"
	"time"

	"community-bot/internal/common/discord"
	"community-bot/internal/common/logger"
	"community-bot/internal/common/metrics"
	"community-bot/internal/membership"

	"github.com/bwmarrin/discordgo"
)

const HandlerName = "username-sync"

// Handler writes a member's new username back to the subscriptions
// already linked to their Discord account.
type Handler struct {
	config     *Config
	store      membership.SubscriptionStore
	reconciler *membership.Reconciler
	linker     *membership.Linker
	logger     logger.Logger
}

func NewHandler(deps ServiceDependencies, config *Config) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", HandlerName, err)
	}
	return &Handler{
		config:     config,
		store:      deps.Store,
		reconciler: deps.Reconciler,
		linker:     deps.Linker,
		logger:     deps.Logger.WithFields(map[string]interface{}{"handler": HandlerName}),
	}, nil
}

// Handle is registered with session.AddHandler. Updates whose previous
// state was not cached carry no old username and are skipped.
func (h *Handler) Handle(s *discordgo.Session, u *discordgo.GuildMemberUpdate) {
	defer discord.Recover(h.logger, HandlerName)
	if u.Member == nil || u.User == nil || u.BeforeUpdate == nil || u.BeforeUpdate.User == nil {
		return
	}
	if u.GuildID != h.config.GuildID {
		return
	}

	var botID string
	if s != nil && s.State != nil && s.State.User != nil {
		botID = s.State.User.ID
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input := &Input{
		Member:         discord.ToMember(u.GuildID, u.Member),
		BeforeUsername: u.BeforeUpdate.User.Username,
		BotUserID:      botID,
	}
	if _, err := h.Execute(ctx, input); err != nil {
		h.logger.Error("Username sync failed", map[string]interface{}{
			"userId": u.User.ID,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	member := input.Member
	if input.BeforeUsername == member.Username || member.UserID == input.BotUserID {
		return &Output{Action: ActionIgnored}, nil
	}

	start := time.Now()
	metrics.MembershipEventsActive.WithLabelValues(metrics.TriggerUsername).Inc()
	defer metrics.MembershipEventsActive.WithLabelValues(metrics.TriggerUsername).Dec()

	out, err := h.execute(ctx, input)
	action := ActionFailed
	if out != nil {
		action = out.Action
	}
	metrics.MembershipSyncs.WithLabelValues(metrics.TriggerUsername, action).Inc()
	metrics.MembershipSyncDuration.WithLabelValues(metrics.TriggerUsername).Observe(time.Since(start).Seconds())
	return out, err
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	member := input.Member
	log := h.logger.WithFields(map[string]interface{}{
		"userId": member.UserID,
		"from":   input.BeforeUsername,
		"to":     member.Tag,
	})
	log.Info("Changing subscription username", nil)

	ids, err := h.store.IDsByUserID(ctx, member.UserID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		log.Warn("No subscriptions found for previous username", nil)
		return &Output{Action: ActionNoSubscriptions}, nil
	}

	result := h.linker.Link(ctx, ids, membership.Identity{UserID: member.UserID, Username: member.Tag})
	if result.OK() {
		return &Output{Action: ActionUsernameLinked, SubscriptionIDs: ids}, nil
	}

	// The subscriptions still name the old account; roles granted for them
	// cannot be trusted until the member verifies again.
	cleared, err := h.reconciler.ClearRoles(ctx, member)
	if err != nil {
		return &Output{Action: ActionLinkFailed, SubscriptionIDs: ids}, err
	}
	if cleared.Outcome == membership.OutcomeProtected {
		return &Output{Action: ActionLinkFailed, SubscriptionIDs: ids}, nil
	}
	log.Warn("Cleared roles after failed username write-back", nil)
	return &Output{Action: ActionCompensated, SubscriptionIDs: ids}, nil
}
