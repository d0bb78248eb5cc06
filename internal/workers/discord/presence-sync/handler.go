package presencesync

import (
	"context"
	"fmt"
	"time"

	"community-bot/internal/common/discord"
	"community-bot/internal/common/logger"
	"community-bot/internal/common/metrics"
	"community-bot/internal/common/observability"
	"community-bot/internal/membership"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/attribute"
)

const HandlerName = "presence-sync"

// Handler keeps subscription usernames and roles in step with members
// coming online or going offline.
type Handler struct {
	config     *Config
	store      membership.SubscriptionStore
	directory  membership.MemberDirectory
	reconciler *membership.Reconciler
	linker     *membership.Linker
	obs        *observability.Observability
	logger     logger.Logger
}

func NewHandler(deps ServiceDependencies, config *Config) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", HandlerName, err)
	}
	return &Handler{
		config:     config,
		store:      deps.Store,
		directory:  deps.Directory,
		reconciler: deps.Reconciler,
		linker:     deps.Linker,
		obs:        deps.Observability,
		logger:     deps.Logger.WithFields(map[string]interface{}{"handler": HandlerName}),
	}, nil
}

// Handle is registered with session.AddHandler.
func (h *Handler) Handle(_ *discordgo.Session, p *discordgo.PresenceUpdate) {
	defer discord.Recover(h.logger, HandlerName)
	if p.User == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	if _, err := h.Execute(ctx, &Input{GuildID: p.GuildID, UserID: p.User.ID, Status: string(p.Status)}); err != nil {
		h.logger.Error("Presence sync failed", map[string]interface{}{
			"userId": p.User.ID,
			"error":  err.Error(),
		})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	// Any other status means the member was already around; nothing changed.
	if input.Status != string(discordgo.StatusOnline) && input.Status != string(discordgo.StatusOffline) {
		return &Output{Action: ActionIgnored}, nil
	}
	if input.GuildID != h.config.GuildID {
		return &Output{Action: ActionIgnored}, nil
	}

	start := time.Now()
	metrics.MembershipEventsActive.WithLabelValues(metrics.TriggerPresence).Inc()
	defer metrics.MembershipEventsActive.WithLabelValues(metrics.TriggerPresence).Dec()

	ctx, span := observability.StartSpan(ctx, "membership.presence_sync",
		attribute.String("user.id", input.UserID),
		attribute.String("status", input.Status),
	)
	defer span.End()

	out, err := h.execute(ctx, input)
	if err != nil {
		span.RecordError(err)
	}
	action := ActionFailed
	if out != nil {
		action = out.Action
	}
	if err == nil && action == ActionIgnored {
		return out, nil
	}

	metrics.MembershipSyncs.WithLabelValues(metrics.TriggerPresence, action).Inc()
	metrics.MembershipSyncDuration.WithLabelValues(metrics.TriggerPresence).Observe(time.Since(start).Seconds())
	h.obs.RecordSync(ctx, metrics.TriggerPresence, action)
	h.obs.RecordSyncDuration(ctx, metrics.TriggerPresence, time.Since(start))
	return out, err
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	member, err := h.directory.Member(ctx, input.GuildID, input.UserID)
	if err != nil {
		return nil, err
	}
	if member.Bot {
		return &Output{Action: ActionIgnored}, nil
	}

	log := h.logger.WithFields(map[string]interface{}{
		"userId":  member.UserID,
		"tag":     member.Tag,
		"traceId": observability.TraceID(ctx),
	})
	log.Info("Checking username change", nil)

	subs, err := h.store.AllByUserID(ctx, member.UserID)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		log.Warn("No subscriptions found", nil)
	}

	if len(membership.ActiveOnly(subs)) == 0 {
		result, err := h.reconciler.ClearRoles(ctx, member)
		if err != nil {
			return nil, err
		}
		if result.Outcome == membership.OutcomeProtected {
			return &Output{Action: ActionProtected}, nil
		}
		return &Output{Action: ActionRolesCleared}, nil
	}

	stale := membership.StaleUsernames(subs, member.Tag)
	if len(stale) == 0 {
		log.Debug("Username not changed", nil)
		return &Output{Action: ActionUnchanged}, nil
	}

	before := stale[0].Username
	if before == "" {
		before = "N/A"
	}
	log.Info("Changing subscription username", map[string]interface{}{"from": before})

	result := h.linker.Link(ctx, membership.IDs(stale), membership.Identity{UserID: member.UserID, Username: member.Tag})
	if !result.OK() {
		return &Output{Action: ActionLinkFailed, SubscriptionIDs: result.SubscriptionIDs}, nil
	}
	return &Output{Action: ActionUsernameLinked, SubscriptionIDs: result.SubscriptionIDs}, nil
}
