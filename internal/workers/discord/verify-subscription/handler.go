package verifysubscription

import (
	"context"
	"fmt"
	"strings"
	"time"

	"community-bot/internal/common/discord"
	"community-bot/internal/common/logger"
	"community-bot/internal/common/metrics"
	"community-bot/internal/common/observability"
	"community-bot/internal/membership"
	"community-bot/pkg/registry"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const HandlerName = "verify-subscription"

// Handler answers the community code modal. Verification is two-phase:
// the subscription is linked to the member first, then the role for its
// SKU is added to the member's roles. A role failure after a successful
// link is flagged for operators instead of being rolled back.
type Handler struct {
	config     *Config
	store      membership.SubscriptionStore
	reconciler *membership.Reconciler
	linker     *membership.Linker
	pending    membership.PendingLinks
	notifier   membership.Notifier
	obs        *observability.Observability
	logger     logger.Logger
}

func NewHandler(deps ServiceDependencies, config *Config) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", HandlerName, err)
	}
	if deps.Pending == nil {
		deps.Pending = membership.LogPendingLinks{Logger: deps.Logger}
	}
	if deps.Notifier == nil {
		deps.Notifier = membership.NopNotifier{}
	}
	return &Handler{
		config:     config,
		store:      deps.Store,
		reconciler: deps.Reconciler,
		linker:     deps.Linker,
		pending:    deps.Pending,
		notifier:   deps.Notifier,
		obs:        deps.Observability,
		logger:     deps.Logger.WithFields(map[string]interface{}{"handler": HandlerName}),
	}, nil
}

// Handle is routed for the subscriptionKeyModal submission.
func (h *Handler) Handle(r discord.Responder, i *discordgo.InteractionCreate) {
	key := strings.TrimSpace(discord.ModalValue(i.ModalSubmitData(), registry.SubscriptionKeyInputID))

	if err := discord.DeferEphemeral(r, i.Interaction); err != nil {
		h.logger.Error("Failed to defer reply", map[string]interface{}{"error": err.Error()})
		return
	}

	if i.Member == nil || i.Member.User == nil {
		h.followUp(r, i, ReplyNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	out := h.Execute(ctx, &Input{Key: key, Member: discord.ToMember(i.GuildID, i.Member)})
	h.followUp(r, i, out.Reply)
}

func (h *Handler) followUp(r discord.Responder, i *discordgo.InteractionCreate, content string) {
	if err := discord.FollowUp(r, i.Interaction, content); err != nil {
		h.logger.Error("Failed to send follow-up", map[string]interface{}{
			"interactionId": i.ID,
			"error":         err.Error(),
		})
	}
}

// Execute never fails outright; every outcome maps to a reply.
func (h *Handler) Execute(ctx context.Context, input *Input) *Output {
	start := time.Now()
	metrics.MembershipEventsActive.WithLabelValues(metrics.TriggerVerification).Inc()
	defer metrics.MembershipEventsActive.WithLabelValues(metrics.TriggerVerification).Dec()

	ctx, span := observability.StartSpan(ctx, "membership.verify_subscription",
		attribute.String("user.id", input.Member.UserID),
	)
	defer span.End()

	log := h.logger.WithFields(map[string]interface{}{
		"correlationId": uuid.NewString(),
		"traceId":       observability.TraceID(ctx),
		"userId":        input.Member.UserID,
		"tag":           input.Member.Tag,
	})

	out := h.execute(ctx, log, input)

	metrics.MembershipSyncs.WithLabelValues(metrics.TriggerVerification, out.Status).Inc()
	metrics.MembershipSyncDuration.WithLabelValues(metrics.TriggerVerification).Observe(time.Since(start).Seconds())
	h.obs.RecordSync(ctx, metrics.TriggerVerification, out.Status)
	h.obs.RecordSyncDuration(ctx, metrics.TriggerVerification, time.Since(start))
	return out
}

func (h *Handler) execute(ctx context.Context, log logger.Logger, input *Input) *Output {
	member := input.Member

	if input.Key == "" {
		log.Warn("Subscription not verified: empty code", nil)
		return &Output{Status: StatusNotFound, Reply: ReplyNotFound}
	}

	subs, err := h.store.ActiveByKey(ctx, input.Key)
	if err != nil {
		log.Error("Failed to look up subscription", map[string]interface{}{"error": err.Error()})
		return &Output{Status: StatusLinkFailed, Reply: ReplyTryLater}
	}
	if len(subs) == 0 {
		log.Warn("Subscription not verified", nil)
		return &Output{Status: StatusNotFound, Reply: ReplyNotFound}
	}

	sub := subs[0]
	out := &Output{SubscriptionID: sub.ID, SKU: sub.SKU}
	log = log.WithFields(map[string]interface{}{"subscriptionId": sub.ID, "sku": sub.SKU})

	if sub.UserID != "" && sub.UserID != member.UserID {
		log.Warn("Subscription already linked to another user", map[string]interface{}{"linkedUserId": sub.UserID})
		out.Status, out.Reply = StatusAlreadyVerified, ReplyAlreadyVerified
		return out
	}

	link := h.linker.Link(ctx, []int64{sub.ID}, membership.Identity{UserID: member.UserID, Username: member.Tag})
	if !link.OK() {
		out.Status, out.Reply = StatusLinkFailed, ReplyTryLater
		return out
	}

	result, err := h.reconciler.GrantSKU(ctx, member, sub.SKU)
	if err != nil {
		h.flag(ctx, log, member, sub, err)
		out.Status, out.Reply = StatusPendingRole, ReplyRoleFailed
		return out
	}

	if err := h.pending.Resolve(ctx, member.UserID); err != nil {
		log.Warn("Failed to clear pending link", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Subscription verified", map[string]interface{}{"roleId": result.RoleID})
	out.Status = StatusVerified
	out.RoleID = result.RoleID
	out.Reply = fmt.Sprintf(replySuccess, sub.Name)
	return out
}

func (h *Handler) flag(ctx context.Context, log logger.Logger, member *membership.Member, sub membership.Subscription, cause error) {
	link := membership.PendingLink{
		ID:             uuid.NewString(),
		UserID:         member.UserID,
		Tag:            member.Tag,
		GuildID:        member.GuildID,
		SubscriptionID: sub.ID,
		SKU:            sub.SKU,
		Reason:         cause.Error(),
		FlaggedAt:      time.Now().UTC(),
	}
	metrics.PendingLinksFlagged.Inc()

	if err := h.pending.Flag(ctx, link); err != nil {
		log.Error("Failed to record pending link", map[string]interface{}{"error": err.Error()})
	}

	subject := fmt.Sprintf("Role assignment failed for %s", member.Tag)
	message := fmt.Sprintf(
		"Subscription %d (sku %s) was linked to Discord user %s (%s) but the role could not be assigned: %s\nPending link id: %s",
		sub.ID, sub.SKU, member.Tag, member.UserID, cause.Error(), link.ID,
	)
	if err := h.notifier.Notify(ctx, subject, message); err != nil {
		log.Error("Failed to notify operators", map[string]interface{}{"error": err.Error()})
	}
}
