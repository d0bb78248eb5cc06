package syncmembership

import (
	"context"
	"fmt"
	"time"

	"community-bot/internal/common/errors"
	"community-bot/internal/common/logger"
	"community-bot/internal/common/metrics"
	"community-bot/internal/common/observability"
	"community-bot/internal/membership"

	"go.opentelemetry.io/otel/attribute"
)

// Service reconciles the Discord member linked to a storefront customer.
// It is shared by the HTTP controller and the Zeebe job handler.
type Service struct {
	config     *Config
	store      membership.SubscriptionStore
	directory  membership.MemberDirectory
	reconciler *membership.Reconciler
	obs        *observability.Observability
	logger     logger.Logger
}

func NewService(deps ServiceDependencies, config *Config) *Service {
	return &Service{
		config:     config,
		store:      deps.Store,
		directory:  deps.Directory,
		reconciler: deps.Reconciler,
		obs:        deps.Observability,
		logger:     deps.Logger.WithFields(map[string]interface{}{"worker": WorkerName}),
	}
}

// Execute always returns an Output. The error is a *errors.StandardError
// whenever the outcome is a failure; its code drives the HTTP status or the
// BPMN error thrown by the job handler.
func (s *Service) Execute(ctx context.Context, trigger string, input *Input) (*Output, error) {
	start := time.Now()
	metrics.MembershipEventsActive.WithLabelValues(trigger).Inc()
	defer metrics.MembershipEventsActive.WithLabelValues(trigger).Dec()

	ctx, span := observability.StartSpan(ctx, "membership.sync_customer",
		attribute.String("customer.id", input.CustomerID),
		attribute.String("trigger", trigger),
	)
	defer span.End()

	log := s.logger.WithFields(map[string]interface{}{
		"customerId": input.CustomerID,
		"trigger":    trigger,
		"traceId":    observability.TraceID(ctx),
	})
	log.Info("Syncing membership", nil)

	output, err := s.execute(ctx, log, input)
	if err != nil {
		span.RecordError(err)
	}

	metrics.MembershipSyncs.WithLabelValues(trigger, output.Status).Inc()
	metrics.MembershipSyncDuration.WithLabelValues(trigger).Observe(time.Since(start).Seconds())
	s.obs.RecordSync(ctx, trigger, output.Status)
	s.obs.RecordSyncDuration(ctx, trigger, time.Since(start))

	return output, err
}

func (s *Service) execute(ctx context.Context, log logger.Logger, input *Input) (*Output, error) {
	active, err := s.store.ActiveByCustomerID(ctx, input.CustomerID)
	if err != nil {
		log.Error("Failed to fetch subscriptions", map[string]interface{}{"error": err.Error()})
		return fetchFailed(err)
	}

	var userID string
	if top, ok := membership.HighestSKU(active); ok {
		userID = top.UserID
	}

	// Without an active subscription the caller may name a lapsed one to
	// find the Discord user whose roles must be removed.
	if userID == "" && input.SubscriptionID != "" {
		userID, err = s.store.UserIDBySubscriptionID(ctx, input.SubscriptionID)
		if err != nil {
			log.Error("Failed to fetch subscription", map[string]interface{}{
				"subscriptionId": input.SubscriptionID,
				"error":          err.Error(),
			})
			return fetchFailed(err)
		}
	}

	if userID == "" {
		log.Warn("Membership not verified yet or verification failed", nil)
		return &Output{Status: StatusNotVerified, Message: "Member not verified."}, nil
	}
	log = log.WithFields(map[string]interface{}{"userId": userID})

	exists, err := s.directory.GuildExists(ctx, s.config.GuildID)
	if err != nil || !exists {
		if err == nil {
			err = errors.NewGuildNotFoundError(s.config.GuildID)
		}
		log.Error("Guild not found or not accessible by bot", map[string]interface{}{
			"guildId": s.config.GuildID,
			"error":   err.Error(),
		})
		return &Output{Status: StatusGuildNotFound, Message: "Guild not found.", UserID: userID},
			errors.NewGuildNotFoundError(s.config.GuildID)
	}

	member, err := s.directory.Member(ctx, s.config.GuildID, userID)
	if err != nil {
		log.Warn("Member not found in guild", map[string]interface{}{"error": err.Error()})
		out := &Output{
			Status:  StatusMemberNotFound,
			Message: fmt.Sprintf("Customer %s could not be updated.", input.CustomerID),
			UserID:  userID,
		}
		if errors.HasCode(err, errors.ErrCodeMemberNotFound) {
			return out, err
		}
		return out, errors.NewTransportError("discord", "get guild member", err)
	}

	result, err := s.reconciler.Reconcile(ctx, member, active)
	if err != nil {
		return reconcileFailed(err, userID), err
	}

	out := &Output{Status: string(result.Outcome), UserID: userID, RoleID: result.RoleID}
	switch result.Outcome {
	case membership.OutcomeRolesCleared:
		out.Message = fmt.Sprintf("All roles removed from customer %s with username %s", input.CustomerID, member.Tag)
	case membership.OutcomeProtected:
		out.Message = fmt.Sprintf("Member %s holds a special role; roles unchanged.", member.Tag)
	default:
		out.Message = fmt.Sprintf("Customer %s synced with role %s.", input.CustomerID, result.RoleID)
	}
	log.Info(out.Message, map[string]interface{}{"outcome": out.Status, "sku": result.SKU})
	return out, nil
}

func fetchFailed(err error) (*Output, error) {
	out := &Output{Status: StatusFetchFailed, Message: "Subscriptions could not be fetched."}
	if stdErr, ok := errors.As(err); ok {
		return out, stdErr
	}
	return out, errors.NewTransportError("wordpress", "fetch subscriptions", err)
}

func reconcileFailed(err error, userID string) *Output {
	out := &Output{UserID: userID}
	stdErr, ok := errors.As(err)
	if !ok {
		out.Status = StatusAssignmentFailed
		out.Message = "Role cannot be assigned: unknown error. " + err.Error()
		return out
	}

	switch stdErr.Code {
	case errors.ErrCodeRoleNotConfigured:
		out.Status = StatusRoleNotConfigured
		out.Message = stdErr.Message
	case errors.ErrCodeRoleNotFound:
		out.Status = StatusRoleNotFound
		out.Message = stdErr.Message
	default:
		out.Status = StatusAssignmentFailed
		out.Message = "Role cannot be assigned: unknown error. " + causeText(stdErr)
	}
	return out
}

func causeText(e *errors.StandardError) string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Details
}
