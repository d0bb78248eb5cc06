package membership

import (
	"context"

	"community-bot/internal/common/errors"
	"community-bot/internal/common/logger"
	"community-bot/internal/common/metrics"
	"community-bot/internal/common/observability"

	"go.opentelemetry.io/otel/attribute"
)

type Outcome string

const (
	OutcomeRoleAssigned Outcome = "ROLE_ASSIGNED"
	OutcomeRolesCleared Outcome = "ROLES_CLEARED"
	OutcomeProtected    Outcome = "SPECIAL"
)

// Result describes the mutation a reconciliation applied.
type Result struct {
	Outcome Outcome
	SKU     string
	RoleID  string
}

// Reconciler derives a member's role set from subscription state and
// applies it with a single "set roles" call.
type Reconciler struct {
	policy *Policy
	roles  RoleAssigner
	logger logger.Logger
}

func NewReconciler(policy *Policy, roles RoleAssigner, log logger.Logger) *Reconciler {
	return &Reconciler{
		policy: policy,
		roles:  roles,
		logger: log.WithFields(map[string]interface{}{"component": "reconciler"}),
	}
}

// Reconcile applies the role for the highest SKU among active, or clears
// the member's roles when active is empty. Callers pass active subscriptions
// only.
func (r *Reconciler) Reconcile(ctx context.Context, member *Member, active []Subscription) (*Result, error) {
	if len(active) == 0 {
		return r.ClearRoles(ctx, member)
	}
	top, _ := HighestSKU(active)
	return r.ApplySKU(ctx, member, top.SKU)
}

// ClearRoles removes every role from member unless it holds a special role.
func (r *Reconciler) ClearRoles(ctx context.Context, member *Member) (*Result, error) {
	if r.policy.IsProtected(member.RoleIDs) {
		r.logger.Info("Member holds a special role, leaving roles untouched", map[string]interface{}{
			"userId": member.UserID,
			"tag":    member.Tag,
		})
		return &Result{Outcome: OutcomeProtected}, nil
	}

	if err := r.setRoles(ctx, member, []string{}); err != nil {
		return nil, err
	}

	r.logger.Info("Removed all roles from member", map[string]interface{}{
		"userId": member.UserID,
		"tag":    member.Tag,
	})
	return &Result{Outcome: OutcomeRolesCleared}, nil
}

// ResolveRole maps sku to a role id and checks the role exists in the guild.
func (r *Reconciler) ResolveRole(ctx context.Context, guildID, sku string) (string, error) {
	roleID, ok := r.policy.RoleFor(sku)
	if !ok {
		return "", errors.NewRoleNotConfiguredError(sku)
	}

	exists, err := r.roles.RoleExists(ctx, guildID, roleID)
	if err != nil {
		return "", errors.NewTransportError("discord", "fetch guild roles", err)
	}
	if !exists {
		return "", errors.NewRoleNotFoundError(guildID, roleID)
	}
	return roleID, nil
}

// ApplySKU replaces the member's role set with exactly the role for sku.
func (r *Reconciler) ApplySKU(ctx context.Context, member *Member, sku string) (*Result, error) {
	return r.assign(ctx, "membership.apply_sku", member, sku, func(roleID string) []string {
		return []string{roleID}
	})
}

// GrantSKU adds the role for sku to the member's current roles. Roles the
// member already holds, special roles included, are kept.
func (r *Reconciler) GrantSKU(ctx context.Context, member *Member, sku string) (*Result, error) {
	return r.assign(ctx, "membership.grant_sku", member, sku, func(roleID string) []string {
		roles := make([]string, 0, len(member.RoleIDs)+1)
		for _, id := range member.RoleIDs {
			if id != roleID {
				roles = append(roles, id)
			}
		}
		return append(roles, roleID)
	})
}

func (r *Reconciler) assign(ctx context.Context, spanName string, member *Member, sku string, rolesFor func(roleID string) []string) (*Result, error) {
	ctx, span := observability.StartSpan(ctx, spanName,
		attribute.String("sku", sku),
		attribute.String("user.id", member.UserID),
	)
	defer span.End()

	roleID, err := r.ResolveRole(ctx, member.GuildID, sku)
	if err != nil {
		span.RecordError(err)
		r.logger.Warn("Role could not be resolved", map[string]interface{}{
			"userId": member.UserID,
			"sku":    sku,
			"error":  err.Error(),
		})
		return nil, err
	}

	if err := r.setRoles(ctx, member, rolesFor(roleID)); err != nil {
		span.RecordError(err)
		return nil, err
	}

	r.logger.Info("Assigned role to member", map[string]interface{}{
		"userId": member.UserID,
		"tag":    member.Tag,
		"sku":    sku,
		"roleId": roleID,
	})
	return &Result{Outcome: OutcomeRoleAssigned, SKU: sku, RoleID: roleID}, nil
}

func (r *Reconciler) setRoles(ctx context.Context, member *Member, roleIDs []string) error {
	if err := r.roles.SetMemberRoles(ctx, member.GuildID, member.UserID, roleIDs); err != nil {
		metrics.DiscordRoleUpdates.WithLabelValues("failed").Inc()
		r.logger.Error("Discord rejected role update", map[string]interface{}{
			"userId": member.UserID,
			"roles":  roleIDs,
			"error":  err.Error(),
		})
		return errors.NewRoleAssignmentError(member.UserID, err)
	}
	metrics.DiscordRoleUpdates.WithLabelValues("ok").Inc()
	return nil
}

// HighestSKU returns the subscription with the greatest SKU.
//
// SKUs compare as plain strings, so "SKU10" sorts below "SKU9". Ties keep
// the earliest element. The second result is false for an empty slice.
func HighestSKU(subs []Subscription) (Subscription, bool) {
	if len(subs) == 0 {
		return Subscription{}, false
	}
	top := subs[0]
	for _, s := range subs[1:] {
		if s.SKU > top.SKU {
			top = s
		}
	}
	return top, true
}
