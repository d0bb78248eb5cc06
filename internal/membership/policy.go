package membership

import (
	"fmt"
	"sort"
	"strings"
)

// RoleMap maps a subscription SKU to a Discord role id.
type RoleMap map[string]string

// SpecialRoles is the set of role ids that block automatic role removal.
type SpecialRoles map[string]struct{}

// Policy is the immutable role configuration, built once at startup.
type Policy struct {
	Roles   RoleMap
	Special SpecialRoles
}

// NewPolicy parses SKU_ROLES ("sku:role;sku:role") and SPECIAL_ROLE_IDS
// ("role,role").
func NewPolicy(skuRoles, specialRoleIDs string) (*Policy, error) {
	roles, err := ParseRoleMap(skuRoles)
	if err != nil {
		return nil, err
	}
	return &Policy{
		Roles:   roles,
		Special: ParseSpecialRoles(specialRoleIDs),
	}, nil
}

func ParseRoleMap(raw string) (RoleMap, error) {
	roles := RoleMap{}
	for _, entry := range strings.Split(raw, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		sku, role, ok := strings.Cut(entry, ":")
		sku, role = strings.TrimSpace(sku), strings.TrimSpace(role)
		if !ok || sku == "" || role == "" {
			return nil, fmt.Errorf("invalid sku role entry %q: want sku:roleId", entry)
		}
		if existing, dup := roles[sku]; dup && existing != role {
			return nil, fmt.Errorf("sku %s mapped to both %s and %s", sku, existing, role)
		}
		roles[sku] = role
	}
	return roles, nil
}

func ParseSpecialRoles(raw string) SpecialRoles {
	special := SpecialRoles{}
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			special[id] = struct{}{}
		}
	}
	return special
}

// RoleFor returns the role mapped to sku.
func (p *Policy) RoleFor(sku string) (string, bool) {
	role, ok := p.Roles[sku]
	return role, ok
}

// IsProtected reports whether any of roleIDs is a special role.
func (p *Policy) IsProtected(roleIDs []string) bool {
	for _, id := range roleIDs {
		if _, ok := p.Special[id]; ok {
			return true
		}
	}
	return false
}

// SKUs lists the mapped SKUs in sorted order.
func (p *Policy) SKUs() []string {
	skus := make([]string, 0, len(p.Roles))
	for sku := range p.Roles {
		skus = append(skus, sku)
	}
	sort.Strings(skus)
	return skus
}
