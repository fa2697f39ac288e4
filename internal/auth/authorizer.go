// Package auth decides what an authenticated role may do. Identity itself
// comes from the JWT claims set by the middleware.
package auth

import (
	"github.com/aaravmahajanofficial/storefront-checkout/internal/models"
	"github.com/google/uuid"
)

type Action string

const (
	ActionReadAnyOrder   Action = "orders:read_any"
	ActionPayAnyOrder    Action = "orders:pay_any"
	ActionCancelAnyOrder Action = "orders:cancel_any"
	ActionCancelPaid     Action = "orders:cancel_paid"
	ActionRefundOrder    Action = "orders:refund"
	ActionFulfillOrder   Action = "orders:fulfill"
	ActionSendEmail      Action = "notifications:send"
)

type Authorizer interface {
	HasPermission(role models.Role, action Action) bool
}

type staticAuthorizer struct {
	grants map[models.Role]map[Action]bool
}

// NewStaticAuthorizer builds the default role table: admins may do
// everything, support staff may read any order and email customers, customers
// only act on their own orders.
func NewStaticAuthorizer() Authorizer {
	return NewAuthorizer(map[models.Role][]Action{
		models.RoleAdmin: {
			ActionReadAnyOrder, ActionPayAnyOrder, ActionCancelAnyOrder, ActionCancelPaid, ActionRefundOrder, ActionFulfillOrder, ActionSendEmail,
		},
		models.RoleSupport: {ActionReadAnyOrder, ActionSendEmail},
	})
}

func NewAuthorizer(table map[models.Role][]Action) Authorizer {
	grants := make(map[models.Role]map[Action]bool, len(table))

	for role, actions := range table {
		grants[role] = make(map[Action]bool, len(actions))
		for _, action := range actions {
			grants[role][action] = true
		}
	}

	return &staticAuthorizer{grants: grants}
}

func (a *staticAuthorizer) HasPermission(role models.Role, action Action) bool {
	return a.grants[role][action]
}

// CanAccessOrder reports whether actor may read an order owned by ownerID.
func CanAccessOrder(a Authorizer, actor models.Actor, ownerID uuid.UUID) bool {
	return actor.UserID == ownerID || a.HasPermission(actor.Role, ActionReadAnyOrder)
}
