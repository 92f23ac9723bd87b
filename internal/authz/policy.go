// Package authz decides whether an actor may perform an action on a resource.
package authz

import "errors"

var (
	ErrUnauthenticated = errors.New("authentication credentials were not provided")
	ErrForbidden       = errors.New("you do not have permission to perform this action")
)

type Role string

const (
	RoleAnonymous Role = "anonymous"
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
)

// ParseRole maps a stored role name to a Role. Unknown names fall back to RoleUser.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin
	case RoleAnonymous:
		return RoleAnonymous
	default:
		return RoleUser
	}
}

type Action string

const (
	ActionRead           Action = "read"
	ActionRegister       Action = "register"
	ActionLogin          Action = "login"
	ActionReadSelf       Action = "self.read"
	ActionChangePassword Action = "self.password"
	ActionSubscribe      Action = "subscription.manage"
	ActionFavorite       Action = "favorite.manage"
	ActionCart           Action = "cart.manage"
	ActionDownloadList   Action = "cart.download"
	ActionCreateRecipe   Action = "recipe.create"
	ActionUpdateRecipe   Action = "recipe.update"
	ActionDeleteRecipe   Action = "recipe.delete"
	ActionManageCatalog  Action = "catalog.manage"
)

type Ownership int

const (
	OwnershipNone Ownership = iota
	OwnershipOwned
	OwnershipNotOwned
)

type Decision int

const (
	Deny Decision = iota
	Allow
)

type rule int

const (
	always rule = iota + 1
	ownedOnly
)

var policy = map[Role]map[Action]rule{
	RoleAnonymous: {
		ActionRead:     always,
		ActionRegister: always,
		ActionLogin:    always,
	},
	RoleUser: {
		ActionRead:           always,
		ActionRegister:       always,
		ActionLogin:          always,
		ActionReadSelf:       always,
		ActionChangePassword: always,
		ActionSubscribe:      always,
		ActionFavorite:       always,
		ActionCart:           always,
		ActionDownloadList:   always,
		ActionCreateRecipe:   always,
		ActionUpdateRecipe:   ownedOnly,
		ActionDeleteRecipe:   ownedOnly,
	},
}

// Decide evaluates the policy table. Admins are allowed everything.
func Decide(role Role, action Action, own Ownership) Decision {
	if role == RoleAdmin {
		return Allow
	}
	switch policy[role][action] {
	case always:
		return Allow
	case ownedOnly:
		if own == OwnershipOwned {
			return Allow
		}
	}
	return Deny
}

// Check is Decide expressed as an error: ErrUnauthenticated for anonymous
// actors, ErrForbidden for authenticated ones.
func Check(role Role, action Action, own Ownership) error {
	if Decide(role, action, own) == Allow {
		return nil
	}
	if role == RoleAnonymous || role == "" {
		return ErrUnauthenticated
	}
	return ErrForbidden
}

// OwnershipOf compares the resource owner to the actor.
func OwnershipOf(actorID, ownerID int64) Ownership {
	if actorID != 0 && actorID == ownerID {
		return OwnershipOwned
	}
	return OwnershipNotOwned
}

// ActorRole is the role of a request actor. Actors without a user id are anonymous
// whatever role they claim.
func ActorRole(userID int64, role string) Role {
	if userID <= 0 {
		return RoleAnonymous
	}
	r := ParseRole(role)
	if r == RoleAnonymous {
		return RoleUser
	}
	return r
}
