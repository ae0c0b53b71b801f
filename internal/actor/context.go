package actor

import (
	"context"
	"errors"
	"strings"
)

var ErrActorRequired = errors.New("actor_required")

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// System is used for background work that has no human actor.
var System = Actor{ID: 0, Username: "system", Role: "SYSTEM"}

func (a Actor) Valid() bool {
	return strings.TrimSpace(a.Username) != ""
}

// ContextKey is the request context key for the current actor.
type ContextKey struct{}

// WithActor stores the actor in the context.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ContextKey{}, a)
}

// FromContext returns the actor from context, if set.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	a, ok := ctx.Value(ContextKey{}).(Actor)
	if !ok || !a.Valid() {
		return Actor{}, false
	}
	return a, true
}

// Require returns the current actor or ErrActorRequired.
func Require(ctx context.Context) (Actor, error) {
	a, ok := FromContext(ctx)
	if !ok {
		return Actor{}, ErrActorRequired
	}
	return a, nil
}
