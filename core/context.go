package core

import (
	"context"
	"net/mail"
)

type ctxKey int

const (
	tokenKey ctxKey = iota
	actorKey
)

// Actor is the authenticated user acting through the API.
type Actor struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email"`
	District string   `json:"district,omitempty"`
	Roles    []string `json:"roles"`
}

// WithToken returns a copy of ctx carrying the caller's bearer token,
// forwarded as-is to the backend API.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

func (a Actor) MailAddress() mail.Address {
	return mail.Address{Name: a.Name, Address: a.Email}
}

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func ActorFrom(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}
