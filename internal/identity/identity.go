// Package identity resolves opaque bearer tokens to user identifiers and
// threads the acting identity through request contexts. Who issues the tokens
// is outside this service; it only needs "token in, user id or nothing out".
package identity

import (
	"context"
	"errors"
	"strings"
)

// ErrUnauthenticated signals that an operation was attempted without an
// acting identity.
var ErrUnauthenticated = errors.New("no authenticated identity")

// Resolver turns an opaque token into a user id.
type Resolver interface {
	Resolve(token string) (userID string, ok bool)
}

// StaticResolver resolves tokens against a fixed allow-list, loaded from
// configuration. Suitable for early iterations and tests.
type StaticResolver struct {
	tokens map[string]string
}

// NewStaticResolver returns a resolver over the supplied token→user mapping.
func NewStaticResolver(tokens map[string]string) *StaticResolver {
	copied := make(map[string]string, len(tokens))
	for token, user := range tokens {
		copied[token] = user
	}
	return &StaticResolver{tokens: copied}
}

// Resolve looks the token up in the allow-list.
func (r *StaticResolver) Resolve(token string) (string, bool) {
	user, ok := r.tokens[token]
	return user, ok && user != ""
}

// ParseTokenPairs parses "token=user,token2=user2" style configuration.
// Malformed pairs are skipped.
func ParseTokenPairs(raw string) map[string]string {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		token, user, found := strings.Cut(pair, "=")
		token = strings.TrimSpace(token)
		user = strings.TrimSpace(user)
		if !found || token == "" || user == "" {
			continue
		}
		tokens[token] = user
	}
	return tokens
}

type contextKey struct{}

// WithUser attaches the acting user id to the context.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// FromContext extracts the acting user id set by the identity middleware.
func FromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(contextKey{}).(string)
	return userID, ok && userID != ""
}
