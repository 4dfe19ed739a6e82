package resilience

import (
	"context"
	"errors"
	"log/slog"
)

// ErrAllFailed is returned by [FallbackGroup.Execute] when every member of
// the group has failed. The last member's error is joined so callers can
// still inspect it with [errors.As] and [errors.Is].
var ErrAllFailed = errors.New("resilience: all fallbacks failed")

// FallbackGroup walks an ordered list of named alternatives, returning the
// first success. Read-only after construction; safe for concurrent use.
type FallbackGroup[T any] struct {
	name    string
	members []member[T]
}

type member[T any] struct {
	name  string
	value T
}

// NewFallbackGroup returns a group with a primary member. name identifies
// the group in logs.
func NewFallbackGroup[T any](name, primaryName string, primary T) *FallbackGroup[T] {
	return &FallbackGroup[T]{
		name:    name,
		members: []member[T]{{name: primaryName, value: primary}},
	}
}

// AddFallback appends an alternative tried after all earlier members fail.
func (g *FallbackGroup[T]) AddFallback(name string, value T) {
	g.members = append(g.members, member[T]{name: name, value: value})
}

// Len returns the number of members in the group.
func (g *FallbackGroup[T]) Len() int {
	return len(g.members)
}

// Execute runs fn against each member in order and returns the first success.
// A non-primary success is logged at Warn so degraded operation is visible.
// When every member fails the last error is returned joined with
// [ErrAllFailed]; a cancelled context stops the walk immediately.
func (g *FallbackGroup[T]) Execute(ctx context.Context, fn func(ctx context.Context, value T) error) error {
	var lastErr error
	for i, m := range g.members {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx, m.value)
		if err == nil {
			if i > 0 {
				slog.Warn("fallback member served request",
					"group", g.name, "member", m.name, "position", i)
			}
			return nil
		}
		slog.Debug("fallback member failed",
			"group", g.name, "member", m.name, "position", i, "err", err)
		lastErr = err
	}
	return errors.Join(ErrAllFailed, lastErr)
}
