package nodes

import (
	"context"
	"fmt"
	"time"

	"go-jobflow/internal/domain"
)

// DelayNode sleeps for config.delay milliseconds or a config.duration
// string such as "1m30s". It returns early when ctx is cancelled.
type DelayNode struct{}

func (n *DelayNode) Execute(ctx context.Context, node domain.Node, input map[string]any, _ *domain.ExecutionContext) (map[string]any, error) {
	d := time.Duration(configNumber(node, "delay", 0) * float64(time.Millisecond))
	if s := configString(node, "duration", ""); s != "" {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("%w: duration: %v", domain.ErrInvalidNodeConfig, err)
		}
		d = parsed
	}
	if err := sleep(ctx, d); err != nil {
		return nil, err
	}
	return merge(input, map[string]any{"waitedMs": d.Milliseconds()}), nil
}

func (n *DelayNode) Metadata() Metadata {
	md := DefaultMetadata("WAIT_DELAY")
	md.Description = "Pause the run for a fixed duration"
	md.Config = objectSchema(map[string]any{
		"delay":    map[string]any{"type": "number", "minimum": 0, "description": "Milliseconds"},
		"duration": prop("string", "Go duration, overrides delay"),
	})
	return md
}

// UntilNode sleeps until the RFC 3339 time in config.until, which may be a
// template. Past times return immediately.
type UntilNode struct {
	Now func() time.Time
}

func (n *UntilNode) Execute(ctx context.Context, node domain.Node, input map[string]any, ec *domain.ExecutionContext) (map[string]any, error) {
	raw := renderedString(node, "until", input, ec)
	until, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: until: %v", domain.ErrInvalidNodeConfig, err)
	}
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	d := until.Sub(now())
	if err := sleep(ctx, d); err != nil {
		return nil, err
	}
	return merge(input, map[string]any{"waitedUntil": until.UTC().Format(time.RFC3339)}), nil
}

func (n *UntilNode) Metadata() Metadata {
	md := DefaultMetadata("WAIT_UNTIL")
	md.Description = "Pause the run until a point in time"
	md.Config = objectSchema(map[string]any{
		"until": prop("string", "RFC 3339 time, templated"),
	}, "until")
	return md
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
