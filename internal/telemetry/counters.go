// Package telemetry records what learners hover and how long they stay on
// each page. Hovers are counted; page visits are logged one row each.
package telemetry

import (
	"context"
	"strings"

	"github.com/mind-engage/codelab/internal/apperr"
	"github.com/mind-engage/codelab/internal/progress"
)

type Counters struct {
	store progress.Ops
}

func New(store progress.Ops) *Counters { return &Counters{store: store} }

// RecordHover bumps the counter for (learner, surface, item) and returns the
// new count.
func (c *Counters) RecordHover(ctx context.Context, learner, surface, item string) (int64, error) {
	if learner == "" {
		return 0, apperr.ErrAuthRequired
	}
	surface, item = strings.TrimSpace(surface), strings.TrimSpace(item)
	if surface == "" || item == "" {
		return 0, apperr.Validation("svg_name and hover_item are required")
	}
	return c.store.IncrementHover(ctx, learner, surface, item)
}

// RecordPageTime appends one visit of elapsedMs to page.
func (c *Counters) RecordPageTime(ctx context.Context, learner, page string, elapsedMs int64) error {
	if learner == "" {
		return apperr.ErrAuthRequired
	}
	page = strings.TrimSpace(page)
	if page == "" {
		return apperr.Validation("directory is required")
	}
	if elapsedMs < 0 {
		return apperr.Validation("elapsed time must not be negative")
	}
	return c.store.AppendPageTime(ctx, learner, page, elapsedMs)
}

// PageTimes lists the logged visits to page, oldest first.
func (c *Counters) PageTimes(ctx context.Context, learner, page string) ([]int64, error) {
	return c.store.PageTimes(ctx, learner, strings.TrimSpace(page))
}
