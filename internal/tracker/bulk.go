package tracker

import (
	"context"
	"fmt"
	"strings"
)

// ItemOutcome records the result of one state update within a bulk
// transition.
type ItemOutcome struct {
	ID    int
	Title string
	Type  WorkItemType
	OK    bool
	Err   string
}

// BulkResult aggregates a bulk state transition. Items appear in the order
// they were processed, which is ascending identifier order.
type BulkResult struct {
	Feature   string
	State     string
	Attempted int
	Succeeded int
	Failed    int
	Items     []ItemOutcome
}

// Summary renders the result as a short operator-readable report.
func (r *BulkResult) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Updated %d of %d work items under %q to state %q",
		r.Succeeded, r.Attempted, r.Feature, r.State)
	if r.Failed > 0 {
		fmt.Fprintf(&b, " (%d failed)", r.Failed)
	}
	for _, it := range r.Items {
		if it.OK {
			fmt.Fprintf(&b, "\n  #%d %s (%s): %s", it.ID, it.Title, it.Type, r.State)
		} else {
			fmt.Fprintf(&b, "\n  #%d %s (%s): FAILED: %s", it.ID, it.Title, it.Type, it.Err)
		}
	}
	return b.String()
}

// BulkUpdateState applies one state transition to every Story and Task under
// the feature whose title contains featureTitle. typeFilter, when non-empty,
// keeps only items whose type name contains it, case-insensitively, so
// "story" matches "User Story".
//
// Updates are issued one at a time in ascending identifier order. This is a
// deliberate best-effort operation: a failure on one item is recorded and
// processing continues with the rest. There is no rollback.
//
// Returns ErrNoMatchingItems, with zero remote mutations performed, when the
// descendant set (after filtering) is empty.
func (c *Client) BulkUpdateState(ctx context.Context, featureTitle, newState, typeFilter string) (*BulkResult, error) {
	items, err := c.Descendants(ctx, featureTitle)
	if err != nil {
		return nil, err
	}

	if typeFilter != "" {
		filter := strings.ToLower(typeFilter)
		kept := items[:0]
		for _, it := range items {
			if strings.Contains(strings.ToLower(string(it.Type)), filter) {
				kept = append(kept, it)
			}
		}
		items = kept
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("feature %q: %w", featureTitle, ErrNoMatchingItems)
	}

	result := &BulkResult{
		Feature:   featureTitle,
		State:     newState,
		Attempted: len(items),
	}
	for _, it := range items {
		outcome := ItemOutcome{ID: it.ID, Title: it.Title, Type: it.Type}
		if _, err := c.UpdateState(ctx, it.ID, newState); err != nil {
			outcome.Err = err.Error()
			result.Failed++
			c.log.Warn().Int("id", it.ID).Err(err).Msg("bulk state update failed for item")
		} else {
			outcome.OK = true
			result.Succeeded++
		}
		result.Items = append(result.Items, outcome)
	}

	c.log.Info().
		Str("feature", featureTitle).
		Str("state", newState).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("bulk state transition complete")
	return result, nil
}
