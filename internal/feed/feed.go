package feed

import (
	"context"
	"iter"

	"github.com/rxtech-lab/argo-signal/internal/types"
	"github.com/rxtech-lab/argo-signal/pkg/errors"
)

// Feed streams market snapshots in delivery order.
// The stream ends when the source is exhausted or ctx is done; a canceled
// stream yields the context error once.
type Feed interface {
	Stream(ctx context.Context) iter.Seq2[types.MarketSnapshot, error]
}

// SliceFeed replays a fixed list of snapshots.
type SliceFeed struct {
	snapshots []types.MarketSnapshot
}

func NewSliceFeed(snapshots ...types.MarketSnapshot) *SliceFeed {
	return &SliceFeed{snapshots: snapshots}
}

// Len returns the number of snapshots the feed will yield.
func (f *SliceFeed) Len() int {
	return len(f.snapshots)
}

// Stream implements Feed.
func (f *SliceFeed) Stream(ctx context.Context) iter.Seq2[types.MarketSnapshot, error] {
	return func(yield func(types.MarketSnapshot, error) bool) {
		for _, snapshot := range f.snapshots {
			if err := ctx.Err(); err != nil {
				yield(types.MarketSnapshot{}, errors.Wrap(errors.ErrCodeEvaluationCanceled, "feed canceled", err))
				return
			}

			if !yield(snapshot, nil) {
				return
			}
		}
	}
}
