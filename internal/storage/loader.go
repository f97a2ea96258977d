package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"dataprocessor/internal/metrics"
)

// CopyFn abstracts a backend's bulk insert. It inserts rows (aligned to
// columns) and returns the number of rows reported as inserted.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains rows from in, groups them into batches of batchSize and
// calls copyFn for each non-empty batch. It returns the total reported by
// copyFn and the first error encountered. job labels logs and metrics.
//
// Cancellation: returns (total, ctx.Err()) when canceled. Progress is logged
// on each successful flush.
func LoadBatches(
	ctx context.Context,
	job string,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}

	var (
		total       int64
		batches     int64
		batch       = make([][]any, 0, batchSize)
		start       = time.Now()
		lastFlushTS = start
		lastTotal   int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n
		batch = batch[:0]

		if err != nil {
			log.Printf("copy: job=%s failed after=%d total=%d err=%v", job, n, total, err)
			return err
		}

		batches++
		metrics.RecordBatches(job, 1)

		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(total-lastTotal) / sinceLast.Seconds()
		}
		log.Printf(
			"copy: job=%s batch=%d rps=%.0f inserted=%d total_inserted=%d elapsed=%s",
			job, batches, rps, n, total, now.Sub(start).Truncate(time.Millisecond),
		)
		lastFlushTS = now
		lastTotal = total
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case row, ok := <-in:
			if !ok {
				// A producer stopped by cancellation also closes in.
				if err := ctx.Err(); err != nil {
					return total, err
				}
				if err := flush(); err != nil {
					return total, err
				}
				return total, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}

// Feed sends rows on a new channel until they run out or ctx is done, then
// closes it. Pair it with LoadBatches to stream an in-memory table.
func Feed(ctx context.Context, rows [][]any) <-chan []any {
	ch := make(chan []any)
	go func() {
		defer close(ch)
		for _, r := range rows {
			select {
			case ch <- r:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
