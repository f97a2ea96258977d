package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"dataprocessor/internal/journal"
)

// showHistory prints the newest limit runs recorded in the journal at path.
// An empty resource lists every resource.
func showHistory(ctx context.Context, w io.Writer, path, resource string, limit int) error {
	if path == "" {
		return fmt.Errorf("history: -journal is required")
	}
	j, err := journal.Open(ctx, path)
	if err != nil {
		return err
	}
	defer j.Close()

	runs, err := j.Recent(ctx, resource, limit)
	if err != nil {
		return err
	}
	return printHistory(w, runs)
}

func printHistory(w io.Writer, runs []journal.Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tRESOURCE\tSTATUS\tROWS\tBYTES\tXXH3\tDURATION\tERROR")
	for _, r := range runs {
		dur := "-"
		if !r.FinishedAt.IsZero() {
			dur = r.FinishedAt.Sub(r.StartedAt).Truncate(time.Millisecond).String()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%016x\t%s\t%s\n",
			r.StartedAt.UTC().Format(time.RFC3339), r.Resource, r.Status,
			r.Rows, r.Bytes, r.Checksum, dur, r.Error)
	}
	return tw.Flush()
}
