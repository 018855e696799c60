package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// ListSessions prints the stored session slots.
func ListSessions(ctx context.Context, p *Persistence, w io.Writer) error {
	ids, err := p.Store.List(ctx)
	if err != nil {
		return fmt.Errorf("error listing sessions: %w", err)
	}
	if len(ids) == 0 {
		fmt.Fprintln(w, "No saved sessions found.")
		return nil
	}
	sort.Strings(ids)
	fmt.Fprintln(w, "Saved Sessions:")
	for _, id := range ids {
		fmt.Fprintln(w, "- "+id)
	}
	return nil
}

// InspectSession prints one snapshot as indented JSON.
func InspectSession(ctx context.Context, p *Persistence, id string, w io.Writer) error {
	snap, err := p.Manager.Load(ctx, id)
	if err != nil {
		return fmt.Errorf("error loading session '%s': %w", id, err)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// RemoveSessions deletes the given slots, reporting each one. It returns an
// error if any removal failed.
func RemoveSessions(ctx context.Context, p *Persistence, ids []string, w io.Writer) error {
	failed := 0
	for _, id := range ids {
		if err := p.Manager.Delete(ctx, id); err != nil {
			fmt.Fprintf(w, "Error removing '%s': %v\n", id, err)
			failed++
			continue
		}
		fmt.Fprintf(w, "Removed session '%s'\n", id)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d sessions could not be removed", failed, len(ids))
	}
	return nil
}
