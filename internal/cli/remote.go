package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/aretw0/itinera/internal/config"
	"github.com/aretw0/itinera/internal/runtime"
	httpadapter "github.com/aretw0/itinera/pkg/adapters/http"
)

func newBackend(cfg *config.Config) (*httpadapter.Client, error) {
	return httpadapter.NewClient(cfg.Server)
}

// ListConversations prints the stored conversations, newest first.
func ListConversations(ctx context.Context, cfg *config.Config, w io.Writer) error {
	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}
	list, err := backend.Conversations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}
	if len(list) == 0 {
		fmt.Fprintln(w, "No conversations yet.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDESTINATION\tCREATED\tPREVIEW")
	for _, c := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", c.ID, c.Destination, c.CreatedAt, runtime.Truncate(strings.Join(strings.Fields(c.Preview), " "), 40))
	}
	return tw.Flush()
}

// ShowConversation prints one stored conversation, as text or JSON.
func ShowConversation(ctx context.Context, cfg *config.Config, id int64, asJSON bool, w io.Writer) error {
	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}
	detail, err := backend.Conversation(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load conversation %d: %w", id, err)
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(detail)
	}
	for _, m := range detail.Messages {
		who := "planner"
		if m.IsUser {
			who = "you"
		}
		fmt.Fprintf(w, "%s> %s\n\n", who, m.Content)
	}
	return nil
}

// DownloadItinerary saves the named PDF into cfg.DownloadDir and returns its path.
func DownloadItinerary(ctx context.Context, cfg *config.Config, file string) (string, error) {
	backend, err := newBackend(cfg)
	if err != nil {
		return "", err
	}
	body, err := backend.Download(ctx, file)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", file, err)
	}
	defer body.Close()

	if err := os.MkdirAll(cfg.DownloadDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(cfg.DownloadDir, runtime.LocalFilename(file))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
