package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aretw0/itinera"
	"github.com/aretw0/itinera/internal/logging"
	httpadapter "github.com/aretw0/itinera/pkg/adapters/http"
)

// shutdownTimeout gives outstanding requests a deadline on shutdown.
const shutdownTimeout = 5 * time.Second

// FakeOptions configures the stand-in server.
type FakeOptions struct {
	Addr   string
	Delay  time.Duration
	Logger *slog.Logger
	Output io.Writer
	// Ready, when set, receives the bound address once the listener is up.
	Ready func(addr string)
}

// ServeFake runs the stand-in trip-planner server until ctx is cancelled.
func ServeFake(ctx context.Context, opts FakeOptions) error {
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop()
	}
	srv := httpadapter.NewServer(
		httpadapter.WithPlanner(&httpadapter.ScriptedPlanner{Delay: opts.Delay}),
		httpadapter.WithServerLogger(opts.Logger),
		httpadapter.WithVersion(itinera.Version),
	)
	httpSrv := &http.Server{
		Handler:           httpadapter.NewHandler(srv),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", opts.Addr, err)
	}
	printSystemMessage(opts.Output, "Fake planner listening on http://%s", ln.Addr())
	if opts.Ready != nil {
		opts.Ready(ln.Addr().String())
	}

	serverErrors := make(chan error, 1)
	go func() { serverErrors <- httpSrv.Serve(ln) }()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	srv.Hub.CloseAll()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		opts.Logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
		return httpSrv.Close()
	}
	printSystemMessage(opts.Output, "Fake planner stopped")
	return nil
}
