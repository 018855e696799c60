package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/itinera"
	"github.com/aretw0/itinera/internal/config"
	"github.com/aretw0/itinera/internal/presentation/tui"
)

// RunSession runs one interactive conversation until /quit, end of input or a signal.
func RunSession(ctx context.Context, cfg *config.Config, opts RunOptions) error {
	logger, err := NewLogger(cfg.Log, opts.Debug)
	if err != nil {
		return err
	}
	in, out := opts.Input, opts.Output
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	if !opts.Quiet {
		tui.PrintBanner(out, itinera.Version)
	}

	p, err := OpenPersistence(cfg.Session, logger)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer func() {
		if cerr := p.Close(); cerr != nil {
			logger.Warn("Failed to close session store", "err", cerr)
		}
	}()

	sigCtx := NewSignalContext(ctx)
	defer sigCtx.Cancel()

	id := opts.sessionID(cfg.Session.ID)
	if opts.Fresh {
		if err := ResetSession(sigCtx, p.Manager, id); err != nil {
			return fmt.Errorf("failed to reset session: %w", err)
		}
	}
	snapshot, loaded, err := p.Manager.LoadOrStart(sigCtx, id)
	if err != nil {
		return fmt.Errorf("failed to init session: %w", err)
	}

	clientOpts := append(ClientOptions(cfg, tui.NewView(out), logger),
		itinera.WithSessionManager(p.Manager),
		itinera.WithSessionID(id),
	)
	if loaded && len(snapshot.Messages) > 0 {
		clientOpts = append(clientOpts, itinera.WithSession(snapshot))
		logger.Info("Session Resumed", "session_id", id, "phase", snapshot.Phase)
		if !opts.Quiet {
			printSystemMessage(out, "Resuming session '%s'...", id)
		}
	} else {
		logger.Info("Session Created", "session_id", id)
	}

	client, err := itinera.New(cfg.Server, clientOpts...)
	if err != nil {
		return fmt.Errorf("error initializing client: %w", err)
	}

	runCtx, stop := context.WithCancel(sigCtx)
	defer stop()
	done := make(chan error, 1)
	go func() { done <- client.Run(runCtx) }()

	runner := &itinera.Runner{Input: in, Output: out}
	inputErr := runner.Run(runCtx, client)
	stop()
	runErr := <-done

	if !opts.Quiet {
		logCompletion(out, id, sigCtx.Signal())
	}
	if inputErr != nil {
		return handleExecutionError(inputErr)
	}
	return handleExecutionError(runErr)
}
