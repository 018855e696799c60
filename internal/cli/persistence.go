package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/itinera/internal/adapters/file"
	"github.com/aretw0/itinera/internal/config"
	"github.com/aretw0/itinera/pkg/adapters/memory"
	redisadapter "github.com/aretw0/itinera/pkg/adapters/redis"
	"github.com/aretw0/itinera/pkg/domain"
	"github.com/aretw0/itinera/pkg/persistence/middleware"
	"github.com/aretw0/itinera/pkg/ports"
	"github.com/aretw0/itinera/pkg/session"
)

// DefaultSessionID is the session slot used when none is configured.
const DefaultSessionID = "default"

// Persistence is the session store selected by the configuration.
type Persistence struct {
	Store   ports.SessionStore
	Manager *session.Manager
	closers []func() error
}

// Close releases the store's connections.
func (p *Persistence) Close() error {
	var errs []error
	for _, c := range p.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// OpenPersistence builds the store chain: the backend, then redaction and
// encryption when configured. The redis backend also provides the session lock.
func OpenPersistence(cfg config.SessionConfig, logger *slog.Logger) (*Persistence, error) {
	p := &Persistence{}
	var (
		base   ports.SessionStore
		locker ports.DistributedLocker
	)

	switch strings.ToLower(cfg.Store) {
	case config.StoreMemory:
		base = memory.NewStore()
	case config.StoreFile, "":
		base = file.New(cfg.Dir)
	case config.StoreRedis:
		rs, err := redisadapter.New(cfg.RedisURL, redisadapter.WithTTL(cfg.TTL))
		if err != nil {
			return nil, err
		}
		base = rs
		locker = redisadapter.NewLocker(rs.Client(), "itinera:")
		p.closers = append(p.closers, rs.Close)
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Store)
	}

	var mws []middleware.Middleware
	if len(cfg.Redact) > 0 {
		mw, err := middleware.NewRedactMiddleware(cfg.Redact)
		if err != nil {
			return nil, errors.Join(err, p.Close())
		}
		mws = append(mws, mw)
	}
	if cfg.Key != "" {
		key, err := middleware.ParseKey(cfg.Key)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("session key: %w", err), p.Close())
		}
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			return nil, errors.Join(err, p.Close())
		}
		mws = append(mws, mw)
	}
	p.Store = middleware.Chain(base, mws...)

	opts := []session.Option{session.WithLogger(logger)}
	if locker != nil {
		opts = append(opts, session.WithLocker(locker))
	}
	p.Manager = session.NewManager(p.Store, opts...)
	return p, nil
}

// ResetSession removes the snapshot stored under sessionID, if any.
func ResetSession(ctx context.Context, m *session.Manager, sessionID string) error {
	err := m.Delete(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	return err
}
