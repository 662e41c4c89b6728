// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/plutosync/internal/log"
)

// ShutdownHook releases one resource during shutdown.
type ShutdownHook func(ctx context.Context) error

type namedHook struct {
	name string
	hook ShutdownHook
}

// shutdownHooks run in reverse registration order (LIFO).
type shutdownHooks struct {
	mu    sync.Mutex
	hooks []namedHook
}

func (h *shutdownHooks) add(name string, hook ShutdownHook) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, namedHook{name: name, hook: hook})
}

// run executes and forgets the registered hooks. Every hook runs even when
// an earlier one fails.
func (h *shutdownHooks) run(ctx context.Context) error {
	h.mu.Lock()
	hooks := h.hooks
	h.hooks = nil
	h.mu.Unlock()

	logger := log.WithComponent("daemon")
	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		start := time.Now()
		if err := hook.hook(ctx); err != nil {
			logger.Error().
				Err(err).
				Str("hook", hook.name).
				Dur("duration", time.Since(start)).
				Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", hook.name, err))
			continue
		}
		logger.Debug().
			Str("hook", hook.name).
			Dur("duration", time.Since(start)).
			Msg("shutdown hook completed")
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}
