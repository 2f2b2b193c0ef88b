package httpapi

import (
	"context"
)

// serverBaseCtx is canceled when the process begins shutting down; submit
// handlers stop work as soon as either it or their request is done.
var serverBaseCtx = context.Background()

// SetBaseContext installs the process lifetime context. A nil ctx restores
// the Background default.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts derives from req, so request-scoped values (route params,
// request id) stay visible, and additionally cancels when base is done.
// The cancel func must be called when the handler returns to release the
// watcher goroutine.
func joinContexts(base, req context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(req)
	go func() {
		select {
		case <-base.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
