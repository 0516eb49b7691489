package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
)

const stopTimeout = 30 * time.Second

// run starts app and blocks until ctx is cancelled or a component requests shutdown.
// The returned code is the one carried by the shutdown request, or 0.
func run(ctx context.Context, app *fx.App) (int, error) {
	if err := app.Start(ctx); err != nil {
		return 1, fmt.Errorf("failed to start application: %w", err)
	}

	code := 0
	select {
	case <-ctx.Done():
	case sig := <-app.Wait():
		code = sig.ExitCode
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		return 1, fmt.Errorf("failed to stop application: %w", err)
	}
	return code, nil
}
