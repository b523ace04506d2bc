//go:build !windows

package main

import (
	"context"

	"procmon/internal/utils"
)

const trayAvailable = false

// runTray is a no-op on non-Windows platforms.
func runTray(ctx context.Context, feed trayFeed, quit context.CancelFunc, logger *utils.Logger) {}
