package mcp

import (
	"context"
	"os"
	"time"

	"github.com/dpopsuev/tribunal/internal/logging"
)

// WatchParent monitors the parent process in a background goroutine.
// When the parent PID changes (the MCP client disconnected or restarted
// its host), cancel is called so the stdio server cannot linger as a
// zombie.
//
// It must never read stdin: the SDK's StdioTransport owns stdin
// exclusively, and stealing bytes here would corrupt the JSON-RPC
// stream. The goroutine exits when ctx is cancelled or parent death is
// detected.
func WatchParent(ctx context.Context, cancel context.CancelFunc) {
	ppid := os.Getppid()
	log := logging.New("mcp")
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
				if os.Getppid() != ppid {
					log.Warn("parent process died, shutting down", "was_pid", ppid)
					cancel()
					return
				}
			}
		}
	}()
}
