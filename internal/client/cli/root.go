package cli

import (
	"context"
	"fmt"
	"log"
)

func (a *App) getStatus() string {
	if a.userName == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", a.userName)
}

// Root runs the REPL on the app's input until the user exits.
func (a *App) Root(ctx context.Context) {
	log.Printf("Pledge board CLI, server %s (type 'help' for commands)", a.config.ServerEndpointAddr)
	runREPL(ctx, a, a.getStatus, a.reader)
}
