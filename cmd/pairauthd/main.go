// Command pairauthd serves the pair-token auth API over HTTP.
package main

import (
	"log/slog"
	"os"
)

func main() {
	app, err := NewApp(LoadConfig())
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	if err := app.Run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
