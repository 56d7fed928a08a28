package main

import (
	"flag"
	"log/slog"
	"os"

	_ "github.com/scaf-dev/scaf/docs" // Load swagger docs
	"github.com/scaf-dev/scaf/internal/server"
)

// Version is set via ldflags at build time
var Version = "dev"

// @title Scaf API
// @version 1.0
// @description Project-scaffolding template marketplace API
// @host localhost:8470
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	port := flag.Int("port", 0, "Port to run the server on (overrides config)")
	flag.Parse()

	if err := server.RunWithSignalHandling(server.Config{
		Port:    *port,
		Version: Version,
	}); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}
