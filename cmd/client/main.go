package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/fastchat/internal/client"
	"github.com/dmitrijs2005/fastchat/internal/client/config"
	"github.com/dmitrijs2005/fastchat/internal/logging"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()

	// Log to stderr so structured output does not mix with chat lines.
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	app, err := client.NewApp(cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
		return
	}

	if err := app.Run(ctx); err != nil {
		log.Fatalf("%v", err)
	}

}
