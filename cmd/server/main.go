package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Emupedia/emupedia-game-agar.io-sub000/internal/app"
)

func main() {
	configPath := flag.String("config", "", "optional YAML config layered over the defaults")
	envFile := flag.String("env", ".env", "dotenv file loaded before environment overrides")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Config{ConfigPath: *configPath, EnvFiles: []string{*envFile}}); err != nil {
		log.Fatalf("%v", err)
	}
}
