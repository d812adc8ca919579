package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"fieldagent/internal/agent"
	"fieldagent/internal/config"
	"fieldagent/internal/logging"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: fieldagent <login|logout|run|status> [-a url] [-d dir] [-c config.json]")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	command := os.Args[1]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()
	logger := logging.NewDefault(slog.LevelInfo)

	app, err := agent.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	switch command {
	case "login":
		err = app.Login(ctx)
	case "logout":
		err = app.Logout(ctx)
	case "run":
		err = app.Run(ctx)
	case "status":
		err = app.Status(ctx)
	default:
		usage()
	}

	if err != nil {
		log.Fatalf("%v", err)
	}
}
