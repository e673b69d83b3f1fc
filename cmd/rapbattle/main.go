package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"

	"github.com/igolaizola/rapbattle"
	"github.com/igolaizola/rapbattle/pkg/cli"
	"github.com/joho/godotenv"
)

// Build flags
var version = ""
var commit = ""
var date = ""

func main() {
	// Create signal based context
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Load .env before the flags read their defaults
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("couldn't load .env: %v\n", err)
	}

	// Launch command
	cmd := cli.New(version, commit, date)
	if err := cmd.ParseAndRun(ctx, os.Args[1:]); err != nil {
		cancel()
		log.Println(rapbattle.Report(err))
		os.Exit(1)
	}
}
