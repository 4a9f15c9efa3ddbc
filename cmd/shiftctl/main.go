package main

import (
	"fmt"
	"os"

	"github.com/diegoclair/shift-notify-bot/internal/cli"
	"github.com/joho/godotenv"
)

func main() {
	// Missing .env is fine, flags and the environment still apply.
	_ = godotenv.Load()

	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
