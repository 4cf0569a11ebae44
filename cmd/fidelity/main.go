// Command fidelity compresses a directory of images and reports how much
// quality each compressed copy lost.
//
// Usage:
//
//	fidelity process --src photos --dst out --width 640 --height 480 --format jpeg --quality 80
//	fidelity plot --report results.csv --out charts
//	fidelity clear --report results.csv
//	fidelity score original.png compressed.jpg
//	fidelity runs --archive history.db
//
// Defaults come from FIDELITY_* environment variables, optionally loaded
// from a .env file in the working directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := Config{}
	if err := ReadEnvConfig(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&cfg).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
