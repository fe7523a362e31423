package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/genomehub/stackctl/pkg/logging"
)

// appLogger is the process-wide logger, configured from the global
// flags before any command body runs.
var appLogger *logging.Logger

func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			log.Fatalf("Error: %v (expected debug, info, warn, or error)", err)
		}
		appLogger = logging.New(logging.Config{
			Level:   level,
			Service: "stackctl",
			Quiet:   quiet,
		})
	}
}

func main() {
	defer func() {
		if appLogger != nil {
			appLogger.Close()
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
