package main

import (
	"os"

	"blogsmith/cmd/handlers"
	"blogsmith/internal/logger"
)

func main() {
	logger.Init()
	if err := handlers.Execute(); err != nil {
		os.Exit(1)
	}
}
