package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Optional; EXITPICK_* may also come from the real environment.
	_ = godotenv.Load()

	if err := newRootCmd(defaultDeps()).Execute(); err != nil {
		os.Exit(1)
	}
}
