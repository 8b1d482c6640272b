package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"hierarchical-allocator/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.WithError(err).Fatal("failed to execute command")
		os.Exit(1)
	}
}
