package main

import (
	"os"

	"coloft/internal/config"
	appLog "coloft/internal/log"
)

func main() {
	config.LoadEnv()

	if err := newApp().Run(os.Args); err != nil {
		appLog.Error("coloft failed", err)
		os.Exit(1)
	}
}
