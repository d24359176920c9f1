package main

import (
	"os"

	"github.com/SaiNageswarS/course-rag/appconfig"
	"github.com/SaiNageswarS/go-api-boot/dotenv"
	"github.com/SaiNageswarS/go-api-boot/logger"
	"go.uber.org/zap"
)

// Version is set via -ldflags at build time.
var Version = "dev"

func main() {
	dotenv.LoadEnv()

	cfg, err := appconfig.Load("config.ini")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	app := newCLIApp(&env{cfg: cfg, in: os.Stdin, out: os.Stdout, errOut: os.Stderr})
	if err := app.Run(os.Args); err != nil {
		logger.Fatal("Command failed", zap.Error(err))
	}
}
