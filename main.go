package main

import (
	"os"

	"github.com/klokku/calendars/internal/app"
	log "github.com/sirupsen/logrus"
)

const defaultConfigPath = "./config/application.yaml"

func init() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	level := os.Getenv("LOG_LEVEL")
	if level != "" {
		logrusLevel, err := log.ParseLevel(level)
		if err != nil {
			log.Fatal(err)
		}
		log.SetLevel(logrusLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

func main() {
	configPath := os.Getenv("CALENDARS_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	application, err := app.NewApplication(configPath)
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	if err := application.Run(); err != nil {
		log.Fatal(err)
	}
}
