package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

const envPrefix = "CALENDARS_"

type Application struct {
	Listen   string   `koanf:"listen"`
	Calendar Calendar `koanf:"calendar"`
	Import   Import   `koanf:"import"`
	Snapshot Snapshot `koanf:"snapshot"`
}

// Calendar is created on startup and selected as the active calendar.
type Calendar struct {
	Name     string `koanf:"name"`
	Timezone string `koanf:"timezone"`
}

type Import struct {
	Mode string `koanf:"mode"`
}

type Snapshot struct {
	Enabled  bool   `koanf:"enabled"`
	Path     string `koanf:"path"`
	Schedule string `koanf:"schedule"`
}

func Defaults() Application {
	return Application{
		Listen: ":8181",
		Calendar: Calendar{
			Name:     "Default",
			Timezone: "UTC",
		},
		Import: Import{
			Mode: "strict",
		},
		Snapshot: Snapshot{
			Enabled:  true,
			Path:     "./data/calendar.csv",
			Schedule: "@every 1m",
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, envPrefix)), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
