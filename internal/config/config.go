package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/prooflab/zenproof/pkg/proof"
)

type Config struct {
	Name   string `yaml:"name" json:"name" env:"ZENPROOF_NAME" env-default:"zenproof"` // used as the engine name
	Locale Locale `yaml:"locale" json:"locale"`
	Limits Limits `yaml:"limits" json:"limits"`
	// Env is the static table {{env.NAME}} tokens resolve against, merged over
	// the process environment.
	Env map[string]string `yaml:"env" json:"env"`
}

type Locale struct {
	Language string `yaml:"language" json:"language" env:"ZENPROOF_LANGUAGE" env-default:"en-US"`
	Timezone string `yaml:"timezone" json:"timezone" env:"ZENPROOF_TIMEZONE" env-default:"UTC"`
}

type Limits struct {
	// MaxTokenPasses bounds the token resolver's fixpoint loop
	MaxTokenPasses int `yaml:"maxTokenPasses" json:"maxTokenPasses" env:"ZENPROOF_MAX_TOKEN_PASSES" env-default:"10"`
	// MaxFetchPages bounds dataset pagination loops
	MaxFetchPages int `yaml:"maxFetchPages" json:"maxFetchPages" env:"ZENPROOF_MAX_FETCH_PAGES" env-default:"1000"`
}

func InitConfig() Config {
	c := Config{}
	var fileName string
	confFile := os.Getenv("CONFIG_FILE")
	if confFile == "" {
		wd, err := os.Getwd()
		if err != nil {
			panic(err)
		}
		fileName = fmt.Sprintf("%s/conf.yaml", wd)
	} else {
		fileName = confFile
	}
	var err error
	if _, perr := os.Stat(fileName); errors.Is(perr, os.ErrNotExist) {
		err = cleanenv.ReadEnv(&c)
		fmt.Printf("Configuration file %s not found. Reading config from ENV.\n", fileName)
	} else {
		err = cleanenv.ReadConfig(fileName, &c)
	}
	if err != nil {
		fmt.Printf("Error occurred while reading the configuration: %s\n", err)
		panic(err)
	}
	return c
}

// Settings maps the process configuration onto the engine's settings.
func (c Config) Settings() proof.Settings {
	return proof.Settings{
		Language:       c.Locale.Language,
		Timezone:       c.Locale.Timezone,
		MaxTokenPasses: c.Limits.MaxTokenPasses,
		MaxFetchPages:  c.Limits.MaxFetchPages,
	}
}

// EnvLookup builds the provider {{env.NAME}} tokens resolve through: the
// static table first, the process environment as fallback.
func (c Config) EnvLookup() proof.EnvLookup {
	return chainedEnv{static: proof.EnvMap(c.Env)}
}

type chainedEnv struct {
	static proof.EnvMap
}

func (e chainedEnv) LookupEnv(name string) (string, bool) {
	if v, ok := e.static.LookupEnv(name); ok {
		return v, true
	}
	return os.LookupEnv(name)
}
