// Command zenproof validates a declarative proof configuration and prints the
// proof types it would serve. The engine itself owns no CLI contract; this is
// developer tooling for integration authors.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/prooflab/zenproof/internal/config"
	"github.com/prooflab/zenproof/pkg/proof"
	"github.com/prooflab/zenproof/pkg/proof/model"
	"github.com/prooflab/zenproof/pkg/proof/runtime"
)

func main() {
	log := hclog.Default().Named("zenproof")

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: zenproof <configuration file or directory>...")
		os.Exit(2)
	}

	conf := config.InitConfig()

	merged := &model.Configuration{}
	for _, arg := range os.Args[1:] {
		files, err := configFiles(arg)
		if err != nil {
			log.Error("failed to list configuration files", "path", arg, "error", err)
			os.Exit(1)
		}
		for _, file := range files {
			doc, err := model.LoadFile(file)
			if err != nil {
				log.Error("configuration is invalid", "file", file, "error", err)
				os.Exit(1)
			}
			if err := merged.Merge(doc); err != nil {
				log.Error("configuration does not merge", "file", file, "error", err)
				os.Exit(1)
			}
			log.Info("configuration ok", "file", file)
		}
	}
	if err := merged.Validate(); err != nil {
		log.Error("merged configuration is invalid", "error", err)
		os.Exit(1)
	}

	engine, err := proof.NewEngine(merged,
		proof.EngineWithName(conf.Name),
		proof.EngineWithLogger(log),
		proof.EngineWithSettings(conf.Settings()),
		proof.EngineWithEnv(conf.EnvLookup()),
	)
	if err != nil {
		log.Error("failed to build engine", "error", err)
		os.Exit(1)
	}

	options := engine.ProofTypeOptions(nil, runtime.UserContext{})
	fmt.Printf("%d proof types registered:\n", len(options))
	for _, option := range options {
		fmt.Printf("  %v: %s\n", option.Value, option.Label)
	}
}

func configFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	return files, nil
}
