package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/reoring/rpcschema/internal/logging"
)

type fileConfig struct {
	APIFiles   []string `toml:"api_files"`
	APIDirs    []string `toml:"api_dirs"`
	LogLevel   string   `toml:"log_level"`
	LogConsole bool     `toml:"log_console"`
	LogNoColor bool     `toml:"log_nocolor"`
	Language   string   `toml:"language"`
}

type cliConfig struct {
	// APIPaths lists files and directories to register, files first.
	APIPaths []string
	Log      logging.Config
	Language string
}

func defaultConfig() cliConfig {
	return cliConfig{
		APIPaths: []string{},
		Log:      logging.DefaultConfig(),
		Language: "en",
	}
}

// loadConfig overlays the keys present in the TOML file at path on the
// defaults. An empty path yields the defaults.
func loadConfig(path string) (cliConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return cliConfig{}, fmt.Errorf("load rpcschema config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return cliConfig{}, fmt.Errorf("load rpcschema config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("api_files") {
		cfg.APIPaths = append(cfg.APIPaths, normalizePaths(raw.APIFiles)...)
	}
	if meta.IsDefined("api_dirs") {
		cfg.APIPaths = append(cfg.APIPaths, normalizePaths(raw.APIDirs)...)
	}
	if meta.IsDefined("log_level") {
		lvl, ok := logging.ParseLevel(raw.LogLevel)
		if !ok {
			return cliConfig{}, fmt.Errorf("parse log_level: unknown level %q", raw.LogLevel)
		}
		cfg.Log.Level = lvl
	}
	if meta.IsDefined("log_console") {
		cfg.Log.Console = raw.LogConsole
	}
	if meta.IsDefined("log_nocolor") {
		cfg.Log.NoColor = raw.LogNoColor
	}
	if meta.IsDefined("language") {
		lang := strings.ToLower(strings.TrimSpace(raw.Language))
		switch lang {
		case "en", "ja":
			cfg.Language = lang
		default:
			return cliConfig{}, fmt.Errorf("parse language: unsupported %q", raw.Language)
		}
	}
	return cfg, nil
}

func normalizePaths(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		v := strings.TrimSpace(p)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
