package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/richard-senior/podds/internal/config"
	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/podds"
	"github.com/richard-senior/podds/pkg/podds/mlmodel"
	"github.com/richard-senior/podds/pkg/podds/snapshot"
	"github.com/richard-senior/podds/pkg/podds/store"
	"github.com/richard-senior/podds/pkg/tools"
)

// app carries what every command shares once the config is loaded
type app struct {
	configPath string
	logLevel   string
	cfg        *config.Config
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger.SetLevel(level)
	logger.SetShowDateTime(cfg.Log.ShowDateTime)
	if err := logger.SetLogOutput(rune(cfg.Log.Output[0])); err != nil {
		return err
	}
	a.cfg = cfg
	logger.Debug("Loaded configuration", cfg)
	return nil
}

func (a *app) engine() *podds.SimulationConfig {
	return &a.cfg.Engine
}

// predictor loads the tree models when a models directory is configured.
// The nil interface means rule based pricing only.
func (a *app) predictor() (podds.OverUnderPredictor, error) {
	if a.cfg.Models.Dir == "" {
		return nil, nil
	}
	r, err := mlmodel.LoadRegistry(a.cfg.Models.Dir)
	if err != nil {
		return nil, err
	}
	logger.Info("Loaded models", r.Markets())
	return r, nil
}

func (a *app) openStore() (*store.Store, error) {
	s, err := store.Open(a.cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// resolveNow parses an RFC3339 flag, else uses the fixture kickoff, else the
// wall clock
func resolveNow(flag string, f *snapshot.Fixture) (time.Time, error) {
	if flag != "" {
		t, err := time.Parse(time.RFC3339, flag)
		if err != nil {
			return time.Time{}, fmt.Errorf("--now: %w", err)
		}
		return t, nil
	}
	if f != nil && !f.Kickoff.IsZero() {
		return f.Kickoff, nil
	}
	return time.Now().UTC(), nil
}

func checkFormat(format string) (string, error) {
	format = strings.ToLower(format)
	if format != tools.FormatJSON && format != tools.FormatMarkdown {
		return "", fmt.Errorf("--format must be %s or %s", tools.FormatJSON, tools.FormatMarkdown)
	}
	return format, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
