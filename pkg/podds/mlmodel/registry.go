package mlmodel

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/podds"
	"github.com/richard-senior/podds/pkg/transport"
)

const (
	Market1X2  = "1x2"
	MarketBTTS = "btts"
)

// Markets lists every market the exporter produces
var Markets = []string{Market1X2, MarketBTTS, "ou_0_5", "ou_1_5", "ou_2_5", "ou_3_5", "ou_4_5", "ou_5_5"}

// OverUnderMarket names the model for a goal line, 2.5 gives "ou_2_5"
func OverUnderMarket(line float64) string {
	return "ou_" + strings.ReplaceAll(podds.LineKey(line), ".", "_")
}

// Registry holds the loaded models keyed by market. It is read only after
// loading and safe for concurrent use.
type Registry struct {
	models map[string]*Model
}

// NewRegistry builds a registry from already parsed models
func NewRegistry(models map[string]*Model) *Registry {
	r := &Registry{models: make(map[string]*Model, len(models))}
	for k, m := range models {
		r.models[k] = m
	}
	return r
}

// LoadRegistry reads <dir>/<market>/model.json or model.json.br for every
// known market. Missing markets are skipped, broken ones are an error.
func LoadRegistry(dir string) (*Registry, error) {
	r := &Registry{models: map[string]*Model{}}
	for _, market := range Markets {
		m, err := loadMarket(dir, market)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load %s model: %w", market, err)
		}
		r.models[market] = m
		logger.Info("Loaded model", market, "with", len(m.Trees), "trees")
	}
	if len(r.models) == 0 {
		logger.Warn("No models found under", dir)
	}
	return r, nil
}

func loadMarket(dir, market string) (*Model, error) {
	base := filepath.Join(dir, market, "model.json")
	for _, p := range []string{base, base + ".br"} {
		data, _, err := transport.ReadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return Parse(data)
	}
	return nil, fmt.Errorf("%s: %w", base, os.ErrNotExist)
}

// Markets returns the loaded market names, sorted
func (r *Registry) Markets() []string {
	out := make([]string, 0, len(r.models))
	for k := range r.models {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) model(market string) (*Model, error) {
	if r == nil {
		return nil, fmt.Errorf("%w %s", ErrUnknownMarket, market)
	}
	m, ok := r.models[market]
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrUnknownMarket, market)
	}
	return m, nil
}

// SupportsLine implements podds.OverUnderPredictor
func (r *Registry) SupportsLine(line float64) bool {
	_, err := r.model(OverUnderMarket(line))
	return err == nil
}

// PredictOver implements podds.OverUnderPredictor
func (r *Registry) PredictOver(line float64, features map[string]float64) (float64, error) {
	m, err := r.model(OverUnderMarket(line))
	if err != nil {
		return 0, err
	}
	return binary(m, features)
}

// PredictBTTS returns P(both teams score) in 0..1
func (r *Registry) PredictBTTS(features map[string]float64) (float64, error) {
	m, err := r.model(MarketBTTS)
	if err != nil {
		return 0, err
	}
	return binary(m, features)
}

// Predict1X2 returns home, draw and away probabilities in 0..1.
// Class order follows the training labels: 0 home, 1 draw, 2 away.
func (r *Registry) Predict1X2(features map[string]float64) (home, draw, away float64, err error) {
	m, err := r.model(Market1X2)
	if err != nil {
		return 0, 0, 0, err
	}
	if m.Metadata.NumClass != 3 {
		return 0, 0, 0, fmt.Errorf("%w: 1x2 model has %d classes", ErrBadModel, m.Metadata.NumClass)
	}
	p := m.Predict(features)
	return p[0], p[1], p[2], nil
}

func binary(m *Model, features map[string]float64) (float64, error) {
	if m.Metadata.NumClass != 1 {
		return 0, fmt.Errorf("%w: %s is not a binary model", ErrBadModel, m.Metadata.Market)
	}
	return m.Predict(features)[0], nil
}

var _ podds.OverUnderPredictor = (*Registry)(nil)
