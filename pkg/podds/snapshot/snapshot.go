// Package snapshot loads fixture snapshots: everything the engine needs to
// price one match, captured ahead of time by the data layer.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"gopkg.in/yaml.v3"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/podds"
	"github.com/richard-senior/podds/pkg/transport"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported fixture format")
	ErrInvalidFixture    = errors.New("invalid fixture")
)

// League describes the competition and where the fixture sits in the season
type League struct {
	ID          *int     `json:"id,omitempty" yaml:"id,omitempty"`
	Season      *int     `json:"season,omitempty" yaml:"season,omitempty"` // starting year, 2024 for 2024/25
	Name        string   `json:"name" yaml:"name"`
	Round       string   `json:"round,omitempty" yaml:"round,omitempty"` // "Regular Season - 36", "Semi-finals"
	RoundNumber int      `json:"roundNumber,omitempty" yaml:"roundNumber,omitempty"`
	TotalRounds int      `json:"totalRounds,omitempty" yaml:"totalRounds,omitempty"`
	Size        int      `json:"size,omitempty" yaml:"size,omitempty"`
	AvgGoals    *float64 `json:"avgGoals,omitempty" yaml:"avgGoals,omitempty"`
}

type Flags struct {
	PostInternationalBreak bool `json:"postInternationalBreak,omitempty" yaml:"postInternationalBreak,omitempty"`
}

// Fixture is one match with all of its inputs
type Fixture struct {
	ID       string              `json:"id" yaml:"id"`
	League   League              `json:"league" yaml:"league"`
	Kickoff  time.Time           `json:"kickoff,omitempty" yaml:"kickoff,omitempty"`
	Home     podds.TeamData      `json:"home" yaml:"home"`
	Away     podds.TeamData      `json:"away" yaml:"away"`
	H2H      *podds.H2HData      `json:"h2h,omitempty" yaml:"h2h,omitempty"`
	Injuries *podds.InjuryReport `json:"injuries,omitempty" yaml:"injuries,omitempty"`
	Flags    Flags               `json:"flags,omitempty" yaml:"flags,omitempty"`
}

// Validate checks the few fields nothing can default
func (f *Fixture) Validate() error {
	if strings.TrimSpace(f.Home.Name) == "" && f.Home.ID == 0 {
		return fmt.Errorf("%w: home team needs a name or id", ErrInvalidFixture)
	}
	if strings.TrimSpace(f.Away.Name) == "" && f.Away.ID == 0 {
		return fmt.Errorf("%w: away team needs a name or id", ErrInvalidFixture)
	}
	if f.Home.Tier != podds.TierUnknown && !f.Home.Tier.Valid() {
		return fmt.Errorf("%w: home tier %d", ErrInvalidFixture, f.Home.Tier)
	}
	if f.Away.Tier != podds.TierUnknown && !f.Away.Tier.Valid() {
		return fmt.Errorf("%w: away tier %d", ErrInvalidFixture, f.Away.Tier)
	}
	return nil
}

// roundNumber is the explicit round, else the trailing number of the round label
func (l League) roundNumber() int {
	if l.RoundNumber > 0 {
		return l.RoundNumber
	}
	fields := strings.Fields(l.Round)
	if len(fields) == 0 {
		return 0
	}
	n, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil {
		return 0
	}
	return n
}

// ContextInput maps the fixture onto the detector inputs. A zero now means
// kickoff time.
func (f Fixture) ContextInput(now time.Time) podds.ContextInput {
	if now.IsZero() {
		now = f.Kickoff
	}
	season := podds.EndOfSeasonInput{
		Round:       f.League.roundNumber(),
		TotalRounds: f.League.TotalRounds,
		LeagueSize:  f.League.Size,
	}
	in := podds.NewContextInput(f.Home, f.Away, f.League.Name, f.League.Round, season, now)
	in.PostInternationalBreak = f.Flags.PostInternationalBreak
	in.LeagueAvgGoals = f.League.AvgGoals
	return in
}

// Context builds the match context for the fixture
func (f Fixture) Context(now time.Time) podds.MatchContext {
	return podds.BuildMatchContext(f.ContextInput(now))
}

// Load reads a fixture from .json, .yaml, .yml or a saved match page (.html),
// each optionally compressed (.br, .gz)
func Load(path string) (*Fixture, error) {
	data, inner, err := transport.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Decode(data, filepath.Ext(inner))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if f.ID == "" {
		f.ID = strings.TrimSuffix(filepath.Base(inner), filepath.Ext(inner))
	}
	return f, nil
}

// Decode parses fixture bytes in the format named by ext (".json", ".yaml", ".yml", ".html")
func Decode(data []byte, ext string) (*Fixture, error) {
	var f Fixture
	switch strings.ToLower(ext) {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
		}
	case ".html", ".htm":
		raw, err := nextDataFixture(data)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFixture, err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// nextDataFixture pulls props.pageProps.fixture out of a saved Next.js page
func nextDataFixture(html []byte) (json.RawMessage, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}
	script := doc.Find("script#__NEXT_DATA__").First().Text()
	if strings.TrimSpace(script) == "" {
		return nil, fmt.Errorf("%w: could not find __NEXT_DATA__ script tag", ErrInvalidFixture)
	}
	var page struct {
		Props struct {
			PageProps struct {
				Fixture json.RawMessage `json:"fixture"`
			} `json:"pageProps"`
		} `json:"props"`
	}
	if err := json.Unmarshal([]byte(script), &page); err != nil {
		return nil, fmt.Errorf("%w: error parsing __NEXT_DATA__: %v", ErrInvalidFixture, err)
	}
	if len(page.Props.PageProps.Fixture) == 0 {
		return nil, fmt.Errorf("%w: page has no props.pageProps.fixture", ErrInvalidFixture)
	}
	return page.Props.PageProps.Fixture, nil
}

// LoadDir loads every fixture file in dir, sorted by file name. Files in
// unknown formats are skipped.
func LoadDir(dir string) ([]*Fixture, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var out []*Fixture
	for _, name := range names {
		_, inner := transport.SplitEncoding(name)
		if !supported(filepath.Ext(inner)) {
			logger.Debug("Skipping", name)
			continue
		}
		f, err := Load(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".json", ".yaml", ".yml", ".html", ".htm":
		return true
	}
	return false
}
