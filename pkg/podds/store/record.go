package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/podds"
	"github.com/richard-senior/podds/pkg/transport"
)

// SimulationRecord is one stored simulation. The full result is kept as
// brotli compressed JSON; the probability legs are copied into columns so
// they can be queried.
type SimulationRecord struct {
	ID          string   `json:"id" column:"id" dbtype:"TEXT NOT NULL" primary:"true"`
	FixtureID   string   `json:"fixtureId" column:"fixture_id" dbtype:"TEXT NOT NULL" index:"true"`
	Scenario    string   `json:"scenario" column:"scenario" dbtype:"TEXT NOT NULL" index:"true"`
	Line        *float64 `json:"line,omitempty" column:"line" dbtype:"REAL"`
	Strategy    string   `json:"strategy" column:"strategy" dbtype:"TEXT NOT NULL"`
	Reliability string   `json:"reliability" column:"reliability" dbtype:"TEXT"`
	InputHash   string   `json:"inputHash" column:"input_hash" dbtype:"TEXT NOT NULL" index:"true"`
	Payload     []byte   `json:"-" column:"payload" dbtype:"BLOB NOT NULL"`
	HomeWin     *float64 `json:"homeWin,omitempty" column:"home_win" dbtype:"REAL"`
	Draw        *float64 `json:"draw,omitempty" column:"draw" dbtype:"REAL"`
	AwayWin     *float64 `json:"awayWin,omitempty" column:"away_win" dbtype:"REAL"`
	Over        *float64 `json:"over,omitempty" column:"over_pct" dbtype:"REAL"`
	Yes         *float64 `json:"yes,omitempty" column:"yes_pct" dbtype:"REAL"`
	WasCapped   bool     `json:"wasCapped" column:"was_capped" dbtype:"INTEGER NOT NULL DEFAULT 0"`
	CreatedAt   int64    `json:"createdAt" column:"created_at" dbtype:"INTEGER NOT NULL"` // unix millis
}

func (r *SimulationRecord) GetTableName() string { return "simulations" }

func (r *SimulationRecord) GetPrimaryKey() map[string]any { return map[string]any{"id": r.ID} }

func (r *SimulationRecord) SetPrimaryKey(pk map[string]any) error {
	id, ok := pk["id"].(string)
	if !ok {
		return fmt.Errorf("primary key id must be a string, got %T", pk["id"])
	}
	r.ID = id
	return nil
}

func (r *SimulationRecord) BeforeSave() error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	} else if _, err := uuid.Parse(r.ID); err != nil {
		return fmt.Errorf("invalid record id %q: %w", r.ID, err)
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = time.Now().UnixMilli()
	}
	if len(r.Payload) == 0 {
		return fmt.Errorf("record %s has no payload", r.ID)
	}
	return nil
}

func (r *SimulationRecord) AfterSave() error    { return nil }
func (r *SimulationRecord) BeforeDelete() error { return nil }
func (r *SimulationRecord) AfterDelete() error  { return nil }

// Created is CreatedAt as a time
func (r *SimulationRecord) Created() time.Time { return time.UnixMilli(r.CreatedAt).UTC() }

// Simulation decodes the stored result
func (r *SimulationRecord) Simulation() (podds.Simulation, error) {
	var sim podds.Simulation
	raw, err := transport.DecompressBrotli(r.Payload)
	if err != nil {
		return sim, fmt.Errorf("record %s: %w", r.ID, err)
	}
	if err := json.Unmarshal(raw, &sim); err != nil {
		return sim, fmt.Errorf("record %s: %w", r.ID, err)
	}
	return sim, nil
}

// HashInput is the hex sha256 of the JSON encoding of input. Struct fields
// encode in declaration order and map keys sorted, so equal inputs hash equal.
func HashInput(input any) (string, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("failed to encode input: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// NewRecord builds an unsaved record for sim computed from input
func NewRecord(fixtureID string, input any, sim podds.Simulation) (*SimulationRecord, error) {
	hash, err := HashInput(input)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(sim)
	if err != nil {
		return nil, fmt.Errorf("failed to encode simulation: %w", err)
	}
	payload, err := transport.CompressBrotli(data)
	if err != nil {
		return nil, err
	}
	r := &SimulationRecord{
		FixtureID:   fixtureID,
		Scenario:    string(sim.ScenarioType),
		Line:        sim.Line,
		Strategy:    string(sim.Strategy),
		Reliability: string(sim.ModelReliability),
		InputHash:   hash,
		Payload:     payload,
		WasCapped:   len(sim.CapsHit) > 0,
	}
	leg := func(key string) *float64 {
		if v, ok := sim.ProbabilityDistribution[key]; ok {
			return &v
		}
		return nil
	}
	r.HomeWin = leg(podds.KeyHomeWin)
	r.Draw = leg(podds.KeyDraw)
	r.AwayWin = leg(podds.KeyAwayWin)
	r.Over = leg(podds.KeyOver)
	r.Yes = leg(podds.KeyYes)
	return r, nil
}

// Migrate creates the simulations table
func (s *Store) Migrate() error {
	return s.CreateTable(&SimulationRecord{})
}

// Record stores sim for the fixture and returns the saved record
func (s *Store) Record(fixtureID string, input any, sim podds.Simulation) (*SimulationRecord, error) {
	r, err := NewRecord(fixtureID, input, sim)
	if err != nil {
		return nil, err
	}
	if err := s.Save(r); err != nil {
		return nil, err
	}
	logger.Debug("Stored simulation", r.ID, r.FixtureID, r.Scenario)
	return r, nil
}

// FindByID loads one record
func (s *Store) FindByID(id string) (*SimulationRecord, error) {
	r := &SimulationRecord{}
	if err := s.FindByPrimaryKey(r, map[string]any{"id": id}); err != nil {
		return nil, fmt.Errorf("simulation %s: %w", id, err)
	}
	return r, nil
}

// FindByFixture lists a fixture's records, oldest first
func (s *Store) FindByFixture(fixtureID string) ([]*SimulationRecord, error) {
	rows, err := s.FindWhere(&SimulationRecord{}, "fixture_id = ? ORDER BY created_at, id", fixtureID)
	if err != nil {
		return nil, err
	}
	out := make([]*SimulationRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.(*SimulationRecord))
	}
	return out, nil
}

// Verify reports whether recomputed encodes to exactly the stored payload
func Verify(r *SimulationRecord, recomputed podds.Simulation) (bool, error) {
	stored, err := transport.DecompressBrotli(r.Payload)
	if err != nil {
		return false, fmt.Errorf("record %s: %w", r.ID, err)
	}
	fresh, err := json.Marshal(recomputed)
	if err != nil {
		return false, fmt.Errorf("failed to encode simulation: %w", err)
	}
	return bytes.Equal(stored, fresh), nil
}

// SameInput reports whether input hashes to the record's input hash
func (r *SimulationRecord) SameInput(input any) (bool, error) {
	hash, err := HashInput(input)
	if err != nil {
		return false, err
	}
	return hash == r.InputHash, nil
}
