package tools

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/podds"
	"github.com/richard-senior/podds/pkg/podds/batch"
	"github.com/richard-senior/podds/pkg/podds/sanity"
	"github.com/richard-senior/podds/pkg/podds/snapshot"
	"github.com/richard-senior/podds/pkg/podds/store"
	"github.com/richard-senior/podds/pkg/protocol"
	"github.com/richard-senior/podds/pkg/util"
)

const (
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// HandlerFunc handles the arguments of one tool call
type HandlerFunc func(params any) (any, error)

// Definition pairs a tool with its handler
type Definition struct {
	Tool    protocol.Tool
	Handler HandlerFunc
}

// Podds serves the simulators as tools. Store is optional; when set every
// simulation is recorded.
type Podds struct {
	Config    *podds.SimulationConfig
	Predictor podds.OverUnderPredictor
	Store     *store.Store
	Clock     func() time.Time
}

// SimulationOutput is the JSON body of a simulate tool result
type SimulationOutput struct {
	FixtureID  string           `json:"fixtureId"`
	Home       string           `json:"home"`
	Away       string           `json:"away"`
	Simulation podds.Simulation `json:"simulation"`
	Warnings   []sanity.Warning `json:"warnings,omitempty"`
	RecordID   string           `json:"recordId,omitempty"`
}

func fixtureProperties() map[string]protocol.ToolProperty {
	return map[string]protocol.ToolProperty{
		"fixture": {
			Type:        "object",
			Description: "The fixture snapshot: league, kickoff, home and away team data, optional h2h, injuries and flags.",
		},
		"path": {
			Type:        "string",
			Description: "Path to a fixture snapshot file (.json, .yaml, .html, optionally .br or .gz). Used when fixture is not given.",
		},
		"format": {
			Type:        "string",
			Description: "Output format.",
			Enum:        []string{FormatJSON, FormatMarkdown},
		},
		"now": {
			Type:        "string",
			Description: "RFC3339 time the context is evaluated at. Defaults to the fixture kickoff.",
		},
	}
}

func simulateTool(name, description string, extra map[string]protocol.ToolProperty) protocol.Tool {
	props := fixtureProperties()
	for k, v := range extra {
		props[k] = v
	}
	return protocol.Tool{
		Name:        name,
		Description: description,
		InputSchema: protocol.InputSchema{Type: "object", Properties: props, Required: []string{}},
	}
}

// Tools lists every podds tool with its handler
func (p *Podds) Tools() []Definition {
	return []Definition{
		{
			Tool: simulateTool("podds_simulate_match",
				"Probabilities of home win, draw and away win for a football fixture, with every adjustment that moved them.", nil),
			Handler: p.HandleSimulateMatch,
		},
		{
			Tool: simulateTool("podds_simulate_goals",
				"Probability of over and under a total goals line for a football fixture.",
				map[string]protocol.ToolProperty{
					"line": {Type: "number", Description: "Goal line: 0.5, 1.5, 2.5, 3.5, 4.5 or 5.5. Defaults to 2.5."},
				}),
			Handler: p.HandleSimulateGoals,
		},
		{
			Tool:    simulateTool("podds_simulate_btts", "Probability that both teams score in a football fixture.", nil),
			Handler: p.HandleSimulateBTTS,
		},
		{
			Tool:    simulateTool("podds_simulate_first_half", "Probability of at least one goal before half time.", nil),
			Handler: p.HandleSimulateFirstHalf,
		},
		{
			Tool: simulateTool("podds_match_context",
				"Detected context of a football fixture: match type, derby, end of season stakes and the adjustments they imply.", nil),
			Handler: p.HandleMatchContext,
		},
	}
}

func (p *Podds) now() time.Time {
	if p.Clock != nil {
		return p.Clock()
	}
	return time.Now()
}

// call is the parsed common arguments of every tool
type call struct {
	params  util.Params
	fixture *snapshot.Fixture
	now     time.Time
	format  string
}

func (p *Podds) parse(params any) (*call, error) {
	args, err := util.AsParams(params)
	if err != nil {
		return nil, err
	}
	c := &call{params: args}

	switch {
	case args.Has("fixture"):
		data, err := json.Marshal(args["fixture"])
		if err != nil {
			return nil, fmt.Errorf("fixture: %w", err)
		}
		if c.fixture, err = snapshot.Decode(data, ".json"); err != nil {
			return nil, err
		}
		if c.fixture.ID == "" {
			c.fixture.ID = "fixture"
		}
	case args.Has("path"):
		path, err := args.String("path", "")
		if err != nil {
			return nil, err
		}
		if c.fixture, err = snapshot.Load(path); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("either fixture or path is required")
	}

	if c.format, err = args.String("format", FormatJSON); err != nil {
		return nil, err
	}
	c.format = strings.ToLower(c.format)
	if c.format != FormatJSON && c.format != FormatMarkdown {
		return nil, fmt.Errorf("format must be %s or %s, got %q", FormatJSON, FormatMarkdown, c.format)
	}

	raw, err := args.String("now", "")
	if err != nil {
		return nil, err
	}
	switch {
	case raw != "":
		if c.now, err = time.Parse(time.RFC3339, raw); err != nil {
			return nil, fmt.Errorf("now: %w", err)
		}
	case c.fixture.Kickoff.IsZero():
		c.now = p.now()
	default:
		c.now = c.fixture.Kickoff
	}
	return c, nil
}

func (p *Podds) runner(lines ...float64) *batch.Runner {
	return &batch.Runner{Config: p.Config, Predictor: p.Predictor, Lines: lines, Sanity: true}
}

func (p *Podds) simulate(params any, market batch.Market) (any, error) {
	c, err := p.parse(params)
	if err != nil {
		return nil, err
	}
	var lines []float64
	if market == batch.MarketGoals {
		line, err := c.params.Float("line", 2.5)
		if err != nil {
			return nil, err
		}
		lines = []float64{line}
	}
	r := p.runner(lines...)
	r.Markets = []batch.Market{market}
	res, err := r.Simulate(c.fixture, c.now)
	if err != nil {
		return nil, err
	}
	sim := res.Simulations[0]
	logger.Info("Simulated", c.fixture.ID, sim.ScenarioType, sim.ProbabilityDistribution)

	out := SimulationOutput{
		FixtureID:  res.FixtureID,
		Home:       res.Home,
		Away:       res.Away,
		Simulation: sim,
		Warnings:   res.Warnings,
	}
	if p.Store != nil {
		rec, err := p.Store.Record(c.fixture.ID, r.Input(c.fixture, res.EvaluatedAt), sim)
		if err != nil {
			return nil, err
		}
		out.RecordID = rec.ID
	}

	if c.format == FormatMarkdown {
		md, err := SimulationReport(fmt.Sprintf("%s vs %s", res.Home, res.Away), []podds.Simulation{sim}, res.Warnings)
		if err != nil {
			return nil, err
		}
		if out.RecordID != "" {
			md += "\nRecord: " + out.RecordID + "\n"
		}
		return protocol.TextResult(md), nil
	}
	return jsonResult(out)
}

func jsonResult(v any) (any, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return protocol.TextResult(string(b)), nil
}

func (p *Podds) HandleSimulateMatch(params any) (any, error) {
	return p.simulate(params, batch.MarketMatch)
}

func (p *Podds) HandleSimulateGoals(params any) (any, error) {
	return p.simulate(params, batch.MarketGoals)
}

func (p *Podds) HandleSimulateBTTS(params any) (any, error) {
	return p.simulate(params, batch.MarketBTTS)
}

func (p *Podds) HandleSimulateFirstHalf(params any) (any, error) {
	return p.simulate(params, batch.MarketFirstHalf)
}

// HandleMatchContext reports the detected context without pricing anything
func (p *Podds) HandleMatchContext(params any) (any, error) {
	c, err := p.parse(params)
	if err != nil {
		return nil, err
	}
	mc := c.fixture.Context(c.now)
	if c.format == FormatMarkdown {
		md, err := ContextReport(fmt.Sprintf("%s vs %s", c.fixture.Home.Name, c.fixture.Away.Name), mc)
		if err != nil {
			return nil, err
		}
		return protocol.TextResult(md), nil
	}
	return jsonResult(mc)
}
