package tools

import (
	"fmt"
	"html"
	"sort"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/podds"
	"github.com/richard-senior/podds/pkg/podds/sanity"
)

// Reports are assembled as HTML and converted, so escaping stays in one place

// legOrder fixes the display order of probability legs
var legOrder = map[string]int{
	podds.KeyHomeWin: 0, podds.KeyDraw: 1, podds.KeyAwayWin: 2,
	podds.KeyOver: 3, podds.KeyUnder: 4,
	podds.KeyYes: 5, podds.KeyNo: 6,
}

type htmlDoc struct{ b strings.Builder }

func (d *htmlDoc) tag(name, text string) {
	fmt.Fprintf(&d.b, "<%s>%s</%s>", name, html.EscapeString(text), name)
}

func (d *htmlDoc) item(label, value string) {
	fmt.Fprintf(&d.b, "<li><strong>%s</strong>: %s</li>", html.EscapeString(label), html.EscapeString(value))
}

func (d *htmlDoc) list(items func()) {
	d.b.WriteString("<ul>")
	items()
	d.b.WriteString("</ul>")
}

func (d *htmlDoc) markdown() (string, error) {
	md, err := htmltomarkdown.ConvertString(d.b.String())
	if err != nil {
		logger.Error("Failed to convert HTML to Markdown:", err)
		return "", err
	}
	return strings.TrimSpace(md) + "\n", nil
}

func scenarioTitle(sim podds.Simulation) string {
	switch sim.ScenarioType {
	case podds.ScenarioMatchResult:
		return "Match result"
	case podds.ScenarioTotalGoals:
		if sim.Line != nil {
			return fmt.Sprintf("Total goals %.1f", *sim.Line)
		}
		return "Total goals"
	case podds.ScenarioBTTS:
		return "Both teams to score"
	case podds.ScenarioFirstHalf:
		return "First half goal"
	}
	return string(sim.ScenarioType)
}

func (d *htmlDoc) simulation(sim podds.Simulation) {
	d.tag("h2", scenarioTitle(sim))

	keys := make([]string, 0, len(sim.ProbabilityDistribution))
	for k := range sim.ProbabilityDistribution {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return legOrder[keys[i]] < legOrder[keys[j]] })
	d.list(func() {
		for _, k := range keys {
			d.item(k, fmt.Sprintf("%.1f%%", sim.ProbabilityDistribution[k]))
		}
		d.item("strategy", string(sim.Strategy))
		d.item("reliability", fmt.Sprintf("%s (%.0f)", sim.ModelReliability, sim.ReliabilityScore))
		d.item("total adjustment", fmt.Sprintf("%+.2f", sim.TotalAdjustment))
		if len(sim.CapsHit) > 0 {
			d.item("caps hit", strings.Join(sim.CapsHit, ", "))
		}
		if sim.OvercorrectionWarning {
			d.item("overcorrection", "adjustments were scaled back")
		}
	})

	if len(sim.AdjustmentsApplied) > 0 {
		d.tag("h3", "Adjustments")
		d.list(func() {
			for _, a := range sim.AdjustmentsApplied {
				v := fmt.Sprintf("%+.2f", a.Value)
				if a.Reason != "" {
					v += " (" + a.Reason + ")"
				}
				d.item(a.Name, v)
			}
		})
	}
	for _, w := range sim.Warnings {
		d.tag("p", "Warning: "+w)
	}
}

func (d *htmlDoc) warnings(ws []sanity.Warning) {
	if len(ws) == 0 {
		return
	}
	d.tag("h2", "Sanity warnings")
	d.list(func() {
		for _, w := range ws {
			d.item(w.Code, w.Message)
		}
	})
}

// SimulationReport renders simulations as markdown
func SimulationReport(title string, sims []podds.Simulation, warnings []sanity.Warning) (string, error) {
	d := &htmlDoc{}
	d.tag("h1", title)
	for _, sim := range sims {
		d.simulation(sim)
	}
	d.warnings(warnings)
	return d.markdown()
}

// ContextReport renders a match context as markdown
func ContextReport(title string, mc podds.MatchContext) (string, error) {
	d := &htmlDoc{}
	d.tag("h1", title)
	d.list(func() {
		d.item("match type", fmt.Sprintf("%s (%s)", mc.MatchType.Type, mc.MatchType.Importance))
		if mc.Derby.IsDerby {
			d.item("derby", fmt.Sprintf("%s, %s", mc.Derby.Name, mc.Derby.Intensity))
		}
		if mc.EndOfSeason.IsEndOfSeason {
			d.item("stakes", fmt.Sprintf("%s vs %s", mc.SeasonStakes.Home, mc.SeasonStakes.Away))
		}
		if mc.IsSixPointer {
			d.item("six pointer", "yes")
		}
		if mc.IsPostInternationalBreak {
			d.item("international break", "first match back")
		}
		if mc.LeagueAvgGoals != nil {
			d.item("league average goals", fmt.Sprintf("%.2f", *mc.LeagueAvgGoals))
		}
		a := mc.Adjustments
		d.item("goals multiplier", fmt.Sprintf("%.3f", a.GoalsMultiplier))
		d.item("home advantage multiplier", fmt.Sprintf("%.3f", a.HomeAdvantageMultiplier))
		d.item("confidence reduction", fmt.Sprintf("%.1f", a.ConfidenceReduction))
	})
	return d.markdown()
}
