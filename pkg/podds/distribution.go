package podds

// GoalDistributionResult is the priced score matrix for one fixture.
// Probabilities are percentages.
type GoalDistributionResult struct {
	LambdaHome float64                   `json:"lambdaHome"`
	LambdaAway float64                   `json:"lambdaAway"`
	Matrix     [][]float64               `json:"matrix"` // Matrix[h][a], sums to 1
	HomeWin    float64                   `json:"homeWin"`
	Draw       float64                   `json:"draw"`
	AwayWin    float64                   `json:"awayWin"`
	BTTSYes    float64                   `json:"bttsYes"`
	BTTSNo     float64                   `json:"bttsNo"`
	Lines      []LineProbability         `json:"lines"`
	Modifiers  GoalDistributionModifiers `json:"modifiers"`
}

// LineProbability is the over/under split at one goal line
type LineProbability struct {
	Line  float64 `json:"line"`
	Over  float64 `json:"over"`
	Under float64 `json:"under"`
}

// OverAt returns the Over percentage at line, computing it from the matrix
// when the line was not part of the configured set
func (r GoalDistributionResult) OverAt(line float64) float64 {
	for _, lp := range r.Lines {
		if lp.Line == line {
			return lp.Over
		}
	}
	return overProbability(r.Matrix, line) * 100
}

// MostLikelyScore returns the modal scoreline
func (r GoalDistributionResult) MostLikelyScore() (home, away int) {
	best := -1.0
	for h, row := range r.Matrix {
		for a, p := range row {
			if p > best {
				best, home, away = p, h, a
			}
		}
	}
	return home, away
}

// BuildGoalDistribution prices the score matrix for home vs away.
// A nil modifiers pointer means neutral modifiers.
func BuildGoalDistribution(home, away TeamData, config SimulationConfig, modifiers *GoalDistributionModifiers) GoalDistributionResult {
	cfg := resolveConfig(&config)
	mods := NeutralModifiers()
	if modifiers != nil {
		mods = *modifiers
	}
	return buildDistribution(resolveTeam(home), resolveTeam(away), cfg, mods)
}

func buildDistribution(home, away resolvedTeam, cfg SimulationConfig, mods GoalDistributionModifiers) GoalDistributionResult {
	lh, la := expectedGoals(home, away, cfg, mods)
	return distributionFromLambdas(lh, la, cfg, mods)
}

func distributionFromLambdas(lh, la float64, cfg SimulationConfig, mods GoalDistributionModifiers) GoalDistributionResult {
	matrix := scoreMatrix(lh, la, cfg.MaxGoals)
	matrix = dixonColesCorrection(matrix, lh, la, cfg.DixonColesRho)

	homeWin, draw, awayWin := matchOutcomeProbabilities(matrix)
	btts := bttsProbability(matrix)

	lines := cfg.linesOrDefault()
	lps := make([]LineProbability, 0, len(lines))
	for _, line := range lines {
		over := overProbability(matrix, line) * 100
		lps = append(lps, LineProbability{Line: line, Over: over, Under: 100 - over})
	}

	return GoalDistributionResult{
		LambdaHome: lh,
		LambdaAway: la,
		Matrix:     matrix,
		HomeWin:    homeWin * 100,
		Draw:       draw * 100,
		AwayWin:    awayWin * 100,
		BTTSYes:    btts * 100,
		BTTSNo:     (1 - btts) * 100,
		Lines:      lps,
		Modifiers:  mods,
	}
}

// expectedGoals blends season and recent-form rates into the two lambdas
func expectedGoals(home, away resolvedTeam, cfg SimulationConfig, mods GoalDistributionModifiers) (float64, float64) {
	seasonHome := (home.homeScored*mods.AttackHome + away.awayConceded*mods.DefenseAway) / 2
	seasonAway := (away.awayScored*mods.AttackAway + home.homeConceded*mods.DefenseHome) / 2

	homeFor, homeAgainst, okHome := recentRates(home.recentWindow(cfg.RecentMatchesCount))
	awayFor, awayAgainst, okAway := recentRates(away.recentWindow(cfg.RecentMatchesCount))
	if !okHome {
		homeFor, homeAgainst = home.homeScored, home.homeConceded
	}
	if !okAway {
		awayFor, awayAgainst = away.awayScored, away.awayConceded
	}
	recentHome := (homeFor*mods.AttackHome + awayAgainst*mods.DefenseAway) / 2
	recentAway := (awayFor*mods.AttackAway + homeAgainst*mods.DefenseHome) / 2

	w := cfg.RecentFormWeight
	lh := clamp((1-w)*seasonHome+w*recentHome, minLambda, maxLambda)
	la := clamp((1-w)*seasonAway+w*recentAway, minLambda, maxLambda)

	g := mods.GlobalGoals
	if g <= 0 {
		g = 1
	}
	return clamp(lh*g, minLambda, maxLambda), clamp(la*g, minLambda, maxLambda)
}

// recentRates averages goals for and against over the window. With enough
// xG bearing matches the goal rates are blended 70/30 with expected goals.
func recentRates(matches []RecentMatch) (goalsFor, goalsAgainst float64, ok bool) {
	if len(matches) == 0 {
		return 0, 0, false
	}
	var gf, ga, xf, xa float64
	xgMatches := 0
	for _, m := range matches {
		gf += float64(m.GoalsFor)
		ga += float64(m.GoalsAgainst)
		if m.HasXG() {
			xf += *m.XGFor
			xa += *m.XGAgainst
			xgMatches++
		}
	}
	n := float64(len(matches))
	goalsFor, goalsAgainst = gf/n, ga/n
	if xgMatches >= minXGMatches {
		k := float64(xgMatches)
		goalsFor = 0.7*goalsFor + 0.3*(xf/k)
		goalsAgainst = 0.7*goalsAgainst + 0.3*(xa/k)
	}
	return goalsFor, goalsAgainst, true
}

// scoreMatrix is the independent Poisson product over [0..maxGoals]^2
func scoreMatrix(lh, la float64, maxGoals int) [][]float64 {
	hp := make([]float64, maxGoals+1)
	ap := make([]float64, maxGoals+1)
	for k := 0; k <= maxGoals; k++ {
		hp[k] = poissonPMF(k, lh)
		ap[k] = poissonPMF(k, la)
	}
	matrix := make([][]float64, maxGoals+1)
	for h := range matrix {
		matrix[h] = make([]float64, maxGoals+1)
		for a := range matrix[h] {
			matrix[h][a] = hp[h] * ap[a]
		}
	}
	return renormalizeMatrix(matrix)
}

// calculateTau is the Dixon-Coles dependence factor for low scores
func calculateTau(homeGoals, awayGoals int, lh, la, rho float64) float64 {
	switch {
	case homeGoals == 0 && awayGoals == 0:
		return 1 - lh*la*rho
	case homeGoals == 1 && awayGoals == 0:
		return 1 + la*rho
	case homeGoals == 0 && awayGoals == 1:
		return 1 + lh*rho
	case homeGoals == 1 && awayGoals == 1:
		return 1 - rho
	}
	return 1
}

// dixonColesCorrection adjusts the four low-score cells and renormalizes.
// The input matrix is not modified.
func dixonColesCorrection(matrix [][]float64, lh, la, rho float64) [][]float64 {
	corrected := make([][]float64, len(matrix))
	for i := range matrix {
		corrected[i] = append([]float64(nil), matrix[i]...)
	}
	if rho == 0 || len(corrected) < 2 {
		return corrected
	}
	for h := 0; h <= 1; h++ {
		for a := 0; a <= 1; a++ {
			corrected[h][a] *= max(calculateTau(h, a, lh, la, rho), 0)
		}
	}
	return renormalizeMatrix(corrected)
}

// renormalizeMatrix scales the matrix in place so it sums to 1
func renormalizeMatrix(matrix [][]float64) [][]float64 {
	total := 0.0
	for _, row := range matrix {
		for _, p := range row {
			total += p
		}
	}
	if total <= 0 {
		return matrix
	}
	for _, row := range matrix {
		for a := range row {
			row[a] /= total
		}
	}
	return matrix
}

// matchOutcomeProbabilities sums the lower triangle, diagonal and upper triangle
func matchOutcomeProbabilities(matrix [][]float64) (homeWin, draw, awayWin float64) {
	for h, row := range matrix {
		for a, p := range row {
			switch {
			case h > a:
				homeWin += p
			case h == a:
				draw += p
			default:
				awayWin += p
			}
		}
	}
	return homeWin, draw, awayWin
}

func bttsProbability(matrix [][]float64) float64 {
	p := 0.0
	for h := 1; h < len(matrix); h++ {
		for a := 1; a < len(matrix[h]); a++ {
			p += matrix[h][a]
		}
	}
	return p
}

func overProbability(matrix [][]float64, line float64) float64 {
	p := 0.0
	for h, row := range matrix {
		for a, v := range row {
			if float64(h+a) > line {
				p += v
			}
		}
	}
	return p
}
