package kpi

import (
	"context"
	"errors"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/brokerage-cli/internal/calcerr"
)

// Standing is one leaderboard row.
type Standing struct {
	Rank    int         `json:"rank"`
	AgentID string      `json:"agent_id"`
	Score   float64     `json:"score"`
	KPIs    MonthlyKPIs `json:"kpis"`
}

// Leaderboard ranks agents by their composite score under w, highest first.
// Ties share a rank (1, 1, 3) and are listed by agent id.
func Leaderboard(kpis []MonthlyKPIs, w ScoreWeights) []Standing {
	standings := make([]Standing, len(kpis))
	for i, k := range kpis {
		standings[i] = Standing{AgentID: k.AgentID, Score: w.Composite(k), KPIs: k}
	}

	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].Score != standings[j].Score {
			return standings[i].Score > standings[j].Score
		}
		return standings[i].AgentID < standings[j].AgentID
	})

	for i := range standings {
		if i > 0 && standings[i].Score == standings[i-1].Score {
			standings[i].Rank = standings[i-1].Rank
		} else {
			standings[i].Rank = i + 1
		}
	}
	return standings
}

// BatchResult holds the per-agent scores for a month. NoData lists roster
// agents that had no logs.
type BatchResult struct {
	Month  Month         `json:"month"`
	KPIs   []MonthlyKPIs `json:"kpis"`
	NoData []string      `json:"no_data,omitempty"`
}

// ScoreMonth scores every agent for month concurrently. Logs outside month
// are ignored. When roster is empty the agents present in logs are scored;
// otherwise only roster agents are, and those without logs land in NoData.
// KPIs are sorted by agent id.
func ScoreMonth(ctx context.Context, month Month, roster []string, logs []DailyLog, w ScoreWeights, concurrency int) (*BatchResult, error) {
	if month.IsZero() {
		return nil, calcerr.Invalid("month", "is required")
	}
	if err := ValidateWeights(w); err != nil {
		return nil, err
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	byAgent := make(map[string][]DailyLog)
	for _, l := range logs {
		if month.Contains(l.Date) {
			byAgent[l.AgentID] = append(byAgent[l.AgentID], l)
		}
	}

	agents := roster
	if len(agents) == 0 {
		for id := range byAgent {
			agents = append(agents, id)
		}
	}
	agents = uniqueSorted(agents)

	scored := make([]*MonthlyKPIs, len(agents))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, id := range agents {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			k, err := Score(byAgent[id], w)
			if err != nil {
				var ie *calcerr.InsufficientDataError
				if errors.As(err, &ie) {
					return nil
				}
				return eris.Wrapf(err, "kpi: score agent %s", id)
			}
			scored[i] = &k
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &BatchResult{Month: month}
	for i, k := range scored {
		if k == nil {
			res.NoData = append(res.NoData, agents[i])
			continue
		}
		res.KPIs = append(res.KPIs, *k)
	}

	zap.L().Debug("kpi: month scored",
		zap.String("month", month.String()),
		zap.Int("agents", len(res.KPIs)),
		zap.Int("no_data", len(res.NoData)),
	)
	return res, nil
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
