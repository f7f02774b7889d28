package dispatch

import (
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// MessageNoUnits accompanies an empty recommendation.
const MessageNoUnits = "no units available"

// Ranker orders candidate units for an incident.
type Ranker struct {
	calc        *Calculator
	parallelism int
	now         func() time.Time
}

// NewRanker creates a Ranker scoring at most parallelism units concurrently.
// Non-positive parallelism uses GOMAXPROCS.
func NewRanker(calc *Calculator, parallelism int) *Ranker {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	return &Ranker{calc: calc, parallelism: parallelism, now: time.Now}
}

// Rank scores every eligible candidate and returns them best first. Units that are
// not AVAILABLE or belong to another organization are skipped. Ties keep input order.
// A limit <= 0 returns every candidate.
func (r *Ranker) Rank(inc Incident, units []Unit, limit int) Recommendation {
	rec := Recommendation{
		IncidentID:  inc.ID,
		GeneratedAt: r.now().UTC(),
		Scores:      []UnitScore{},
	}

	eligible := make([]Unit, 0, len(units))
	for _, u := range units {
		if u.Status != UnitAvailable || u.OrganizationID != inc.OrganizationID {
			continue
		}
		eligible = append(eligible, u)
	}
	if len(eligible) == 0 {
		rec.Message = MessageNoUnits
		return rec
	}

	scores := make([]UnitScore, len(eligible))
	var g errgroup.Group
	g.SetLimit(r.parallelism)
	for i := range eligible {
		i := i
		g.Go(func() error {
			scores[i] = r.calc.Score(inc, eligible[i])
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Total > scores[j].Total
	})
	if limit > 0 && len(scores) > limit {
		scores = scores[:limit]
	}
	rec.Scores = scores
	return rec
}
