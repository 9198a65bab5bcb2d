package scoring

import (
	"log/slog"
	"sort"
	"time"

	"github.com/vanities/techslop/internal/domain"
)

// Params tunes the ranking pipeline. Zero values are not valid; start
// from DefaultParams and override selectively.
type Params struct {
	// Weights maps a source name to its trust multiplier. Sources absent
	// from the map fall back to DefaultWeight.
	Weights       map[string]float64
	DefaultWeight float64
	// RecencyWindow and RecencyBoost give stories published within the
	// window a flat additive bonus. Additive so weighting cannot drown
	// it out, small so it cannot override a real score gap.
	RecencyWindow time.Duration
	RecencyBoost  float64
}

// DefaultParams returns the editorial defaults used by the pipeline.
func DefaultParams() Params {
	return Params{
		Weights: map[string]float64{
			"hackernews": 1.0,
			"techcrunch": 0.9,
			"x":          0.85,
			"reddit":     0.8,
			"fourchan":   0.7,
		},
		DefaultWeight: 0.5,
		RecencyWindow: 6 * time.Hour,
		RecencyBoost:  0.15,
	}
}

// Scorer runs the full normalize/weight/boost/dedup/sort pipeline.
type Scorer struct {
	params Params
	logger *slog.Logger
	now    func() time.Time
}

// New builds a Scorer; a nil logger disables logging.
func New(params Params, logger *slog.Logger) *Scorer {
	if params.DefaultWeight == 0 {
		params.DefaultWeight = DefaultParams().DefaultWeight
	}
	return &Scorer{params: params, now: time.Now, logger: logger}
}

// Rank scores and orders the concatenated story list.
//
// Stages run in fixed order: per-source normalization to [0,1], source
// weighting, recency boost, dedup by id keeping the highest score, then
// a stable descending sort. Only the Score field of the inputs is
// mutated; the returned slice is new. Empty input yields empty output.
func (sc *Scorer) Rank(stories []domain.Story) []domain.Story {
	if len(stories) == 0 {
		return []domain.Story{}
	}

	normalizeScores(stories)
	sc.applySourceWeights(stories)
	sc.applyRecencyBoost(stories)

	unique := sc.Deduplicate(stories)

	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].Score > unique[j].Score
	})

	if sc.logger != nil {
		sc.logger.Info("scored and ranked stories", "count", len(unique), "top_score", unique[0].Score)
	}
	return unique
}

// normalizeScores rescales raw scores to [0, 1] within each source
// partition, in place. A partition where every raw score is identical
// normalizes to 1.0 for every story: a flat-score source carries no
// signal and is not penalized for it.
func normalizeScores(stories []domain.Story) {
	groups := map[string][]int{}
	for i, s := range stories {
		groups[s.Source] = append(groups[s.Source], i)
	}

	for _, idxs := range groups {
		minScore := stories[idxs[0]].Score
		maxScore := minScore
		for _, i := range idxs[1:] {
			if stories[i].Score < minScore {
				minScore = stories[i].Score
			}
			if stories[i].Score > maxScore {
				maxScore = stories[i].Score
			}
		}

		span := maxScore - minScore
		for _, i := range idxs {
			if span == 0 {
				stories[i].Score = 1.0
			} else {
				stories[i].Score = (stories[i].Score - minScore) / span
			}
		}
	}
}

func (sc *Scorer) applySourceWeights(stories []domain.Story) {
	for i := range stories {
		weight, ok := sc.params.Weights[stories[i].Source]
		if !ok {
			weight = sc.params.DefaultWeight
		}
		stories[i].Score *= weight
	}
}

func (sc *Scorer) applyRecencyBoost(stories []domain.Story) {
	now := sc.now()
	for i := range stories {
		if now.Sub(stories[i].PublishedAt) < sc.params.RecencyWindow {
			stories[i].Score += sc.params.RecencyBoost
		}
	}
}

// Deduplicate collapses stories sharing an id, keeping the copy with the
// highest score. The first occurrence's slot is kept so relative order
// survives for the stable sort that follows.
func (sc *Scorer) Deduplicate(stories []domain.Story) []domain.Story {
	type slot struct {
		pos   int
		story domain.Story
	}

	best := map[string]slot{}
	order := make([]string, 0, len(stories))
	for _, s := range stories {
		existing, ok := best[s.ID]
		if !ok {
			best[s.ID] = slot{pos: len(order), story: s}
			order = append(order, s.ID)
			continue
		}
		if s.Score > existing.story.Score {
			best[s.ID] = slot{pos: existing.pos, story: s}
		}
	}

	deduped := make([]domain.Story, len(order))
	for _, sl := range best {
		deduped[sl.pos] = sl.story
	}

	if removed := len(stories) - len(deduped); removed > 0 && sc.logger != nil {
		sc.logger.Info("removed duplicate stories", "count", removed)
	}
	return deduped
}
