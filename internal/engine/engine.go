// Package engine computes item-to-item recommendations over a snapshot of
// the event store. Every query rebuilds its derived structures (interaction
// matrix, cosine similarities, popularity ranking) from a fresh snapshot,
// so results are always self-consistent with the events visible at query
// time and no cached state leaks between queries.
//
// Ordering is deterministic: products with exactly equal scores are
// returned in lexicographic order of their product ID, on the similarity
// path and the popularity fallback alike.
package engine

import (
	"sort"

	"github.com/kalambet/recsd/internal/store"
)

// Query describes one recommendation request. UserID and ProductID may
// each be empty; K must already be validated by the caller (positive,
// bounded). Unknown identifiers degrade to the popularity fallback rather
// than failing.
type Query struct {
	UserID    string
	ProductID string
	K         int
}

// Recommendation is one ranked result. Score is normalized into (0, 1];
// the top-ranked item always scores 1.0.
type Recommendation struct {
	ProductID string  `json:"productId"`
	Score     float64 `json:"score"`
}

// Engine scores candidate products against a user's history and/or a seed
// product. It owns no state beyond the store handle it reads snapshots
// from; all derived data is local to a single Recommend call.
type Engine struct {
	store *store.EventStore
}

func New(s *store.EventStore) *Engine {
	return &Engine{store: s}
}

// Recommend returns at most q.K scored products. It never fails: an empty
// store, unknown identifiers, or a similarity dead-end all produce either
// the popularity fallback or an empty result.
func (e *Engine) Recommend(q Query) []Recommendation {
	events := e.store.Snapshot()
	if len(events) == 0 {
		return nil
	}

	m := buildMatrix(events)
	if len(m.products) == 0 {
		return nil
	}

	popularity := popularityRanking(events)
	sim := newSimilarity(m)

	// Accumulate candidate scores. The user path contributes
	// cosine(history, candidate) * historyWeight and then excludes the
	// user's own history; the seed-product path contributes
	// cosine(seed, candidate) and then excludes the seed. Exclusions
	// apply in that order.
	scores := make(map[string]float64)

	if userRow, ok := m.users[q.UserID]; q.UserID != "" && ok {
		for prod, w := range userRow {
			if w <= 0 {
				continue
			}
			for _, cand := range m.products {
				scores[cand] += sim.cosine(prod, cand) * w
			}
		}
		for prod := range userRow {
			delete(scores, prod)
		}
	}

	if _, ok := m.columns[q.ProductID]; q.ProductID != "" && ok {
		for _, cand := range m.products {
			scores[cand] += sim.cosine(q.ProductID, cand)
		}
		delete(scores, q.ProductID)
	}

	candidates := make([]rankedProduct, 0, len(scores))
	for id, score := range scores {
		if score > 0 {
			candidates = append(candidates, rankedProduct{id: id, weight: score})
		}
	}

	if len(candidates) == 0 {
		return e.fallback(q, m, popularity)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].weight != candidates[j].weight {
			return candidates[i].weight > candidates[j].weight
		}
		return candidates[i].id < candidates[j].id
	})
	if len(candidates) > q.K {
		candidates = candidates[:q.K]
	}

	maxScore := candidates[0].weight
	out := make([]Recommendation, len(candidates))
	for i, c := range candidates {
		score := c.weight
		if maxScore > 0 {
			score = c.weight / maxScore
		}
		out[i] = Recommendation{ProductID: c.id, Score: score}
	}
	return out
}

// fallback ranks by global popularity when similarity scoring yields no
// positive candidate: cold-start queries, unknown identifiers, or a user
// who has touched every product. The seed product and the user's own
// history are still excluded. Scores are normalized against the top
// remaining item's popularity weight.
func (e *Engine) fallback(q Query, m *matrix, popularity []rankedProduct) []Recommendation {
	userRow := m.users[q.UserID]

	top := make([]rankedProduct, 0, q.K)
	for _, p := range popularity {
		if p.id == q.ProductID {
			continue
		}
		if userRow != nil {
			if w, seen := userRow[p.id]; seen && w > 0 {
				continue
			}
		}
		top = append(top, p)
		if len(top) == q.K {
			break
		}
	}
	if len(top) == 0 {
		return nil
	}

	maxPop := top[0].weight
	out := make([]Recommendation, len(top))
	for i, p := range top {
		var score float64
		if maxPop > 0 {
			score = p.weight / maxPop
		}
		out[i] = Recommendation{ProductID: p.id, Score: score}
	}
	return out
}
