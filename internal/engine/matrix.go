package engine

import (
	"math"
	"sort"

	"github.com/kalambet/recsd/internal/store"
)

// matrix is the user×product aggregate-weight structure derived from one
// snapshot. It is function-local to a single query and never outlives it.
type matrix struct {
	// users maps userID → productID → summed weight.
	users map[string]map[string]float64
	// columns maps productID → userID → summed weight (the product's
	// weight vector, indexed by user).
	columns map[string]map[string]float64
	// products lists all product IDs in lexicographic order, which fixes
	// the iteration order everywhere downstream.
	products []string
}

func buildMatrix(events []store.Interaction) *matrix {
	m := &matrix{
		users:   make(map[string]map[string]float64),
		columns: make(map[string]map[string]float64),
	}
	for _, ev := range events {
		row := m.users[ev.UserID]
		if row == nil {
			row = make(map[string]float64)
			m.users[ev.UserID] = row
		}
		row[ev.ProductID] += ev.Weight

		col := m.columns[ev.ProductID]
		if col == nil {
			col = make(map[string]float64)
			m.columns[ev.ProductID] = col
		}
		col[ev.UserID] += ev.Weight
	}

	m.products = make([]string, 0, len(m.columns))
	for id := range m.columns {
		m.products = append(m.products, id)
	}
	sort.Strings(m.products)
	return m
}

// similarity holds per-product norms for pairwise cosine computation over
// the matrix columns. With fewer than two distinct products there is
// nothing to compare and every similarity is defined as 0.
type similarity struct {
	m       *matrix
	norms   map[string]float64
	enabled bool
}

func newSimilarity(m *matrix) *similarity {
	s := &similarity{
		m:       m,
		norms:   make(map[string]float64, len(m.products)),
		enabled: len(m.products) >= 2,
	}
	for id, col := range m.columns {
		var sum float64
		for _, w := range col {
			sum += w * w
		}
		s.norms[id] = math.Sqrt(sum)
	}
	return s
}

// cosine returns the cosine similarity between the weight vectors of two
// products. Vectors are sparse over users; absent users contribute zero.
func (s *similarity) cosine(a, b string) float64 {
	if !s.enabled {
		return 0
	}
	colA, colB := s.m.columns[a], s.m.columns[b]
	if len(colA) > len(colB) {
		colA, colB = colB, colA
	}
	var dot float64
	for user, wa := range colA {
		if wb, ok := colB[user]; ok {
			dot += wa * wb
		}
	}
	na, nb := s.norms[a], s.norms[b]
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}

// rankedProduct pairs a product with its popularity weight or score.
type rankedProduct struct {
	id     string
	weight float64
}

// popularityRanking sums weight per product across all users and orders
// the result by weight descending, product ID ascending on equal weight.
func popularityRanking(events []store.Interaction) []rankedProduct {
	totals := make(map[string]float64)
	for _, ev := range events {
		totals[ev.ProductID] += ev.Weight
	}
	ranked := make([]rankedProduct, 0, len(totals))
	for id, w := range totals {
		ranked = append(ranked, rankedProduct{id: id, weight: w})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].weight != ranked[j].weight {
			return ranked[i].weight > ranked[j].weight
		}
		return ranked[i].id < ranked[j].id
	})
	return ranked
}
