package rag

import (
	"context"
	"math"

	"golang.org/x/sync/semaphore"

	"github.com/docuchat/docuchat/internal/vectorstore"
)

// RerankMMR orders candidates by Maximal Marginal Relevance and returns
// the selected original indices, best first.
//
// The first pick is the candidate most similar to the query. Each
// subsequent pick maximizes lambda*sim(query, c) - (1-lambda)*max sim to
// the already-selected set. Ties go to the lowest original index.
// Vectors are L2-normalized up front; a zero-norm vector contributes
// zero similarity instead of dividing by zero.
func RerankMMR(query []float32, vectors [][]float32, k int, lambda float64) []int {
	n := len(vectors)
	if n == 0 || k <= 0 {
		return nil
	}
	if k > n {
		k = n
	}

	units := make([][]float64, n)
	for i, v := range vectors {
		units[i] = normalize(v)
	}
	qUnit := normalize(query)

	simToQuery := make([]float64, n)
	for i := range units {
		simToQuery[i] = dot(units[i], qUnit)
	}

	selected := make([]int, 0, k)
	remaining := make([]int, n)
	for i := range remaining {
		remaining[i] = i
	}

	for len(selected) < k {
		best := -1
		bestScore := math.Inf(-1)

		for _, i := range remaining {
			var score float64
			if len(selected) == 0 {
				score = simToQuery[i]
			} else {
				maxSim := math.Inf(-1)
				for _, j := range selected {
					if s := dot(units[i], units[j]); s > maxSim {
						maxSim = s
					}
				}
				score = lambda*simToQuery[i] - (1-lambda)*maxSim
			}
			// Strict > keeps the lowest original index on ties.
			if score > bestScore {
				bestScore = score
				best = i
			}
		}

		selected = append(selected, best)
		remaining = remove(remaining, best)
	}

	return selected
}

func normalize(v []float32) []float64 {
	out := make([]float64, len(v))
	var norm float64
	for i, x := range v {
		out[i] = float64(x)
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}
	for i := range out {
		out[i] /= norm
	}
	return out
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func remove(s []int, v int) []int {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// Reranker diversifies search results with MMR. The numeric work runs
// under a weighted semaphore so large candidate sets cannot monopolize
// the scheduler when many requests are in flight.
type Reranker struct {
	sem    *semaphore.Weighted
	lambda float64
}

func NewReranker(concurrency int, lambda float64) *Reranker {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Reranker{
		sem:    semaphore.NewWeighted(int64(concurrency)),
		lambda: lambda,
	}
}

// Rerank returns at most k results. Candidates missing vectors are
// excluded from diversification; with fewer than two usable candidates
// the raw similarity order is kept and trimmed.
func (r *Reranker) Rerank(ctx context.Context, query []float32, results []vectorstore.SearchResult, k int) ([]vectorstore.SearchResult, error) {
	if len(results) < 2 {
		return trim(results, k), nil
	}

	withVecs := make([]vectorstore.SearchResult, 0, len(results))
	for _, res := range results {
		if len(res.Vector) > 0 {
			withVecs = append(withVecs, res)
		}
	}
	if len(withVecs) < 2 {
		return trim(results, k), nil
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.sem.Release(1)

	vectors := make([][]float32, len(withVecs))
	for i, res := range withVecs {
		vectors[i] = res.Vector
	}

	picked := RerankMMR(query, vectors, k, r.lambda)
	out := make([]vectorstore.SearchResult, len(picked))
	for i, idx := range picked {
		out[i] = withVecs[idx]
	}
	return out, nil
}

func trim(results []vectorstore.SearchResult, k int) []vectorstore.SearchResult {
	if k > 0 && len(results) > k {
		return results[:k]
	}
	return results
}
