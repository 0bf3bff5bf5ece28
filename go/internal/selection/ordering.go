package selection

import (
	"math/rand"
	"strings"

	"github.com/mertyk/kpss-arena/go/internal/question"
)

// grouped is a pool split by subject priority: one bucket per priority
// keyword plus a residual bucket for subjects matching none.
type grouped struct {
	buckets  [][]question.Record // parallel to subjectPriority
	residual []question.Record
}

func groupByPriority(pool []question.Record) grouped {
	g := grouped{buckets: make([][]question.Record, len(subjectPriority))}
	for _, r := range pool {
		subject := r.SubjectLabel()
		placed := false
		for i, keyword := range subjectPriority {
			if strings.Contains(subject, keyword) {
				g.buckets[i] = append(g.buckets[i], r)
				placed = true
				break
			}
		}
		if !placed {
			g.residual = append(g.residual, r)
		}
	}
	return g
}

func (g grouped) shuffle(rng *rand.Rand) {
	for _, bucket := range g.buckets {
		shuffleInPlace(bucket, rng)
	}
	shuffleInPlace(g.residual, rng)
}

// shuffleInPlace applies a uniform permutation. Every randomize-order
// contract in this package goes through here; rand.Shuffle is a linear-time
// Fisher-Yates, unlike the comparator-sort trick which is not uniform.
func shuffleInPlace(records []question.Record, rng *rand.Rand) {
	rng.Shuffle(len(records), func(i, j int) {
		records[i], records[j] = records[j], records[i]
	})
}

// ordered shuffles each subject group internally, then concatenates the
// groups in priority order with the residual bucket last, capped at count.
// Balanced reduces to this ordering whenever the count covers the whole
// pool.
func ordered(pool []question.Record, count int, rng *rand.Rand) []question.Record {
	g := groupByPriority(pool)
	g.shuffle(rng)

	out := make([]question.Record, 0, len(pool))
	for _, bucket := range g.buckets {
		out = append(out, bucket...)
	}
	out = append(out, g.residual...)
	if len(out) > count {
		out = out[:count]
	}
	return out
}

// Balanced distributes count proportionally across the active subject
// groups — floor(count/groups) each, remainder going one extra to the first
// groups in priority order — and reassembles the selection in priority
// order. A group smaller than its share leaves a shortfall backfilled from
// the residual bucket.
func Balanced(pool []question.Record, count int, rng *rand.Rand) []question.Record {
	g := groupByPriority(pool)
	g.shuffle(rng)

	active := 0
	for _, bucket := range g.buckets {
		if len(bucket) > 0 {
			active++
		}
	}
	if active == 0 {
		if len(g.residual) > count {
			return g.residual[:count]
		}
		return g.residual
	}

	base := count / active
	remainder := count % active

	out := make([]question.Record, 0, count)
	for _, bucket := range g.buckets {
		if len(bucket) == 0 {
			continue
		}
		share := base
		if remainder > 0 {
			share++
			remainder--
		}
		if share > len(bucket) {
			share = len(bucket)
		}
		out = append(out, bucket[:share]...)
	}

	if shortfall := count - len(out); shortfall > 0 {
		if shortfall > len(g.residual) {
			shortfall = len(g.residual)
		}
		out = append(out, g.residual[:shortfall]...)
	}
	return out
}

// Shuffled is the no-grouping variant used for mistake review, where
// pedagogical ordering is irrelevant: a uniform shuffle of the whole pool,
// capped at count.
func Shuffled(pool []question.Record, count int, rng *rand.Rand) []question.Record {
	out := make([]question.Record, len(pool))
	copy(out, pool)
	shuffleInPlace(out, rng)
	if len(out) > count {
		out = out[:count]
	}
	return out
}
