// Package dsa compares a linear scan of the collection against the id index.
package dsa

import (
	"time"

	"momoapi/internal/server"
	"momoapi/internal/shared"
)

// LinearSearch returns the first record whose id equals id.
func LinearSearch(records []shared.Record, id int64) (shared.Record, bool) {
	for _, rec := range records {
		if rid, ok := rec.ID(); ok && rid == id {
			return rec, true
		}
	}
	return nil, false
}

func IndexLookup(idx server.Index, id int64) (shared.Record, bool) {
	rec, ok := idx[id]
	return rec, ok
}

type Result struct {
	Samples    int
	AvgLinear  time.Duration
	AvgIndexed time.Duration
}

// Speedup is AvgLinear / AvgIndexed, 0 when the indexed time rounds to zero.
func (r Result) Speedup() float64 {
	if r.AvgIndexed <= 0 {
		return 0
	}
	return float64(r.AvgLinear) / float64(r.AvgIndexed)
}

// Compare times both lookups for the ids of the first n records. Each id is
// looked up rounds times so the averages are above timer resolution.
func Compare(records []shared.Record, n, rounds int) Result {
	if rounds <= 0 {
		rounds = 1
	}
	var ids []int64
	for _, rec := range records {
		if len(ids) == n {
			break
		}
		if id, ok := rec.ID(); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return Result{}
	}
	idx := server.BuildIndex(records)

	var linear, indexed time.Duration
	for _, id := range ids {
		start := time.Now()
		for i := 0; i < rounds; i++ {
			LinearSearch(records, id)
		}
		linear += time.Since(start)

		start = time.Now()
		for i := 0; i < rounds; i++ {
			IndexLookup(idx, id)
		}
		indexed += time.Since(start)
	}
	total := time.Duration(len(ids) * rounds)
	return Result{
		Samples:    len(ids),
		AvgLinear:  linear / total,
		AvgIndexed: indexed / total,
	}
}
