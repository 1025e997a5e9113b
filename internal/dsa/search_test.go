package dsa

import (
	"testing"

	"momoapi/internal/server"
	"momoapi/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(n int) []shared.Record {
	out := make([]shared.Record, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, shared.Record{"id": int64(i), "amount": i * 10})
	}
	return out
}

func TestLookupsAgree(t *testing.T) {
	records := sample(50)
	idx := server.BuildIndex(records)

	for _, id := range []int64{1, 25, 50} {
		a, okA := LinearSearch(records, id)
		b, okB := IndexLookup(idx, id)
		require.True(t, okA)
		require.True(t, okB)
		assert.Equal(t, a, b)
	}

	_, ok := LinearSearch(records, 51)
	assert.False(t, ok)
	_, ok = IndexLookup(idx, 51)
	assert.False(t, ok)
}

func TestCompare(t *testing.T) {
	res := Compare(sample(100), 20, 10)
	assert.Equal(t, 20, res.Samples)

	assert.Zero(t, Compare(nil, 20, 10).Samples)
	assert.Equal(t, 3, Compare(sample(3), 20, 1).Samples)
}

func TestSpeedup(t *testing.T) {
	assert.Equal(t, 4.0, Result{AvgLinear: 40, AvgIndexed: 10}.Speedup())
	assert.Zero(t, Result{AvgLinear: 40}.Speedup())
}
