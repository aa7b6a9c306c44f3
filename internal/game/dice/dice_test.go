package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/yomi/internal/game/dice"
)

// fixedSource returns queued values; Intn results are reduced modulo n.
type fixedSource struct {
	ints   []int
	floats []float64
}

func (f *fixedSource) Intn(n int) int {
	v := f.ints[0]
	f.ints = f.ints[1:]
	return v % n
}

func (f *fixedSource) Float64() float64 {
	v := f.floats[0]
	f.floats = f.floats[1:]
	return v
}

func TestParse(t *testing.T) {
	cases := []struct {
		in                     string
		count, sides, modifier int
	}{
		{"1d3", 1, 3, 0},
		{"d6", 1, 6, 0},
		{"2d4+1", 2, 4, 1},
		{"3D8-2", 3, 8, -2},
		{"5", 0, 0, 5},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			e, err := dice.Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.count, e.Count)
			assert.Equal(t, tc.sides, e.Sides)
			assert.Equal(t, tc.modifier, e.Modifier)
		})
	}
}

func TestParse_Rejects(t *testing.T) {
	for _, in := range []string{"", "d", "0d6", "2d1", "xd6", "2d6+x", "many"} {
		_, err := dice.Parse(in)
		assert.Error(t, err, in)
	}
	assert.Panics(t, func() { dice.MustParse("d") })
}

func TestRoll_ConstantNeverTouchesSource(t *testing.T) {
	r := dice.Roll(dice.MustParse("3"), &fixedSource{})
	assert.Equal(t, 3, r.Total())
	assert.Empty(t, r.Dice)
}

func TestRoll_UsesSource(t *testing.T) {
	r := dice.Roll(dice.MustParse("2d6+3"), &fixedSource{ints: []int{3, 4}})
	assert.Equal(t, []int{4, 5}, r.Dice)
	assert.Equal(t, 12, r.Total())
}

func TestRoll_WithinBoundsProperty(t *testing.T) {
	src := dice.NewSeededSource(7)
	rapid.Check(t, func(rt *rapid.T) {
		e := dice.Expression{
			Raw:      "prop",
			Count:    rapid.IntRange(1, 10).Draw(rt, "count"),
			Sides:    rapid.IntRange(2, 20).Draw(rt, "sides"),
			Modifier: rapid.IntRange(-5, 5).Draw(rt, "mod"),
		}
		total := dice.Roll(e, src).Total()
		if total < e.Min() || total > e.Max() {
			rt.Fatalf("total %d outside [%d, %d]", total, e.Min(), e.Max())
		}
	})
}

func TestCryptoSource_InRange(t *testing.T) {
	src := dice.NewCryptoSource()
	for i := 0; i < 1000; i++ {
		v := src.Intn(6)
		assert.GreaterOrEqual(t, v, 0)
		assert.Less(t, v, 6)
		f := src.Float64()
		assert.GreaterOrEqual(t, f, 0.0)
		assert.Less(t, f, 1.0)
	}
	assert.Panics(t, func() { src.Intn(0) })
}

func TestSeededSource_Deterministic(t *testing.T) {
	a, b := dice.NewSeededSource(42), dice.NewSeededSource(42)
	for i := 0; i < 20; i++ {
		assert.Equal(t, a.Intn(100), b.Intn(100))
		assert.Equal(t, a.Float64(), b.Float64())
	}
}

func TestRoller_Chance(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := dice.NewLoggedRoller(&fixedSource{floats: []float64{0.2, 0.8}}, zap.New(core))

	assert.True(t, r.Chance(0.5))
	assert.False(t, r.Chance(0.5))
	assert.False(t, r.Chance(0), "never consults the source")
	assert.True(t, r.Chance(1))
	assert.Equal(t, 2, logs.FilterMessage("chance roll").Len())
}

func TestRoller_Between(t *testing.T) {
	r := dice.NewLoggedRoller(&fixedSource{ints: []int{2}}, nil)
	assert.Equal(t, 7, r.Between(5, 9))
	assert.Equal(t, 4, r.Between(4, 4))
}

func TestRoller_RollLogs(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := dice.NewLoggedRoller(&fixedSource{ints: []int{0}}, zap.New(core))
	assert.Equal(t, 2, r.Roll(dice.MustParse("1d3+1")).Total())
	entries := logs.FilterMessage("dice roll").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(2), entries[0].ContextMap()["total"])
}
