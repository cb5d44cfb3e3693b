package aggregate_test

import (
	"testing"

	"eduslide-live/internal/aggregate"
	"eduslide-live/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTally(t *testing.T) {
	assert.Empty(t, aggregate.Tally(nil))
	assert.Empty(t, aggregate.Tally([]string{}))

	got := aggregate.Tally([]string{"a", "b", "a"})
	assert.Equal(t, aggregate.Counts{{Label: "a", Count: 2}, {Label: "b", Count: 1}}, got)
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, got.Map())
	assert.Equal(t, 3, got.Total())
	assert.Equal(t, 0, got.Get("missing"))
}

func TestTallyOrdersByFirstOccurrence(t *testing.T) {
	got := aggregate.Tally([]string{"B", "A", "B", "C", "A", "B"})
	require.Len(t, got, 3)
	assert.Equal(t, []string{"B", "A", "C"}, []string{got[0].Label, got[1].Label, got[2].Label})
	assert.Equal(t, 3, got.Get("B"))
}

func TestWordFrequencyIsCaseSensitive(t *testing.T) {
	got := aggregate.WordFrequency([]string{"cat", "dog", "cat", "CAT"})
	assert.Equal(t, map[string]int{"cat": 2, "dog": 1, "CAT": 1}, got.Map())
}

func TestWordFrequencyDoesNotTrim(t *testing.T) {
	got := aggregate.WordFrequency([]string{"cat", " cat"})
	assert.Equal(t, 1, got.Get("cat"))
	assert.Equal(t, 1, got.Get(" cat"))
}

func TestBubbleAggregateDegenerateInputs(t *testing.T) {
	clicks := []domain.Click{{Point: domain.Point{X: 0.5, Y: 0.5}, Name: "Ana"}}
	areas := []domain.Area{{X: 0.5, Y: 0.5, Radius: 0.1}}

	cases := map[string][]aggregate.AreaResult{
		"zero width":  aggregate.BubbleAggregate(clicks, areas, 0, 200),
		"zero height": aggregate.BubbleAggregate(clicks, areas, 200, 0),
		"no clicks":   aggregate.BubbleAggregate(nil, areas, 200, 200),
		"no areas":    aggregate.BubbleAggregate(clicks, nil, 200, 200),
	}
	for name, got := range cases {
		assert.NotNil(t, got, name)
		assert.Empty(t, got, name)
	}
}

func TestBubbleAggregateCountsInsideRadius(t *testing.T) {
	areas := []domain.Area{{X: 0.5, Y: 0.5, Radius: 0.1}}
	clicks := []domain.Click{
		{Point: domain.Point{X: 100.0 / 200, Y: 100.0 / 200}, Name: "Ana", IsCorrect: true},
		{Point: domain.Point{X: 199.0 / 200, Y: 199.0 / 200}, Name: "Budi"},
	}

	got := aggregate.BubbleAggregate(clicks, areas, 200, 200)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Count)
	assert.Equal(t, []string{"Ana"}, got[0].Names)
	assert.InDelta(t, 20, got[0].Radius, 1e-9)
	assert.InDelta(t, 100, got[0].CenterX, 1e-9)
}

func TestBubbleAggregateBoundaryIsInclusive(t *testing.T) {
	areas := []domain.Area{{X: 0.5, Y: 0.5, Radius: 0.25}}
	// 25px right of center on a 100x100 canvas: exactly on the edge.
	clicks := []domain.Click{{Point: domain.Point{X: 0.75, Y: 0.5}, Name: "edge"}}

	got := aggregate.BubbleAggregate(clicks, areas, 100, 100)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Count)
}

func TestBubbleAggregateRadiusUsesShorterSide(t *testing.T) {
	areas := []domain.Area{{X: 0.5, Y: 0.5, Radius: 0.1}}
	// Canvas 400x200: radius is 20px, not 40px.
	clicks := []domain.Click{
		{Point: domain.Point{X: 230.0 / 400, Y: 0.5}, Name: "out"},
		{Point: domain.Point{X: 215.0 / 400, Y: 0.5}, Name: "in"},
	}

	got := aggregate.BubbleAggregate(clicks, areas, 400, 200)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"in"}, got[0].Names)
}

func TestBubbleAggregateOverlappingAreas(t *testing.T) {
	areas := []domain.Area{
		{X: 0.4, Y: 0.5, Radius: 0.2},
		{X: 0.6, Y: 0.5, Radius: 0.2},
		{X: 0.1, Y: 0.1, Radius: 0.05},
	}
	clicks := []domain.Click{{Point: domain.Point{X: 0.5, Y: 0.5}, Name: "both"}}

	got := aggregate.BubbleAggregate(clicks, areas, 100, 100)
	require.Len(t, got, 3)
	assert.Equal(t, 1, got[0].Count)
	assert.Equal(t, 1, got[1].Count)
	assert.Equal(t, 0, got[2].Count)
	assert.Empty(t, got[2].Names)
}

func TestBubbleAggregateIsIdempotent(t *testing.T) {
	areas := []domain.Area{{X: 0.5, Y: 0.5, Radius: 0.3}}
	clicks := []domain.Click{{Point: domain.Point{X: 0.5, Y: 0.6}, Name: "Ana"}}

	first := aggregate.BubbleAggregate(clicks, areas, 300, 150)
	second := aggregate.BubbleAggregate(clicks, areas, 300, 150)
	assert.Equal(t, first, second)
}
