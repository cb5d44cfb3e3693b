// Package aggregate turns raw submissions into display-ready results.
// Every function is pure and safe to call repeatedly on the same input.
package aggregate

import (
	"math"

	"eduslide-live/internal/domain"
)

// Count is one label with the number of times it was seen.
type Count struct {
	Label string `json:"label" yaml:"label"`
	Count int    `json:"count" yaml:"count"`
}

// Counts is ordered by the first time each label appeared.
type Counts []Count

// Get returns the count for label, zero when absent.
func (c Counts) Get(label string) int {
	for _, entry := range c {
		if entry.Label == label {
			return entry.Count
		}
	}
	return 0
}

// Total sums all counts.
func (c Counts) Total() int {
	total := 0
	for _, entry := range c {
		total += entry.Count
	}
	return total
}

// Map returns the counts keyed by label.
func (c Counts) Map() map[string]int {
	m := make(map[string]int, len(c))
	for _, entry := range c {
		m[entry.Label] = entry.Count
	}
	return m
}

// Clone copies c.
func (c Counts) Clone() Counts {
	if c == nil {
		return nil
	}
	return append(Counts(nil), c...)
}

// Tally counts votes per option label.
func Tally(votes []string) Counts {
	return countOccurrences(votes)
}

// WordFrequency counts submitted words. Matching is exact and case-sensitive;
// words are not trimmed or folded.
func WordFrequency(words []string) Counts {
	return countOccurrences(words)
}

func countOccurrences(items []string) Counts {
	out := Counts{}
	index := make(map[string]int, len(items))
	for _, item := range items {
		if i, ok := index[item]; ok {
			out[i].Count++
			continue
		}
		index[item] = len(out)
		out = append(out, Count{Label: item, Count: 1})
	}
	return out
}

// AreaResult is the set of clicks that landed inside one correct area.
type AreaResult struct {
	Area  domain.Area `json:"area" yaml:"area"`
	Count int         `json:"count" yaml:"count"`
	Names []string    `json:"names" yaml:"names"`

	// Pixel geometry the counts were computed against.
	CenterX float64 `json:"center_x" yaml:"center_x"`
	CenterY float64 `json:"center_y" yaml:"center_y"`
	Radius  float64 `json:"radius" yaml:"radius"`
}

// BubbleAggregate buckets clicks into correct areas on a width x height canvas.
// Centers scale by width and height; the radius scales by min(width, height).
// A click on the boundary counts, and a click may count toward several overlapping areas.
// A zero-size canvas or an empty click or area list yields an empty result.
func BubbleAggregate(clicks []domain.Click, areas []domain.Area, width, height float64) []AreaResult {
	if width <= 0 || height <= 0 || len(clicks) == 0 || len(areas) == 0 {
		return []AreaResult{}
	}
	scale := math.Min(width, height)

	results := make([]AreaResult, 0, len(areas))
	for _, area := range areas {
		cx := area.X * width
		cy := area.Y * height
		r := area.Radius * scale

		res := AreaResult{Area: area, CenterX: cx, CenterY: cy, Radius: r, Names: []string{}}
		for _, click := range clicks {
			dx := click.Point.X*width - cx
			dy := click.Point.Y*height - cy
			if math.Hypot(dx, dy) <= r {
				res.Count++
				res.Names = append(res.Names, click.Name)
			}
		}
		results = append(results, res)
	}
	return results
}
