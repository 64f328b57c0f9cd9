package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dateOn returns a concrete date falling on the given weekday.
func dateOn(day time.Weekday) time.Time {
	d := time.Date(2021, 3, 7, 0, 0, 0, 0, time.UTC) // a Sunday
	return d.AddDate(0, 0, int(day))
}

func TestSelectSkipsHigherPriorityRegionWithDisallowedDay(t *testing.T) {
	targets := []string{"A", "B", "C"}
	slots := []Slot{
		{Region: "B", Date: dateOn(time.Monday)},
		{Region: "C", Date: dateOn(time.Tuesday)},
	}

	i, ok := Select(targets, slots, []time.Weekday{time.Tuesday})
	require.True(t, ok)
	assert.Equal(t, "C", slots[i].Region,
		"B outranks C but only offers a disallowed weekday")
}

func TestSelectNoRegionOverlap(t *testing.T) {
	targets := []string{"A"}
	slots := []Slot{{Region: "B", Date: dateOn(time.Monday)}}

	_, ok := Select(targets, slots, nil)
	assert.False(t, ok)
}

func TestSelectHonorsPriorityOrder(t *testing.T) {
	targets := []string{"19401", "19403", "19446"}
	slots := []Slot{
		{Region: "19446", Date: dateOn(time.Friday)},
		{Region: "19403", Date: dateOn(time.Wednesday)},
	}

	i, ok := Select(targets, slots, nil)
	require.True(t, ok)
	assert.Equal(t, "19403", slots[i].Region)
}

func TestSelectAllDaysDisallowedIsNoMatch(t *testing.T) {
	targets := []string{"A", "B"}
	slots := []Slot{
		{Region: "A", Date: dateOn(time.Monday)},
		{Region: "B", Date: dateOn(time.Wednesday)},
	}

	_, ok := Select(targets, slots, []time.Weekday{time.Saturday})
	assert.False(t, ok)
}

func TestSelectEmptyDayFilterMeansAny(t *testing.T) {
	targets := []string{"A"}
	slots := []Slot{{Region: "A", Date: dateOn(time.Sunday)}}

	i, ok := Select(targets, slots, nil)
	require.True(t, ok)
	assert.Equal(t, 0, i)
}

func TestSelectNoSlots(t *testing.T) {
	_, ok := Select([]string{"A"}, nil, nil)
	assert.False(t, ok)
}
