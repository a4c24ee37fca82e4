package provenance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rcc-project/rcc/pkg/source"
)

func sp(line int) source.Span {
	return source.Span{Start: source.Position{File: "t.c", Line: line, Col: 1}}
}

func TestJoinLattice(t *testing.T) {
	tests := []struct {
		name string
		a, b RegionTag
		want RegionTag
	}{
		{"unknown identity left", Unknown, Global, Global},
		{"unknown identity right", Stack, Unknown, Stack},
		{"idempotent global", Global, Global, Global},
		{"idempotent stack", Stack, Stack, Stack},
		{"distinct regions mix", Global, Stack, Mixed},
		{"mixed absorbs", Mixed, Global, Mixed},
		{"mixed absorbs unknown too", Mixed, Unknown, Mixed},
		{"both unknown", Unknown, Unknown, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Join(tt.a, tt.b))
			assert.Equal(t, tt.want, Join(tt.b, tt.a), "join must be commutative")
		})
	}
}

func TestTableSetGet(t *testing.T) {
	tab := NewTable()
	tab.Set(1, Origin(Stack, sp(10)))
	got := tab.Get(1)
	assert.Equal(t, Stack, got.Region)
	assert.Len(t, got.OriginSpans, 1)
}

func TestGetMissingPanics(t *testing.T) {
	tab := NewTable()
	assert.Panics(t, func() { tab.Get(99) })
}

func TestJoinPhiSameRegion(t *testing.T) {
	tab := NewTable()
	joined := tab.JoinPhi(3, []Provenance{
		Origin(Stack, sp(1)),
		Origin(Stack, sp(2)),
	})
	assert.Equal(t, Stack, joined.Region)
	assert.Len(t, joined.OriginSpans, 2)
}

func TestJoinPhiConflictingRegionsMixed(t *testing.T) {
	tab := NewTable()
	joined := tab.JoinPhi(4, []Provenance{
		Origin(Stack, sp(1)),
		Origin(Global, sp(2)),
	})
	assert.Equal(t, Mixed, joined.Region)
	assert.Len(t, joined.OriginSpans, 2, "both branch origins must be retained for the diagnostic")
}

func TestAssumeParamOnlyOverridesUnknown(t *testing.T) {
	tab := NewTable()

	// no prior entry: override takes effect
	applied := tab.AssumeParam(5, Global, sp(1))
	assert.True(t, applied)
	assert.Equal(t, Global, tab.Get(5).Region)

	// stronger evidence already present: override is a no-op
	tab.Set(6, Origin(Stack, sp(2)))
	applied = tab.AssumeParam(6, Global, sp(3))
	assert.False(t, applied)
	assert.Equal(t, Stack, tab.Get(6).Region)
}

func TestTempsSortedAndDeterministic(t *testing.T) {
	tab := NewTable()
	tab.Set(5, Origin(Stack, sp(1)))
	tab.Set(1, Origin(Global, sp(2)))
	tab.Set(3, Origin(Stack, sp(3)))
	assert.Equal(t, []TempID{1, 3, 5}, tab.Temps())
}
