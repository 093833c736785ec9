package anomaly

import (
	"testing"

	"github.com/aihub/loganomaly/internal/vectorstore"
	"github.com/stretchr/testify/assert"
)

func TestDetector_Decide(t *testing.T) {
	detector := NewDetector(DefaultThreshold)

	tests := []struct {
		name       string
		neighbours []vectorstore.ScoredPoint
		anomalous  bool
		score      float32
	}{
		{"no neighbours", nil, true, 0},
		{"close match", []vectorstore.ScoredPoint{{ID: 0, Score: 0.92}}, false, 0.92},
		{"exactly at threshold", []vectorstore.ScoredPoint{{ID: 1, Score: 0.70}}, false, 0.70},
		{"just below threshold", []vectorstore.ScoredPoint{{ID: 1, Score: 0.6999}}, true, 0.6999},
		{"negative similarity", []vectorstore.ScoredPoint{{ID: 2, Score: -0.3}}, true, -0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := detector.Decide(tt.neighbours)
			assert.Equal(t, tt.anomalous, verdict.IsAnomalous)
			assert.Equal(t, tt.score, verdict.Score)
		})
	}
}

func TestDetector_UsesOnlyBestNeighbour(t *testing.T) {
	detector := NewDetector(0.5)

	verdict := detector.Decide([]vectorstore.ScoredPoint{
		{ID: 3, Score: 0.4, Payload: map[string]interface{}{"log": "best"}},
		{ID: 4, Score: 0.9, Payload: map[string]interface{}{"log": "ignored"}},
	})

	assert.True(t, verdict.IsAnomalous)
	assert.Equal(t, float32(0.4), verdict.Score)
	assert.Equal(t, "best", verdict.Nearest)
}

func TestDetector_ScoreMonotonic(t *testing.T) {
	detector := NewDetector(DefaultThreshold)

	prev := true
	for s := float32(-1); s <= 1; s += 0.05 {
		anomalous := detector.Decide([]vectorstore.ScoredPoint{{Score: s}}).IsAnomalous
		if !prev {
			assert.False(t, anomalous, "verdict flipped back to anomalous at %v", s)
		}
		prev = anomalous
	}
}
