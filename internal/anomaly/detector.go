// Package anomaly turns a nearest-neighbour similarity into a verdict.
package anomaly

import "github.com/aihub/loganomaly/internal/vectorstore"

// DefaultThreshold 默认相似度阈值，低于该值视为异常
const DefaultThreshold float32 = 0.70

// Verdict 判定结果
type Verdict struct {
	IsAnomalous bool
	Score       float32
	// Nearest 最相近的基线日志，无近邻时为空
	Nearest string
}

// Detector 基于阈值的异常判定器
type Detector struct {
	Threshold float32
}

// NewDetector 创建判定器
func NewDetector(threshold float32) *Detector {
	return &Detector{Threshold: threshold}
}

// Decide uses only the first (best) neighbour. An empty neighbour list is
// anomalous with score 0. A score equal to the threshold is normal.
func (d *Detector) Decide(neighbours []vectorstore.ScoredPoint) Verdict {
	if len(neighbours) == 0 {
		return Verdict{IsAnomalous: true, Score: 0}
	}

	best := neighbours[0]
	return Verdict{
		IsAnomalous: best.Score < d.Threshold,
		Score:       best.Score,
		Nearest:     best.Log(),
	}
}
