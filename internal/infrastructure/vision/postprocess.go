package vision

import (
	"math"
	"sort"

	"objdetect-node/internal/domain/entity"
)

// candidate рамка в координатах входа модели: x1, y1, x2, y2
type candidate struct {
	box   [4]float32
	score float32
	class int
}

// decodeOutput разбирает выход [1, 4+C, N]: cx, cy, w, h и оценки классов по строкам
func decodeOutput(out []float32, numClasses, numAnchors int, threshold float32) []candidate {
	if len(out) < (4+numClasses)*numAnchors {
		return nil
	}

	candidates := make([]candidate, 0, 32)
	for i := 0; i < numAnchors; i++ {
		best, bestScore := -1, float32(0)
		for c := 0; c < numClasses; c++ {
			score := out[(4+c)*numAnchors+i]
			if score > bestScore {
				best, bestScore = c, score
			}
		}
		if best < 0 || bestScore < threshold {
			continue
		}

		cx := out[i]
		cy := out[numAnchors+i]
		w := out[2*numAnchors+i]
		h := out[3*numAnchors+i]
		candidates = append(candidates, candidate{
			box:   [4]float32{cx - w/2, cy - h/2, cx + w/2, cy + h/2},
			score: bestScore,
			class: best,
		})
	}
	return candidates
}

// nonMaxSuppression оставляет по классу рамки, которые не перекрываются сильнее iouThreshold.
// Результат упорядочен по убыванию уверенности.
func nonMaxSuppression(candidates []candidate, iouThreshold float32) []candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	kept := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		keep := true
		for _, k := range kept {
			if k.class == c.class && iou(k.box, c.box) > iouThreshold {
				keep = false
				break
			}
		}
		if keep {
			kept = append(kept, c)
		}
	}
	return kept
}

func iou(a, b [4]float32) float32 {
	x1 := max(a[0], b[0])
	y1 := max(a[1], b[1])
	x2 := min(a[2], b[2])
	y2 := min(a[3], b[3])

	inter := max(0, x2-x1) * max(0, y2-y1)
	if inter == 0 {
		return 0
	}
	areaA := (a[2] - a[0]) * (a[3] - a[1])
	areaB := (b[2] - b[0]) * (b[3] - b[1])
	return inter / (areaA + areaB - inter)
}

// toDetections переводит рамки в пиксели исходного изображения, формат [x, y, w, h]
func toDetections(candidates []candidate, labels []string, scaleX, scaleY float32, width, height int) []entity.Detection {
	detections := make([]entity.Detection, 0, len(candidates))
	for _, c := range candidates {
		x1 := clamp(c.box[0]*scaleX, 0, float32(width))
		y1 := clamp(c.box[1]*scaleY, 0, float32(height))
		x2 := clamp(c.box[2]*scaleX, 0, float32(width))
		y2 := clamp(c.box[3]*scaleY, 0, float32(height))

		label := "unknown"
		if c.class >= 0 && c.class < len(labels) {
			label = labels[c.class]
		}

		detections = append(detections, entity.Detection{
			Class: label,
			Score: round3(float64(c.score)),
			BBox:  [4]float64{float64(x1), float64(y1), float64(x2 - x1), float64(y2 - y1)},
		})
	}
	return detections
}

func clamp(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
