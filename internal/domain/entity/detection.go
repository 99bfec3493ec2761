package entity

// Detection представляет один объект, найденный моделью
type Detection struct {
	Class string     `json:"class"` // метка класса
	Score float64    `json:"score"` // уверенность модели
	BBox  [4]float64 `json:"bbox"`  // x, y, ширина, высота в пикселях исходного изображения
}

// ClassCounts считает количество детекций каждого класса.
// Всегда возвращает новую непустую (non-nil) карту.
func ClassCounts(detections []Detection) map[string]int {
	counts := make(map[string]int)
	for _, d := range detections {
		counts[d.Class]++
	}
	return counts
}
