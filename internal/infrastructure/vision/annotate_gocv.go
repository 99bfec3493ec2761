//go:build gocv
// +build gocv

package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"gocv.io/x/gocv"

	"objdetect-node/internal/domain/entity"
	"objdetect-node/internal/domain/port"
)

// Annotator рисует рамки детекций и возвращает JPEG
type Annotator struct {
	LineWidth float64
	Quality   int
}

// NewAnnotator создаёт аннотатор с настройками по умолчанию
func NewAnnotator() *Annotator {
	return &Annotator{LineWidth: 2, Quality: 90}
}

// Annotate рисует прямоугольники вокруг объектов с подписью класса и уверенности
func (a *Annotator) Annotate(imageData []byte, detections []entity.Detection) ([]byte, error) {
	mat, err := gocv.IMDecode(imageData, gocv.IMReadColor)
	if err != nil || mat.Empty() {
		if err == nil {
			mat.Close()
		}
		return nil, errors.New("failed to decode image")
	}
	defer mat.Close()

	green := color.RGBA{G: 255, A: 255}
	for _, d := range detections {
		x, y := int(d.BBox[0]), int(d.BBox[1])
		rect := image.Rect(x, y, x+int(d.BBox[2]), y+int(d.BBox[3]))
		gocv.Rectangle(&mat, rect, green, int(a.LineWidth))
		gocv.PutText(&mat, fmt.Sprintf("%s %.2f", d.Class, d.Score), image.Pt(x+2, y+14),
			gocv.FontHersheySimplex, 0.5, green, 1)
	}

	img, err := mat.ToImage()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: a.Quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var _ port.Annotator = (*Annotator)(nil)
