//go:build !gocv
// +build !gocv

package vision

import (
	"bytes"
	"errors"
	"fmt"
	"image/jpeg"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

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
	img, err := imaging.Decode(bytes.NewReader(imageData), imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.New("failed to decode image")
	}

	dc := gg.NewContextForImage(img)
	dc.SetLineWidth(a.LineWidth)
	for _, d := range detections {
		x, y, w, h := d.BBox[0], d.BBox[1], d.BBox[2], d.BBox[3]

		dc.SetRGB(0, 1, 0)
		dc.DrawRectangle(x, y, w, h)
		dc.Stroke()

		dc.DrawStringAnchored(fmt.Sprintf("%s %.2f", d.Class, d.Score), x+2, y+2, 0, 1)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dc.Image(), &jpeg.Options{Quality: a.Quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var _ port.Annotator = (*Annotator)(nil)
