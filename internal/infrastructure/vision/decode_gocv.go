//go:build gocv
// +build gocv

package vision

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"objdetect-node/internal/domain/port"
)

// matTensor тензор поверх gocv.Mat; память освобождается в Dispose
type matTensor struct {
	mat      gocv.Mat
	shape    []int
	disposed bool
}

func (t *matTensor) Shape() []int { return t.shape }

func (t *matTensor) Pixels() []uint8 {
	if t.disposed {
		return nil
	}
	return t.mat.ToBytes()
}

// Dispose закрывает Mat
func (t *matTensor) Dispose() {
	if t.disposed {
		return
	}
	t.disposed = true
	t.mat.Close()
}

// decodeImage превращает байты изображения в gocv.Mat с каналами RGB
func decodeImage(data []byte, channels int) (port.Tensor, error) {
	flags := gocv.IMReadColor
	switch channels {
	case 3:
	case 1:
		flags = gocv.IMReadGrayScale
	default:
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}

	mat, err := gocv.IMDecode(data, flags)
	if err != nil || mat.Empty() {
		if err == nil {
			mat.Close()
		}
		return nil, errors.New("failed to decode image")
	}

	if channels == 3 {
		rgb := gocv.NewMat()
		gocv.CvtColor(mat, &rgb, gocv.ColorBGRToRGB)
		mat.Close()
		mat = rgb
	}

	return &matTensor{
		mat:   mat,
		shape: []int{mat.Rows(), mat.Cols(), mat.Channels()},
	}, nil
}
