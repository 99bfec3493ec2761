package vision

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	ort "github.com/yalue/onnxruntime_go"

	"objdetect-node/internal/domain/entity"
	"objdetect-node/internal/domain/port"
)

// DefaultModelLocation модель, которая используется при пустом modelUrl
const DefaultModelLocation = "models/yolov8n.onnx"

// ModelConfig параметры модели детекции (экспорт YOLO, выход [1, 4+C, N])
type ModelConfig struct {
	DefaultLocation string
	CacheDir        string
	InputSize       int
	InputName       string
	OutputName      string
	ScoreThreshold  float32
	IOUThreshold    float32
	Labels          []string
}

func (c ModelConfig) withDefaults() ModelConfig {
	if c.DefaultLocation == "" {
		c.DefaultLocation = DefaultModelLocation
	}
	if c.InputSize <= 0 {
		c.InputSize = 640
	}
	if c.InputName == "" {
		c.InputName = "images"
	}
	if c.OutputName == "" {
		c.OutputName = "output0"
	}
	if c.ScoreThreshold <= 0 {
		c.ScoreThreshold = 0.5
	}
	if c.IOUThreshold <= 0 {
		c.IOUThreshold = 0.45
	}
	if len(c.Labels) == 0 {
		c.Labels = CocoLabels
	}
	return c
}

// anchorCount число предсказаний YOLO для квадратного входа со страйдами 8, 16, 32
func anchorCount(inputSize int) int {
	total := 0
	for _, stride := range []int{8, 16, 32} {
		side := inputSize / stride
		total += side * side
	}
	return total
}

type onnxModel struct {
	mu      sync.Mutex
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	cfg     ModelConfig
	anchors int
}

func newOnnxModel(path string, cfg ModelConfig, threads int) (*onnxModel, error) {
	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("error creating session options: %w", err)
	}
	defer options.Destroy()

	options.SetIntraOpNumThreads(threads)
	options.SetInterOpNumThreads(threads)

	anchors := anchorCount(cfg.InputSize)
	size := int64(cfg.InputSize)
	inputShape := ort.NewShape(1, 3, size, size)
	outputShape := ort.NewShape(1, int64(4+len(cfg.Labels)), int64(anchors))

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		path,
		[]string{cfg.InputName},
		[]string{cfg.OutputName},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	return &onnxModel{
		session: session,
		input:   inputTensor,
		output:  outputTensor,
		cfg:     cfg,
		anchors: anchors,
	}, nil
}

// Detect запускает модель на изображении.
// Тензоры сессии общие, поэтому вызовы выполняются по одному.
func (m *onnxModel) Detect(ctx context.Context, input port.Tensor) ([]entity.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := tensorImage(input)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil, fmt.Errorf("model session is closed")
	}

	resized := imaging.Resize(img, m.cfg.InputSize, m.cfg.InputSize, imaging.Linear)
	fillCHW(m.input.GetData(), resized, m.cfg.InputSize)

	if err := m.session.Run(); err != nil {
		return nil, fmt.Errorf("model inference: %w", err)
	}

	candidates := decodeOutput(m.output.GetData(), len(m.cfg.Labels), m.anchors, m.cfg.ScoreThreshold)
	candidates = nonMaxSuppression(candidates, m.cfg.IOUThreshold)

	scaleX := float32(bounds.Dx()) / float32(m.cfg.InputSize)
	scaleY := float32(bounds.Dy()) / float32(m.cfg.InputSize)
	return toDetections(candidates, m.cfg.Labels, scaleX, scaleY, bounds.Dx(), bounds.Dy()), nil
}

// Close уничтожает сессию и её тензоры
func (m *onnxModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil
	}

	err := m.session.Destroy()
	m.input.Destroy()
	m.output.Destroy()
	m.session = nil
	return err
}

// tensorImage собирает image.NRGBA из пикселей тензора HWC
func tensorImage(t port.Tensor) (*image.NRGBA, error) {
	shape := t.Shape()
	if len(shape) != 3 {
		return nil, fmt.Errorf("unexpected tensor shape %v", shape)
	}
	h, w, c := shape[0], shape[1], shape[2]
	if c != 1 && c != 3 {
		return nil, fmt.Errorf("unsupported channel count %d", c)
	}

	pixels := t.Pixels()
	if len(pixels) != h*w*c {
		return nil, fmt.Errorf("tensor has %d bytes, want %d", len(pixels), h*w*c)
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < h*w; i++ {
		o := i * 4
		if c == 1 {
			v := pixels[i]
			img.Pix[o], img.Pix[o+1], img.Pix[o+2] = v, v, v
		} else {
			img.Pix[o] = pixels[i*3]
			img.Pix[o+1] = pixels[i*3+1]
			img.Pix[o+2] = pixels[i*3+2]
		}
		img.Pix[o+3] = 255
	}
	return img, nil
}

// fillCHW раскладывает изображение по каналам и нормирует в [0, 1]
func fillCHW(dst []float32, pic *image.NRGBA, size int) {
	channelSize := size * size
	for y := 0; y < size; y++ {
		row := y * pic.Stride
		for x := 0; x < size; x++ {
			i := y*size + x
			p := row + x*4
			dst[i] = float32(pic.Pix[p]) / 255.0
			dst[channelSize+i] = float32(pic.Pix[p+1]) / 255.0
			dst[channelSize*2+i] = float32(pic.Pix[p+2]) / 255.0
		}
	}
}

var _ port.DetectionModel = (*onnxModel)(nil)
