package vision

import (
	"context"
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
	ort "github.com/yalue/onnxruntime_go"

	"objdetect-node/internal/domain/port"
	applog "objdetect-node/internal/logger"
)

// RuntimeName имя общего рантайма в реестре
const RuntimeName = "onnxruntime"

// RuntimeConfig настройки рантайма ONNX
type RuntimeConfig struct {
	LibraryPath string // путь к libonnxruntime; пусто: поиск по умолчанию
	Threads     int    // 0: число CPU
	Model       ModelConfig
}

// OnnxRuntime общий экземпляр ONNX Runtime: декодирование изображений и загрузка моделей
type OnnxRuntime struct {
	cfg    RuntimeConfig
	logger zerolog.Logger
}

// NewOnnxRuntime инициализирует окружение ONNX Runtime.
// Окружение одно на процесс, поэтому рантайм создаётся через реестр.
func NewOnnxRuntime(cfg RuntimeConfig, logger zerolog.Logger) (*OnnxRuntime, error) {
	if cfg.Threads <= 0 {
		cfg.Threads = runtime.NumCPU()
	}
	cfg.Model = cfg.Model.withDefaults()

	if cfg.LibraryPath != "" {
		ort.SetSharedLibraryPath(cfg.LibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("initialize onnxruntime environment: %w", err)
	}

	logger = applog.Component(logger, "runtime")
	logLoaded(logger, ort.GetVersion(), cfg)

	return &OnnxRuntime{cfg: cfg, logger: logger}, nil
}

func logLoaded(logger zerolog.Logger, version string, cfg RuntimeConfig) {
	logger.Info().
		Str("version", version).
		Str("library", cfg.LibraryPath).
		Int("threads", cfg.Threads).
		Msg("loaded onnxruntime")
}

// Name возвращает имя рантайма
func (r *OnnxRuntime) Name() string {
	return RuntimeName
}

// DecodeImage декодирует байты изображения в тензор HWC
func (r *OnnxRuntime) DecodeImage(data []byte, channels int) (port.Tensor, error) {
	return decodeImage(data, channels)
}

// LoadModel загружает модель детекции из файла или по URL
func (r *OnnxRuntime) LoadModel(ctx context.Context, location string) (port.DetectionModel, error) {
	if location == "" {
		location = r.cfg.Model.DefaultLocation
	}

	path, err := resolveModel(ctx, location, r.cfg.Model.CacheDir)
	if err != nil {
		return nil, err
	}

	model, err := newOnnxModel(path, r.cfg.Model, r.cfg.Threads)
	if err != nil {
		return nil, err
	}

	r.logger.Info().
		Str("location", location).
		Str("path", path).
		Int("input_size", r.cfg.Model.InputSize).
		Int("classes", len(r.cfg.Model.Labels)).
		Msg("model session created")

	return model, nil
}

// Close уничтожает окружение ONNX Runtime
func (r *OnnxRuntime) Close() error {
	return ort.DestroyEnvironment()
}

var _ port.Runtime = (*OnnxRuntime)(nil)
