package app

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"objdetect-node/internal/domain/entity"
	"objdetect-node/internal/domain/port"
	applog "objdetect-node/internal/logger"
)

// NodeType имя типа узла, под которым он регистрируется в среде выполнения
const NodeType = "object-detection"

// imageChannels число каналов декодированного изображения (RGB)
const imageChannels = 3

// NodeConfig настройки экземпляра узла из редактора потоков
type NodeConfig struct {
	ID       string
	Name     string
	ModelURL string // пусто: модель по умолчанию
}

// Node узел детекции объектов.
type Node struct {
	cfg     NodeConfig
	runtime port.Runtime
	host    port.Host
	fs      afero.Fs
	logger  zerolog.Logger

	mu    sync.RWMutex
	model port.DetectionModel
	state entity.ModelState

	cancelLoad context.CancelFunc
	loaded     chan struct{}
	closeOnce  sync.Once
}

// NewNode создаёт узел и в фоне запускает загрузку модели.
// Рантайм передаётся снаружи: узлы одного процесса разделяют один экземпляр.
func NewNode(cfg NodeConfig, runtime port.Runtime, host port.Host, fs afero.Fs, logger zerolog.Logger) (*Node, error) {
	if runtime == nil {
		return nil, errors.New("runtime is not configured")
	}
	if host == nil {
		return nil, errors.New("host is not configured")
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}

	ctx, cancel := context.WithCancel(context.Background())
	n := &Node{
		cfg:     cfg,
		runtime: runtime,
		host:    host,
		fs:      fs,
		logger: applog.Component(logger, "node").With().
			Str("node", cfg.ID).
			Str("name", cfg.Name).
			Logger(),
		state:      entity.ModelState{Phase: entity.ModelUnloaded},
		cancelLoad: cancel,
		loaded:     make(chan struct{}),
	}

	n.startLoading(ctx)
	return n, nil
}

// ID возвращает идентификатор узла
func (n *Node) ID() string {
	return n.cfg.ID
}

// Name возвращает отображаемое имя узла; пустое имя заменяется типом узла
func (n *Node) Name() string {
	if n.cfg.Name == "" {
		return NodeType
	}
	return n.cfg.Name
}

// Input обрабатывает входящее сообщение.
// Вся обработка выполняется синхронно, поэтому последний показанный статус
// соответствует последнему завершённому шагу. Ошибка уже передана в Host.Error.
func (n *Node) Input(ctx context.Context, msg *entity.Message) error {
	n.host.Status(entity.StatusRunning())

	err := n.process(ctx, msg)
	if err != nil {
		n.host.Error(err, msg)
		n.host.Status(entity.StatusError(""))
		return err
	}

	n.host.Status(entity.StatusIdle())
	return nil
}

func (n *Node) process(ctx context.Context, msg *entity.Message) error {
	img, err := n.normalize(msg.Payload)
	if err != nil {
		return err
	}
	return n.runPrediction(ctx, img, msg)
}

// Close отменяет незавершённую загрузку и освобождает модель
func (n *Node) Close() error {
	var err error
	n.closeOnce.Do(func() {
		n.cancelLoad()
		<-n.loaded

		n.mu.Lock()
		model := n.model
		n.model = nil
		if n.state.Phase == entity.ModelReady {
			n.state = entity.ModelState{Phase: entity.ModelUnloaded}
		}
		n.mu.Unlock()

		if model != nil {
			err = model.Close()
		}
	})
	return err
}
