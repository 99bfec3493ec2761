package flow

import (
	"slices"
	"sync"

	"github.com/rs/zerolog"

	"objdetect-node/internal/domain/entity"
	"objdetect-node/internal/domain/port"
	applog "objdetect-node/internal/logger"
)

// Host связывает один узел с остальным потоком: статус, выход, ошибки, журнал.
type Host struct {
	nodeID string
	logger zerolog.Logger

	mu      sync.RWMutex
	status  entity.Status
	outputs []func(msg *entity.Message)
	errs    []func(err error, msg *entity.Message)
}

// NewHost создаёт хост для узла nodeID
func NewHost(nodeID string, logger zerolog.Logger) *Host {
	return &Host{
		nodeID: nodeID,
		logger: applog.Component(logger, "flow").With().Str("node", nodeID).Logger(),
	}
}

// OnSend подписывает обработчик на выход узла
func (h *Host) OnSend(fn func(msg *entity.Message)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outputs = append(h.outputs, fn)
}

// OnError подписывает обработчик на ошибки узла
func (h *Host) OnError(fn func(err error, msg *entity.Message)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, fn)
}

// Status запоминает состояние узла для интерфейса
func (h *Host) Status(status entity.Status) {
	h.mu.Lock()
	h.status = status
	h.mu.Unlock()

	h.logger.Debug().
		Str("fill", string(status.Fill)).
		Str("text", status.Text).
		Msg("status")
}

// LastStatus возвращает последнее показанное состояние
func (h *Host) LastStatus() entity.Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Send передаёт сообщение всем подписчикам выхода
func (h *Host) Send(msg *entity.Message) {
	h.mu.RLock()
	outputs := slices.Clone(h.outputs)
	h.mu.RUnlock()

	for _, fn := range outputs {
		fn(msg)
	}
}

// Error пишет ошибку в журнал и передаёт её подписчикам
func (h *Host) Error(err error, msg *entity.Message) {
	event := h.logger.Error().Err(err)
	if msg != nil {
		event = event.Str("msg", msg.ID)
	}
	event.Msg("message processing failed")

	h.mu.RLock()
	errs := slices.Clone(h.errs)
	h.mu.RUnlock()

	for _, fn := range errs {
		fn(err, msg)
	}
}

// Log пишет информационное сообщение от имени узла
func (h *Host) Log(msg string) {
	h.logger.Info().Msg(msg)
}

var _ port.Host = (*Host)(nil)
