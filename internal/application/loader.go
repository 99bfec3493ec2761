package app

import (
	"context"
	"errors"
	"fmt"

	"objdetect-node/internal/domain/entity"
)

// startLoading переводит модель в состояние loading и запускает одну попытку загрузки.
// Повторных попыток нет.
func (n *Node) startLoading(ctx context.Context) {
	n.setState(entity.ModelState{Phase: entity.ModelLoading})
	n.host.Status(entity.StatusLoading())

	go n.loadModel(ctx)
}

func (n *Node) loadModel(ctx context.Context) {
	defer close(n.loaded)

	model, err := n.runtime.LoadModel(ctx, n.cfg.ModelURL)
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// Загрузку отменил Close: это остановка узла, а не сбой модели
		n.setState(entity.ModelState{Phase: entity.ModelUnloaded})
		n.logger.Debug().Str("model_url", n.cfg.ModelURL).Msg("model load cancelled")
		return
	}
	if err != nil {
		n.setState(entity.ModelState{Phase: entity.ModelFailed, Err: err})
		n.logger.Error().Err(err).Str("model_url", n.cfg.ModelURL).Msg("model load failed")
		n.host.Status(entity.StatusError(fmt.Sprintf("Model load failed: %v", err)))
		return
	}

	n.mu.Lock()
	n.model = model
	n.state = entity.ModelState{Phase: entity.ModelReady}
	n.mu.Unlock()

	n.host.Status(entity.StatusReady())
	n.host.Log("Object detection model loaded.")
}

func (n *Node) setState(state entity.ModelState) {
	n.mu.Lock()
	n.state = state
	n.mu.Unlock()
}

// ModelState возвращает текущее состояние модели
func (n *Node) ModelState() entity.ModelState {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.state
}

// WaitReady ждёт завершения загрузки модели.
// Возвращает ошибку, если модель не загрузилась или истёк ctx.
func (n *Node) WaitReady(ctx context.Context) error {
	select {
	case <-n.loaded:
		return n.ModelState().Usable()
	case <-ctx.Done():
		return ctx.Err()
	}
}
