package app

import (
	"context"
	"fmt"
	"time"

	"objdetect-node/internal/domain/entity"
	"objdetect-node/internal/domain/port"
)

// runPrediction декодирует изображение, запускает детекцию и отправляет результат дальше.
// Тензор освобождается на любом пути выхода.
func (n *Node) runPrediction(ctx context.Context, img []byte, msg *entity.Message) error {
	start := time.Now()

	tensor, err := n.runtime.DecodeImage(img, imageChannels)
	if err != nil {
		return fmt.Errorf("%w: %w", entity.ErrDecode, err)
	}
	defer tensor.Dispose()
	decoded := time.Since(start)

	model, err := n.readyModel()
	if err != nil {
		return err
	}

	detections, err := model.Detect(ctx, tensor)
	if err != nil {
		return fmt.Errorf("%w: %w", entity.ErrInference, err)
	}
	if detections == nil {
		detections = []entity.Detection{}
	}

	msg.Detections = detections
	msg.Shape = tensor.Shape()
	msg.Classes = entity.ClassCounts(detections)

	n.logger.Debug().
		Str("msg", msg.ID).
		Ints("shape", msg.Shape).
		Int("detections", len(detections)).
		Dur("decode", decoded).
		Dur("total", time.Since(start)).
		Msg("prediction finished")

	n.host.Send(msg)
	return nil
}

// readyModel возвращает модель, если она загружена
func (n *Node) readyModel() (port.DetectionModel, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if err := n.state.Usable(); err != nil {
		return nil, err
	}
	return n.model, nil
}
