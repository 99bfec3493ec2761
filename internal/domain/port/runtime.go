package port

import (
	"context"

	"objdetect-node/internal/domain/entity"
)

// Runtime общий экземпляр ML-библиотеки: декодирование изображений и загрузка моделей
type Runtime interface {
	// Name возвращает имя, под которым рантайм хранится в реестре
	Name() string

	// DecodeImage декодирует байты изображения в тензор с заданным числом каналов
	DecodeImage(data []byte, channels int) (Tensor, error)

	// LoadModel загружает модель детекции; пустой location означает модель по умолчанию
	LoadModel(ctx context.Context, location string) (DetectionModel, error)

	// Close освобождает рантайм при завершении процесса
	Close() error
}

// Tensor декодированное изображение в формате HWC
type Tensor interface {
	// Shape возвращает размерности [высота, ширина, каналы]
	Shape() []int

	// Pixels возвращает пиксели построчно, каналы RGB
	Pixels() []uint8

	// Dispose освобождает память тензора; повторный вызов безопасен
	Dispose()
}

// DetectionModel загруженная модель детекции объектов
type DetectionModel interface {
	// Detect ищет объекты на изображении
	Detect(ctx context.Context, input Tensor) ([]entity.Detection, error)

	// Close освобождает ресурсы модели
	Close() error
}
