package port

import "objdetect-node/internal/domain/entity"

// Host сторона среды выполнения потоков, в которую узел отдаёт результаты
type Host interface {
	// Status показывает состояние узла оператору
	Status(status entity.Status)

	// Send отправляет сообщение в единственный выход узла
	Send(msg *entity.Message)

	// Error сообщает об ошибке обработки вместе с исходным сообщением
	Error(err error, msg *entity.Message)

	// Log пишет информационное сообщение от имени узла
	Log(msg string)
}

// Annotator рисует рамки детекций поверх исходного изображения
type Annotator interface {
	Annotate(imageData []byte, detections []entity.Detection) ([]byte, error)
}
