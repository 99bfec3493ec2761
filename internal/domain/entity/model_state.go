package entity

import "fmt"

// ModelPhase этап жизненного цикла модели
type ModelPhase string

const (
	ModelUnloaded ModelPhase = "unloaded" // загрузка ещё не начиналась
	ModelLoading  ModelPhase = "loading"  // идёт загрузка
	ModelReady    ModelPhase = "ready"    // модель готова к детекции
	ModelFailed   ModelPhase = "failed"   // загрузка завершилась ошибкой
)

// ModelState состояние модели узла
type ModelState struct {
	Phase ModelPhase
	Err   error // причина для ModelFailed
}

// Usable сообщает, можно ли запускать детекцию.
// Для неготовой модели возвращает ошибку из таксономии ErrInference.
func (s ModelState) Usable() error {
	switch s.Phase {
	case ModelReady:
		return nil
	case ModelFailed:
		return fmt.Errorf("%w: %v", ErrModelLoadFailed, s.Err)
	default:
		return fmt.Errorf("%w (%s)", ErrModelNotLoaded, s.Phase)
	}
}

func (s ModelState) String() string {
	if s.Phase == ModelFailed && s.Err != nil {
		return fmt.Sprintf("%s: %v", s.Phase, s.Err)
	}
	return string(s.Phase)
}
