package app

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"

	"objdetect-node/internal/domain/entity"
)

// normalize превращает вход сообщения в байты изображения.
// Путь читается целиком; байты передаются без проверки.
func (n *Node) normalize(payload entity.Payload) ([]byte, error) {
	switch p := payload.(type) {
	case entity.FilePath:
		data, err := afero.ReadFile(n.fs, string(p))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", entity.ErrFileAccess, err)
		}
		return data, nil
	case entity.RawBytes:
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %w", entity.ErrDecode, errors.New("message has no payload"))
	}
}
