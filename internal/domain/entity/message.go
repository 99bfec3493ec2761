package entity

// Payload входные данные сообщения: путь к файлу или байты изображения.
// Реализации: FilePath и RawBytes.
type Payload interface {
	isPayload()
}

// FilePath путь к файлу изображения в локальной файловой системе
type FilePath string

// RawBytes закодированное изображение (jpeg, png, ...)
type RawBytes []byte

func (FilePath) isPayload() {}
func (RawBytes) isPayload() {}

// Message сообщение, проходящее через узел.
type Message struct {
	ID      string  `json:"_msgid,omitempty"`
	Payload Payload `json:"-"`

	// Заполняются после успешной обработки.
	Detections []Detection    `json:"payload"`
	Shape      []int          `json:"shape,omitempty"`
	Classes    map[string]int `json:"classes"`
	Fields     map[string]any `json:"fields,omitempty"` // произвольные поля отправителя
}

// NewMessage создаёт сообщение с указанным входом
func NewMessage(id string, payload Payload) *Message {
	return &Message{
		ID:      id,
		Payload: payload,
		Fields:  make(map[string]any),
	}
}

// Processed сообщает, прошло ли сообщение через детектор
func (m *Message) Processed() bool {
	return m.Detections != nil
}

// Set сохраняет произвольное поле сообщения
func (m *Message) Set(key string, value any) {
	if m.Fields == nil {
		m.Fields = make(map[string]any)
	}
	m.Fields[key] = value
}

// Get возвращает произвольное поле сообщения
func (m *Message) Get(key string) (any, bool) {
	v, ok := m.Fields[key]
	return v, ok
}
