package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"objdetect-node/internal/domain/entity"
	"objdetect-node/internal/domain/port"
	applog "objdetect-node/internal/logger"
)

const (
	msgStart = `👋 Привет! Я бот для поиска объектов на фотографиях.

📸 Отправьте мне фото, и я покажу, что на нём нашла модель.

📋 Команды:
/status — состояние модели
/help — справка`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Отправьте фото
2️⃣ Бот прогонит его через модель детекции
3️⃣ Вы получите результат: список классов + фото с рамками

📋 Команды:
/status — состояние модели`

	msgSendPhoto       = "📸 Пожалуйста, отправьте фото."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgNoObjects       = "✅ Объекты не обнаружены."
	msgProcessingError = "⚠️ Не удалось обработать изображение. Попробуйте другое фото."
)

// fieldChatID поле сообщения с чатом, из которого пришло фото
const fieldChatID = "telegram_chat_id"

// Detector узел, в который бот отправляет фотографии
type Detector interface {
	ID() string
	Input(ctx context.Context, msg *entity.Message) error
	ModelState() entity.ModelState
}

// Outputs подписка на выход и ошибки узла
type Outputs interface {
	OnSend(fn func(msg *entity.Message))
	OnError(fn func(err error, msg *entity.Message))
}

// Bot представляет Telegram-бота
type Bot struct {
	api       *tgbotapi.BotAPI
	detector  Detector
	annotator port.Annotator
	logger    zerolog.Logger
}

// NewBot создаёт нового бота и подписывает его на выход узла
func NewBot(token string, detector Detector, outputs Outputs, annotator port.Annotator, logger zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	b := &Bot{
		api:       api,
		detector:  detector,
		annotator: annotator,
		logger:    applog.Component(logger, "telegram"),
	}
	b.logger.Info().Str("account", api.Self.UserName).Msg("authorized")

	outputs.OnSend(func(msg *entity.Message) { b.handleOutput(msg) })
	outputs.OnError(func(err error, msg *entity.Message) { b.handleError(err, msg) })

	return b, nil
}

// Run запускает основной цикл обработки сообщений до отмены ctx
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(msg)
		return
	}

	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg)
		return
	}

	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		b.sendMessage(msg.Chat.ID, msgStart)
	case "help":
		b.sendMessage(msg.Chat.ID, msgHelp)
	case "status":
		b.sendMessage(msg.Chat.ID, fmt.Sprintf("🧠 Модель: %s", b.detector.ModelState()))
	default:
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
	}
}

// handlePhoto скачивает фото и отправляет его в узел.
// Ответ приходит через handleOutput или handleError.
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message) {
	// Берём файл с максимальным разрешением
	photo := msg.Photo[len(msg.Photo)-1]

	imageData, err := b.downloadFile(ctx, photo.FileID)
	if err != nil {
		b.logger.Error().Err(err).Int64("chat", msg.Chat.ID).Msg("download photo")
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	in := entity.NewMessage(messageID(msg), entity.RawBytes(imageData))
	in.Set(fieldChatID, msg.Chat.ID)

	// Ошибка уже передана в handleError через хост
	_ = b.detector.Input(ctx, in)
}

func (b *Bot) handleOutput(msg *entity.Message) {
	chatID, ok := chatOf(msg)
	if !ok {
		return
	}

	b.sendMessage(chatID, formatSummary(msg.Classes))
	if len(msg.Detections) == 0 || b.annotator == nil {
		return
	}

	raw, ok := msg.Payload.(entity.RawBytes)
	if !ok {
		return
	}
	annotated, err := b.annotator.Annotate(raw, msg.Detections)
	if err != nil {
		b.logger.Error().Err(err).Str("msg", msg.ID).Msg("annotate photo")
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "detections.jpg", Bytes: annotated})
	if _, err := b.api.Send(photo); err != nil {
		b.logger.Error().Err(err).Int64("chat", chatID).Msg("send photo")
	}
}

func (b *Bot) handleError(err error, msg *entity.Message) {
	chatID, ok := chatOf(msg)
	if !ok {
		return
	}
	b.sendMessage(chatID, msgProcessingError)
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(ctx context.Context, fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, file.Link(b.api.Token), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat", chatID).Msg("send message")
	}
}

func messageID(msg *tgbotapi.Message) string {
	return strconv.FormatInt(msg.Chat.ID, 10) + "-" + strconv.Itoa(msg.MessageID)
}

func chatOf(msg *entity.Message) (int64, bool) {
	if msg == nil {
		return 0, false
	}
	v, ok := msg.Get(fieldChatID)
	if !ok {
		return 0, false
	}
	chatID, ok := v.(int64)
	return chatID, ok
}

// formatSummary перечисляет классы по убыванию количества
func formatSummary(classes map[string]int) string {
	if len(classes) == 0 {
		return msgNoObjects
	}

	names := make([]string, 0, len(classes))
	for name := range classes {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if classes[names[i]] != classes[names[j]] {
			return classes[names[i]] > classes[names[j]]
		}
		return names[i] < names[j]
	})

	var sb strings.Builder
	sb.WriteString("🔎 Найдено:\n")
	for _, name := range names {
		fmt.Fprintf(&sb, "• %s: %d\n", name, classes[name])
	}
	return strings.TrimRight(sb.String(), "\n")
}
