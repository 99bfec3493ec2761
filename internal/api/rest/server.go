package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"objdetect-node/internal/domain/entity"
	applog "objdetect-node/internal/logger"
)

// maxImageSize ограничение тела запроса
const maxImageSize = 20 << 20

// Node узел детекции, доступный через HTTP
type Node interface {
	ID() string
	Name() string
	Input(ctx context.Context, msg *entity.Message) error
	ModelState() entity.ModelState
}

// StatusSource последнее состояние узла, показанное хостом
type StatusSource interface {
	LastStatus() entity.Status
}

type route struct {
	node   Node
	status StatusSource
}

// Server HTTP-вход потока: POST /detect принимает изображение и возвращает сообщение узла
type Server struct {
	routes     []route
	allowPaths bool
	logger     zerolog.Logger
}

type detectRequest struct {
	Path string `json:"path"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type NodeStatus struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Model  string        `json:"model"`
	Status entity.Status `json:"status"`
}

// NewServer создаёт сервер. allowPaths разрешает запросы с путём к файлу на сервере.
func NewServer(allowPaths bool, logger zerolog.Logger) *Server {
	return &Server{
		allowPaths: allowPaths,
		logger:     applog.Component(logger, "http"),
	}
}

// AddNode публикует узел; первый добавленный узел обслуживает /detect
func (s *Server) AddNode(node Node, status StatusSource) {
	s.routes = append(s.routes, route{node: node, status: status})
}

// Router возвращает обработчик со всеми маршрутами
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/detect", s.handleDetect).Methods(http.MethodPost)
	r.HandleFunc("/nodes/{id}/detect", s.handleDetect).Methods(http.MethodPost)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	return r
}

func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	node, ok := s.lookup(mux.Vars(r)["id"])
	if !ok {
		sendError(w, "unknown_node", "node not found", http.StatusNotFound)
		return
	}

	payload, err := s.readPayload(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sendError(w, "payload_too_large", err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		sendError(w, "invalid_request", err.Error(), http.StatusBadRequest)
		return
	}

	msg := entity.NewMessage(uuid.NewString(), payload)
	if err := node.Input(r.Context(), msg); err != nil {
		code, status := classify(err)
		sendError(w, code, err.Error(), status)
		return
	}

	s.logger.Debug().Str("node", node.ID()).Str("msg", msg.ID).Int("detections", len(msg.Detections)).Msg("detect")
	sendJSON(w, http.StatusOK, msg)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	statuses := make([]NodeStatus, 0, len(s.routes))
	for _, rt := range s.routes {
		statuses = append(statuses, NodeStatus{
			ID:     rt.node.ID(),
			Name:   rt.node.Name(),
			Model:  rt.node.ModelState().String(),
			Status: rt.status.LastStatus(),
		})
	}
	sendJSON(w, http.StatusOK, statuses)
}

func (s *Server) lookup(id string) (Node, bool) {
	if len(s.routes) == 0 {
		return nil, false
	}
	if id == "" {
		return s.routes[0].node, true
	}
	for _, rt := range s.routes {
		if rt.node.ID() == id {
			return rt.node, true
		}
	}
	return nil, false
}

// readPayload JSON {"path": ...} превращается в FilePath, любое другое тело в RawBytes
func (s *Server) readPayload(w http.ResponseWriter, r *http.Request) (entity.Payload, error) {
	body := http.MaxBytesReader(w, r.Body, maxImageSize)
	defer body.Close()

	isJSON, err := isJSONBody(r)
	if err != nil {
		return nil, err
	}
	if isJSON {
		if !s.allowPaths {
			return nil, errors.New("file paths are not allowed")
		}
		var req detectRequest
		if err := json.NewDecoder(body).Decode(&req); err != nil {
			return nil, err
		}
		if req.Path == "" {
			return nil, errors.New("path is required")
		}
		return entity.FilePath(req.Path), nil
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty body")
	}
	return entity.RawBytes(data), nil
}

// isJSONBody сообщает, прислан ли JSON; параметры типа (charset) игнорируются
func isJSONBody(r *http.Request) (bool, error) {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false, nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false, fmt.Errorf("invalid content type: %w", err)
	}
	return mediaType == "application/json", nil
}

func classify(err error) (string, int) {
	switch {
	case errors.Is(err, entity.ErrFileAccess):
		return "file_access", http.StatusBadRequest
	case errors.Is(err, entity.ErrDecode):
		return "invalid_image", http.StatusBadRequest
	case errors.Is(err, entity.ErrModelNotLoaded), errors.Is(err, entity.ErrModelLoadFailed):
		return "model_unavailable", http.StatusServiceUnavailable
	default:
		return "processing_error", http.StatusInternalServerError
	}
}

func sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func sendError(w http.ResponseWriter, code, message string, status int) {
	sendJSON(w, status, ErrorResponse{Code: code, Message: message})
}
