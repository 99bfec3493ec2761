package app

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"

	"github.com/spf13/afero"

	"objdetect-node/internal/domain/entity"
	"objdetect-node/internal/domain/port"
)

type fakeTensor struct {
	shape    []int
	disposed atomic.Int32
}

func (t *fakeTensor) Shape() []int    { return t.shape }
func (t *fakeTensor) Pixels() []uint8 { return nil }
func (t *fakeTensor) Dispose()        { t.disposed.Add(1) }

type fakeModel struct {
	detections []entity.Detection
	err        error
	closed     atomic.Bool
}

func (m *fakeModel) Detect(ctx context.Context, input port.Tensor) ([]entity.Detection, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.detections, nil
}

func (m *fakeModel) Close() error {
	m.closed.Store(true)
	return nil
}

// fakeRuntime декодирует всё, кроме байтов "broken".
// Если gate не nil, LoadModel ждёт его закрытия.
type fakeRuntime struct {
	model   *fakeModel
	loadErr error
	gate    chan struct{}

	mu        sync.Mutex
	tensors   []*fakeTensor
	locations []string
}

func (r *fakeRuntime) Name() string { return "fake" }

func (r *fakeRuntime) DecodeImage(data []byte, channels int) (port.Tensor, error) {
	if string(data) == "broken" || len(data) == 0 {
		return nil, errors.New("unsupported image format")
	}
	t := &fakeTensor{shape: []int{10, 20, channels}}
	r.mu.Lock()
	r.tensors = append(r.tensors, t)
	r.mu.Unlock()
	return t, nil
}

func (r *fakeRuntime) LoadModel(ctx context.Context, location string) (port.DetectionModel, error) {
	r.mu.Lock()
	r.locations = append(r.locations, location)
	r.mu.Unlock()

	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return r.model, nil
}

func (r *fakeRuntime) Close() error { return nil }

func (r *fakeRuntime) decodedTensors() []*fakeTensor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*fakeTensor(nil), r.tensors...)
}

type reportedError struct {
	err error
	msg *entity.Message
}

type recordingHost struct {
	mu       sync.Mutex
	statuses []entity.Status
	sent     []*entity.Message
	errors   []reportedError
	logs     []string
}

func (h *recordingHost) Status(status entity.Status) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, status)
}

func (h *recordingHost) Send(msg *entity.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, msg)
}

func (h *recordingHost) Error(err error, msg *entity.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errors = append(h.errors, reportedError{err: err, msg: msg})
}

func (h *recordingHost) Log(msg string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logs = append(h.logs, msg)
}

func (h *recordingHost) snapshot() ([]entity.Status, []*entity.Message, []reportedError) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]entity.Status(nil), h.statuses...),
		append([]*entity.Message(nil), h.sent...),
		append([]reportedError(nil), h.errors...)
}

// countingFs считает обращения к файловой системе
type countingFs struct {
	afero.Fs
	opens atomic.Int32
}

func (f *countingFs) Open(name string) (afero.File, error) {
	f.opens.Add(1)
	return f.Fs.Open(name)
}

func (f *countingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	f.opens.Add(1)
	return f.Fs.OpenFile(name, flag, perm)
}

func (f *countingFs) Stat(name string) (os.FileInfo, error) {
	f.opens.Add(1)
	return f.Fs.Stat(name)
}
