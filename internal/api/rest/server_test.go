package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"objdetect-node/internal/domain/entity"
)

type stubNode struct {
	id    string
	name  string
	err   error
	state entity.ModelState
	got   []*entity.Message
}

func (n *stubNode) ID() string                    { return n.id }
func (n *stubNode) Name() string                  { return n.name }
func (n *stubNode) ModelState() entity.ModelState { return n.state }

func (n *stubNode) Input(ctx context.Context, msg *entity.Message) error {
	n.got = append(n.got, msg)
	if n.err != nil {
		return n.err
	}
	msg.Detections = []entity.Detection{{Class: "cat", Score: 0.9, BBox: [4]float64{1, 2, 3, 4}}}
	msg.Shape = []int{10, 10, 3}
	msg.Classes = entity.ClassCounts(msg.Detections)
	return nil
}

type stubStatus struct{ status entity.Status }

func (s stubStatus) LastStatus() entity.Status { return s.status }

func newTestServer(allowPaths bool, nodes ...*stubNode) http.Handler {
	srv := NewServer(allowPaths, zerolog.Nop())
	for _, n := range nodes {
		srv.AddNode(n, stubStatus{status: entity.StatusReady()})
	}
	return srv.Router()
}

func TestDetect_RawBody(t *testing.T) {
	node := &stubNode{id: "a"}
	h := newTestServer(false, node)

	req := httptest.NewRequest(http.MethodPost, "/detect", strings.NewReader("jpeg bytes"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, node.got, 1)
	require.Equal(t, entity.RawBytes("jpeg bytes"), node.got[0].Payload)

	var body struct {
		Payload []entity.Detection `json:"payload"`
		Shape   []int              `json:"shape"`
		Classes map[string]int     `json:"classes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, map[string]int{"cat": 1}, body.Classes)
	require.Equal(t, []int{10, 10, 3}, body.Shape)
	require.Len(t, body.Payload, 1)
}

func TestDetect_PathRequest(t *testing.T) {
	node := &stubNode{id: "a"}

	req := httptest.NewRequest(http.MethodPost, "/detect", strings.NewReader(`{"path": "/tmp/cat.jpg"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newTestServer(false, node).ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, node.got)

	req = httptest.NewRequest(http.MethodPost, "/detect", strings.NewReader(`{"path": "/tmp/cat.jpg"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	newTestServer(true, node).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, entity.FilePath("/tmp/cat.jpg"), node.got[0].Payload)
}

func TestDetect_PathRequestWithCharset(t *testing.T) {
	node := &stubNode{id: "a"}

	req := httptest.NewRequest(http.MethodPost, "/detect", strings.NewReader(`{"path": "/tmp/cat.jpg"}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()
	newTestServer(true, node).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, node.got, 1)
	require.Equal(t, entity.FilePath("/tmp/cat.jpg"), node.got[0].Payload)
}

func TestDetect_InvalidContentType(t *testing.T) {
	node := &stubNode{id: "a"}

	req := httptest.NewRequest(http.MethodPost, "/detect", strings.NewReader("img"))
	req.Header.Set("Content-Type", "application/json; charset")
	rec := httptest.NewRecorder()
	newTestServer(true, node).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, node.got)
}

func TestDetect_BodyTooLarge(t *testing.T) {
	node := &stubNode{id: "a"}

	body := strings.NewReader(strings.Repeat("x", maxImageSize+1))
	rec := httptest.NewRecorder()
	newTestServer(false, node).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/detect", body))

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Empty(t, node.got)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "payload_too_large", resp.Code)
}

func TestDetect_RoutesByNodeID(t *testing.T) {
	a, b := &stubNode{id: "a"}, &stubNode{id: "b"}
	h := newTestServer(false, a, b)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/nodes/b/detect", strings.NewReader("img")))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, a.got)
	require.Len(t, b.got, 1)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/nodes/c/detect", strings.NewReader("img")))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDetect_EmptyBody(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(false, &stubNode{id: "a"}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/detect", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDetect_ErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		code string
		want int
	}{
		{fmt.Errorf("%w: open /x: no such file", entity.ErrFileAccess), "file_access", http.StatusBadRequest},
		{fmt.Errorf("%w: unknown format", entity.ErrDecode), "invalid_image", http.StatusBadRequest},
		{entity.ErrModelNotLoaded, "model_unavailable", http.StatusServiceUnavailable},
		{fmt.Errorf("%w: 404", entity.ErrModelLoadFailed), "model_unavailable", http.StatusServiceUnavailable},
		{fmt.Errorf("%w: session run failed", entity.ErrInference), "processing_error", http.StatusInternalServerError},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		newTestServer(false, &stubNode{id: "a", err: tc.err}).
			ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/detect", strings.NewReader("img")))
		require.Equal(t, tc.want, rec.Code, tc.err.Error())

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, tc.code, resp.Code)
	}
}

func TestStatus(t *testing.T) {
	node := &stubNode{id: "a", name: "front door", state: entity.ModelState{Phase: entity.ModelReady}}
	rec := httptest.NewRecorder()
	newTestServer(false, node).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var statuses []NodeStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
	require.Equal(t, []NodeStatus{{ID: "a", Name: "front door", Model: "ready", Status: entity.StatusReady()}}, statuses)
}

func TestDetect_NoNodes(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(false).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/detect", strings.NewReader("img")))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
