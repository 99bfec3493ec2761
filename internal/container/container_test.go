package container

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	app "objdetect-node/internal/application"
	"objdetect-node/internal/domain/entity"
	"objdetect-node/internal/domain/port"
	"objdetect-node/internal/infrastructure/registry"
)

type nopTensor struct{}

func (nopTensor) Shape() []int    { return []int{1, 1, 3} }
func (nopTensor) Pixels() []uint8 { return []uint8{0, 0, 0} }
func (nopTensor) Dispose()        {}

type nopModel struct{}

func (nopModel) Detect(context.Context, port.Tensor) ([]entity.Detection, error) {
	return []entity.Detection{{Class: "dog", Score: 0.5}}, nil
}
func (nopModel) Close() error { return nil }

type countingRuntime struct {
	loads  atomic.Int32
	closed atomic.Bool
}

func (r *countingRuntime) Name() string { return "test" }
func (r *countingRuntime) DecodeImage([]byte, int) (port.Tensor, error) {
	return nopTensor{}, nil
}
func (r *countingRuntime) LoadModel(context.Context, string) (port.DetectionModel, error) {
	r.loads.Add(1)
	return nopModel{}, nil
}
func (r *countingRuntime) Close() error {
	r.closed.Store(true)
	return nil
}

func TestContainer_SharesRuntime(t *testing.T) {
	rt := &countingRuntime{}
	var created atomic.Int32
	factory := func() (port.Runtime, error) {
		created.Add(1)
		return rt, nil
	}

	c, err := New(registry.NewRuntimeRegistry(), "test", factory, []app.NodeConfig{
		{ID: "a"}, {ID: "b", ModelURL: "models/b.onnx"},
	}, afero.NewMemMapFs(), zerolog.Nop())
	require.NoError(t, err)

	require.Equal(t, int32(1), created.Load())
	require.Len(t, c.Nodes, 2)
	require.Len(t, c.Hosts, 2)

	node, ok := c.Node("b")
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, node.WaitReady(ctx))

	var got *entity.Message
	c.Hosts["b"].OnSend(func(msg *entity.Message) { got = msg })
	require.NoError(t, node.Input(ctx, entity.NewMessage("m1", entity.RawBytes("img"))))
	require.NotNil(t, got)
	require.Equal(t, map[string]int{"dog": 1}, got.Classes)
	require.True(t, c.Hosts["b"].LastStatus().IsIdle())

	_, ok = c.Node("missing")
	require.False(t, ok)

	require.NoError(t, c.Close())
	require.True(t, rt.closed.Load())
	require.Equal(t, int32(2), rt.loads.Load())
}
