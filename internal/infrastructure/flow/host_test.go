package flow

import (
	"bytes"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"objdetect-node/internal/domain/entity"
)

func TestHost_StatusAndLog(t *testing.T) {
	var buf bytes.Buffer
	host := NewHost("n1", zerolog.New(&buf))

	require.True(t, host.LastStatus().IsIdle())
	host.Status(entity.StatusLoading())
	require.Equal(t, entity.StatusLoading(), host.LastStatus())

	host.Log("model loaded")
	require.Contains(t, buf.String(), `"node":"n1"`)
	require.Contains(t, buf.String(), "model loaded")
}

func TestHost_SendFansOut(t *testing.T) {
	host := NewHost("n1", zerolog.Nop())

	var got []string
	host.OnSend(func(msg *entity.Message) { got = append(got, "a:"+msg.ID) })
	host.OnSend(func(msg *entity.Message) { got = append(got, "b:"+msg.ID) })

	host.Send(&entity.Message{ID: "m1"})
	require.Equal(t, []string{"a:m1", "b:m1"}, got)
}

func TestHost_Error(t *testing.T) {
	var buf bytes.Buffer
	host := NewHost("n1", zerolog.New(&buf))

	var errs []error
	var reported []*entity.Message
	host.OnError(func(err error, msg *entity.Message) {
		errs = append(errs, err)
		reported = append(reported, msg)
	})

	msg := &entity.Message{ID: "m1"}
	host.Error(entity.ErrDecode, msg)
	host.Error(errors.New("no message"), nil)

	require.Len(t, reported, 2)
	require.ErrorIs(t, errs[0], entity.ErrDecode)
	require.Same(t, msg, reported[0])
	require.Nil(t, reported[1])
	require.Contains(t, buf.String(), `"msg":"m1"`)
}

func TestHost_SubscribeDuringSend(t *testing.T) {
	var buf bytes.Buffer
	host := NewHost("n1", zerolog.New(&buf))

	var calls []string
	host.OnSend(func(msg *entity.Message) {
		calls = append(calls, "first:"+msg.ID)
		host.OnSend(func(msg *entity.Message) { calls = append(calls, "late:"+msg.ID) })
	})
	host.OnError(func(err error, msg *entity.Message) {
		host.OnError(func(err error, msg *entity.Message) { calls = append(calls, "late-err:"+msg.ID) })
	})

	host.Send(&entity.Message{ID: "m1"})
	require.Equal(t, []string{"first:m1"}, calls)

	host.Error(entity.ErrDecode, &entity.Message{ID: "m2"})
	require.Equal(t, []string{"first:m1"}, calls)

	host.Error(entity.ErrDecode, &entity.Message{ID: "m3"})
	require.Equal(t, []string{"first:m1", "late-err:m3"}, calls)

	host.Log("done")
	require.Contains(t, buf.String(), `"component":"flow"`)
}
