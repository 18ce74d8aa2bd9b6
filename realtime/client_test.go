package realtime

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestClient_Send(t *testing.T) {
	t.Parallel()

	t.Run("Buffer Full", func(t *testing.T) {
		t.Parallel()
		c := NewClient("A", "Alice", &MockWebsocketConnection{})
		for range sendBuffer {
			require.NoError(t, c.Send([]byte("x")))
		}
		assert.ErrorIs(t, c.Send([]byte("x")), ErrSendBufferFull)
	})

	t.Run("Closed", func(t *testing.T) {
		t.Parallel()
		socket := &MockWebsocketConnection{}
		socket.On("Close", "bye").Return().Once()
		c := NewClient("A", "Alice", socket)

		c.Close("bye")
		c.Close("again")

		assert.ErrorIs(t, c.Send([]byte("x")), ErrClientClosed)
		socket.AssertExpectations(t)
	})
}

func TestClient_ReadPump(t *testing.T) {
	t.Parallel()

	t.Run("Read Error", func(t *testing.T) {
		t.Parallel()
		socket := &MockWebsocketConnection{}
		socket.On("Read").Return([]byte{}, assert.AnError).Once()
		c := NewClient("A", "Alice", socket)

		// on read error, the pump must release
		c.ReadPump(func(*Client, Frame) { t.Error("nothing should be handled") })
		socket.AssertExpectations(t)
	})

	t.Run("Skips Malformed Frames", func(t *testing.T) {
		t.Parallel()
		socket := &MockWebsocketConnection{}
		socket.On("Read").Return([]byte{0xff}, nil).Once()
		socket.On("Read").Return(EncodeFrame(Frame{Type: CmdLeave, RequestID: 4}), nil).Once()
		socket.On("Read").Return([]byte{}, assert.AnError).Once()
		c := NewClient("A", "Alice", socket)

		var got []Frame
		c.ReadPump(func(_ *Client, f Frame) { got = append(got, f) })

		assert.Equal(t, []Frame{{Type: CmdLeave, RequestID: 4}}, got)
	})

	t.Run("Rate Limited", func(t *testing.T) {
		t.Parallel()
		socket := &MockWebsocketConnection{}
		socket.On("Read").Return(EncodeFrame(Frame{Type: CmdGetPublicRooms, RequestID: 9}), nil).Times(11)
		socket.On("Read").Return(EncodeFrame(Frame{Type: CmdLeave}), nil).Once()
		socket.On("Read").Return([]byte{}, assert.AnError).Once()
		c := NewClient("A", "Alice", socket)

		handled := 0
		c.ReadPump(func(*Client, Frame) { handled++ })

		assert.Equal(t, 10, handled, "burst allowance")
		require.Len(t, c.inbox, 2)

		// a waiting request gets its reply
		f, err := DecodeFrame(<-c.inbox)
		require.NoError(t, err)
		assert.Equal(t, EventReply, f.Type)
		assert.EqualValues(t, 9, f.RequestID)
		var r reply
		require.NoError(t, json.Unmarshal(f.Payload, &r))
		assert.False(t, r.Success)
		assert.Equal(t, ErrRateLimited, r.Error)

		// fire-and-forget gets an error event
		f, err = DecodeFrame(<-c.inbox)
		require.NoError(t, err)
		assert.Equal(t, EventError, f.Type)
		assert.Zero(t, f.RequestID)
		var p errorPayload
		require.NoError(t, json.Unmarshal(f.Payload, &p))
		assert.Equal(t, ErrRateLimited, p.Error)
	})
}

func TestClient_WritePump(t *testing.T) {
	t.Parallel()

	t.Run("Writes And Pings", func(t *testing.T) {
		t.Parallel()
		socket := &MockWebsocketConnection{}
		wrote := make(chan []byte, 1)
		socket.On("Write", []byte("hello")).Run(func(args mock.Arguments) {
			wrote <- args.Get(0).([]byte)
		}).Return(nil).Once()
		pinged := make(chan struct{}, 1)
		socket.On("Ping").Run(func(mock.Arguments) { pinged <- struct{}{} }).Return(nil).Once()
		socket.On("Close", "").Return().Once()
		c := NewClient("A", "Alice", socket)

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.WritePump()
		}()

		require.NoError(t, c.Send([]byte("hello")))
		assert.Equal(t, []byte("hello"), <-wrote)
		c.Ping()
		<-pinged

		c.Close("")
		wg.Wait()
		socket.AssertExpectations(t)
	})

	t.Run("Write Error Closes", func(t *testing.T) {
		t.Parallel()
		socket := &MockWebsocketConnection{}
		socket.On("Write", mock.Anything).Return(assert.AnError).Once()
		socket.On("Close", "").Return().Once()
		c := NewClient("A", "Alice", socket)

		require.NoError(t, c.Send([]byte("hello")))
		done := make(chan struct{})
		go func() {
			c.WritePump()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("write pump did not stop")
		}
		assert.ErrorIs(t, c.Send([]byte("x")), ErrClientClosed)
		socket.AssertExpectations(t)
	})
}
