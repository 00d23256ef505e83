package websocket

import (
	"context"
	"testing"
	"time"
)

// idleConnection builds a Connection with no writer goroutine, so queued
// frames stay queued and buffer behavior is observable.
func idleConnection(buffer int) (*Connection, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		id:      "test",
		writeCh: make(chan []byte, buffer),
		ctx:     ctx,
		cancel:  cancel,
	}, cancel
}

func TestSendDoesNotBlockWhenBufferFull(t *testing.T) {
	c, cancel := idleConnection(1)
	defer cancel()

	if err := c.Send(map[string]string{"type": "status"}); err != nil {
		t.Fatalf("first send failed: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- c.Send(map[string]string{"type": "message"})
	}()

	select {
	case err := <-done:
		if err != ErrSendBufferFull {
			t.Errorf("err = %v, want ErrSendBufferFull", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Send blocked on a full buffer")
	}
}

func TestSendAfterClose(t *testing.T) {
	c, cancel := idleConnection(1)
	cancel()

	if err := c.Send(map[string]string{"type": "status"}); err != ErrConnectionClosed {
		t.Errorf("err = %v, want ErrConnectionClosed", err)
	}
}

func TestSendRejectsUnmarshalableValue(t *testing.T) {
	c, cancel := idleConnection(1)
	defer cancel()

	if err := c.Send(func() {}); err != ErrInvalidJSON {
		t.Errorf("err = %v, want ErrInvalidJSON", err)
	}
}
