package gateway

import (
	"testing"
	"time"

	"coview/internal/metrics"
	"coview/pkg/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func newBackpressureClient(bufferSize int) (*client, *metrics.Metrics) {
	m := &metrics.Metrics{
		DroppedFrames: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "test_frames_dropped_total"},
			[]string{"channel"},
		),
	}
	c := newClient("conn-1", "ch-1", nil, bufferSize, logging.NewLogger(), m)
	return c, m
}

func TestSendDropsOldestWhenBufferFull(t *testing.T) {
	c, m := newBackpressureClient(2)

	c.Send([]byte("f1"))
	c.Send([]byte("f2"))

	// The buffer is full; a third frame must displace the oldest without
	// blocking the caller.
	done := make(chan struct{})
	go func() {
		c.Send([]byte("f3"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send blocked on a full buffer")
	}

	var queued []string
	for len(queued) < 2 {
		select {
		case frame := <-c.send:
			queued = append(queued, string(frame))
		case <-time.After(time.Second):
			t.Fatalf("expected 2 buffered frames, got %v", queued)
		}
	}
	require.Equal(t, []string{"f2", "f3"}, queued, "oldest frame must be the one dropped")

	dropped := m.DroppedFrames.WithLabelValues("ch-1")
	require.Equal(t, 1.0, testutil.ToFloat64(dropped))
}

func TestSendReturnsAfterQuit(t *testing.T) {
	c, _ := newBackpressureClient(1)

	c.Send([]byte("f1"))
	close(c.quit)

	done := make(chan struct{})
	go func() {
		c.Send([]byte("f2"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send blocked after the connection quit")
	}
}
