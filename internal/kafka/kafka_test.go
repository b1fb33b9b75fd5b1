package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestProducer_FlushesOnClose(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "order.created", 16, nil)
	p.Start(context.Background())

	for _, k := range []string{"1", "2", "3"} {
		p.Publish([]byte(k), []byte(`{}`), kafka.Header{Key: "x-event-type", Value: []byte("OrderCreated")})
	}
	p.Close()
	p.WaitClosed()

	w.mu.Lock()
	defer w.mu.Unlock()
	require.Len(t, w.msgs, 3)
	assert.Equal(t, "1", string(w.msgs[0].Key))
	assert.Equal(t, "x-event-type", w.msgs[0].Headers[0].Key)
	assert.True(t, w.closed)
}

func TestProducer_ContextCancelDrainsBuffer(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "t", 16, nil)
	ctx, cancel := context.WithCancel(context.Background())
	p.Publish([]byte("a"), []byte("1"))
	p.Publish([]byte("b"), []byte("2"))

	p.Start(ctx)
	cancel()
	p.WaitClosed()

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Len(t, w.msgs, 2)
	assert.True(t, w.closed)
}

func TestProducer_PublishAfterContextCancelIsDropped(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "t", 4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)

	cancel()
	p.WaitClosed()
	p.Publish([]byte("late"), []byte("x"))
	p.Close()

	assert.Zero(t, len(p.inbox))
	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Empty(t, w.msgs)
}

func TestProducer_CloseTwiceAndPublishAfterClose(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "t", 1, nil)
	p.Start(context.Background())

	p.Close()
	p.Close()
	p.Publish([]byte("late"), []byte("x"))
	p.WaitClosed()

	assert.Empty(t, w.msgs)
}

type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []kafka.Message
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	for {
		r.mu.Lock()
		if len(r.queue) > 0 {
			m := r.queue[0]
			r.queue = r.queue[1:]
			r.mu.Unlock()
			return m, nil
		}
		r.mu.Unlock()
		select {
		case <-ctx.Done():
			return kafka.Message{}, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) committedOffsets(partition int) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []int64
	for _, m := range r.committed {
		if m.Partition == partition {
			out = append(out, m.Offset)
		}
	}
	return out
}

func TestConsumer_RetriesFailedMessageBeforeCommittingLaterOffsets(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{
		{Partition: 0, Offset: 1, Value: []byte("ok")},
		{Partition: 0, Offset: 2, Value: []byte("flaky")},
		{Partition: 0, Offset: 3, Value: []byte("ok")},
	}}
	c := newConsumer(r, 2, nil)
	c.backoff = time.Millisecond

	var (
		mu       sync.Mutex
		attempts = map[int64]int{}
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Start(ctx, func(_ context.Context, m kafka.Message) error {
			mu.Lock()
			defer mu.Unlock()
			attempts[m.Offset]++
			if string(m.Value) == "flaky" && attempts[m.Offset] < 3 {
				return errors.New("boom")
			}
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		return len(r.committedOffsets(0)) == 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []int64{1, 2, 3}, r.committedOffsets(0))
	mu.Lock()
	assert.Equal(t, 3, attempts[2])
	assert.Equal(t, 1, attempts[3])
	mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	assert.True(t, r.closed)
}

func TestConsumer_FailingPartitionDoesNotBlockOthers(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{
		{Partition: 0, Offset: 1, Value: []byte("fail")},
		{Partition: 0, Offset: 2, Value: []byte("ok")},
		{Partition: 1, Offset: 1, Value: []byte("ok")},
		{Partition: 1, Offset: 2, Value: []byte("ok")},
	}}
	c := newConsumer(r, 2, nil)
	c.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Start(ctx, func(_ context.Context, m kafka.Message) error {
			if string(m.Value) == "fail" {
				return errors.New("boom")
			}
			return nil
		})
	}()

	require.Eventually(t, func() bool {
		return len(r.committedOffsets(1)) == 2
	}, 2*time.Second, 5*time.Millisecond)
	// partition 0 stays parked behind the failing offset
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, r.committedOffsets(0))

	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, r.committedOffsets(0))
}

func TestUnwrapPayload(t *testing.T) {
	type payload struct {
		OrderID int64 `json:"order_id"`
	}
	raw := json.RawMessage(MustMarshal(payload{OrderID: 9}))

	got, err := UnwrapPayload[payload](raw)
	require.NoError(t, err)
	assert.Equal(t, int64(9), got.OrderID)

	_, err = UnwrapPayload[payload](json.RawMessage(`{"order_id":"x"}`))
	assert.Error(t, err)
}
