package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSession struct {
	sarama.ConsumerGroupSession
	ctx context.Context

	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Context() context.Context { return s.ctx }

func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	sarama.ConsumerGroupClaim
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func newFakeClaim(msgs ...*sarama.ConsumerMessage) *fakeClaim {
	ch := make(chan *sarama.ConsumerMessage, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)
	return &fakeClaim{messages: ch}
}

func TestConsumer_ConsumeClaim_MarksEveryMessage(t *testing.T) {
	var keys []string
	handler := func(_ context.Context, key, _ []byte) error {
		keys = append(keys, string(key))
		if string(key) == "user-2" {
			return errors.New("cache down")
		}
		return nil
	}
	consumer := newConsumer(nil, []string{"scan.logged"}, handler, zap.NewNop())
	session := &fakeSession{ctx: context.Background()}
	claim := newFakeClaim(
		&sarama.ConsumerMessage{Topic: "scan.logged", Key: []byte("user-1"), Value: []byte(`{}`), Offset: 10},
		&sarama.ConsumerMessage{Topic: "scan.logged", Key: []byte("user-2"), Value: []byte(`{}`), Offset: 11},
	)

	require.NoError(t, consumer.ConsumeClaim(session, claim))

	assert.Equal(t, []string{"user-1", "user-2"}, keys)
	assert.Equal(t, []int64{10, 11}, session.marked)
}

func TestConsumer_ConsumeClaim_StopsWithSession(t *testing.T) {
	consumer := newConsumer(nil, nil, func(context.Context, []byte, []byte) error { return nil }, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	session := &fakeSession{ctx: ctx}
	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage)}

	done := make(chan error, 1)
	go func() { done <- consumer.ConsumeClaim(session, claim) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("ConsumeClaim did not return after the session ended")
	}
}

func TestConsumer_SetupSignalsReady(t *testing.T) {
	consumer := newConsumer(nil, nil, nil, zap.NewNop())

	select {
	case <-consumer.WaitReady():
		t.Fatal("ready before the first session")
	default:
	}

	require.NoError(t, consumer.Setup(nil))
	require.NoError(t, consumer.Setup(nil))

	select {
	case <-consumer.WaitReady():
	default:
		t.Fatal("not ready after setup")
	}
}

func TestBalanceStrategy(t *testing.T) {
	assert.Equal(t, sarama.StickyBalanceStrategyName, balanceStrategy("sticky").Name())
	assert.Equal(t, sarama.RoundRobinBalanceStrategyName, balanceStrategy("roundrobin").Name())
	assert.Equal(t, sarama.RangeBalanceStrategyName, balanceStrategy("").Name())
}
