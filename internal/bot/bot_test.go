package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/01moynul/tg-storefront/internal/logger"
)

type sent struct {
	chatID int64
	reply  Reply
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sent
	err  error
}

func (s *recordingSender) Send(_ context.Context, chatID int64, r Reply) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sent{chatID, r})
	return s.err
}

func (s *recordingSender) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sent))
	for _, m := range s.sent {
		out = append(out, m.reply.Text)
	}
	return out
}

func TestCommand(t *testing.T) {
	cases := []struct {
		in         string
		name, args string
		ok         bool
	}{
		{"/start", "start", "", true},
		{"  /Status 12  paid ", "status", "12  paid", true},
		{"/orders@shop_admin_bot", "orders", "", true},
		{"/addproduct@bot A | Mug | 150", "addproduct", "A | Mug | 150", true},
		{"hello", "", "", false},
		{"/", "", "", false},
		{"/@bot", "", "", false},
	}
	for _, tc := range cases {
		name, args, ok := Command(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.name, name, tc.in)
		assert.Equal(t, tc.args, args, tc.in)
	}
}

func TestUserFullName(t *testing.T) {
	assert.Equal(t, "Jane Doe", User{FirstName: "Jane", LastName: "Doe"}.FullName())
	assert.Equal(t, "Jane", User{FirstName: "Jane"}.FullName())
}

func TestProcess_SendsReplies(t *testing.T) {
	s := &recordingSender{}
	h := HandlerFunc(func(_ context.Context, u Update) ([]Reply, error) {
		return []Reply{Text("echo: " + u.Text), Text("bye")}, nil
	})
	d := NewDispatcher(Shop, h, s, 1, 1, logger.Discard())

	d.Process(context.Background(), Update{ChatID: 5, Text: "hi"})

	require.Len(t, s.sent, 2)
	assert.Equal(t, int64(5), s.sent[0].chatID)
	assert.Equal(t, []string{"echo: hi", "bye"}, s.texts())
}

func TestProcess_GenericFailureOnErrorAndPanic(t *testing.T) {
	s := &recordingSender{}
	calls := 0
	h := HandlerFunc(func(context.Context, Update) ([]Reply, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("db down")
		}
		panic("boom")
	})
	d := NewDispatcher(Shop, h, s, 1, 1, logger.Discard())

	d.Process(context.Background(), Update{ChatID: 1})
	d.Process(context.Background(), Update{ChatID: 1})

	assert.Equal(t, []string{GenericFailure, GenericFailure}, s.texts())
}

func TestEnqueue_QueueFull(t *testing.T) {
	d := NewDispatcher(Shop, HandlerFunc(func(context.Context, Update) ([]Reply, error) {
		return nil, nil
	}), &recordingSender{}, 1, 1, logger.Discard())

	id, err := d.Enqueue(Update{ChatID: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = d.Enqueue(Update{ChatID: 1})
	assert.ErrorIs(t, err, ErrQueueFull)
}

func TestRun_PreservesPerChatOrder(t *testing.T) {
	s := &recordingSender{}
	h := HandlerFunc(func(_ context.Context, u Update) ([]Reply, error) {
		return []Reply{Text(u.Text)}, nil
	})
	d := NewDispatcher(Shop, h, s, 4, 16, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	for _, text := range []string{"1", "2", "3", "4", "5"} {
		_, err := d.Enqueue(Update{ChatID: 42, Text: text})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return len(s.texts()) == 5 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, s.texts())

	cancel()
	require.NoError(t, <-done)
}

func TestShard_NegativeChat(t *testing.T) {
	n := shard(-100123, 4)
	assert.GreaterOrEqual(t, n, 0)
	assert.Less(t, n, 4)
}
