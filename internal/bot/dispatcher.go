package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// GenericFailure is sent to the chat when a handler fails unexpectedly.
const GenericFailure = "Something went wrong. Please try again later."

// ErrQueueFull is returned by Enqueue when the worker queue is saturated.
var ErrQueueFull = errors.New("bot queue full")

// Dispatcher fans updates out to a fixed set of workers. Updates of the
// same chat always land on the same worker, so they are handled in order;
// different chats are handled concurrently.
type Dispatcher struct {
	name    string
	handler Handler
	sender  Sender
	queues  []chan Update
	log     *slog.Logger
}

// NewDispatcher creates a Dispatcher with workers queues of queueSize.
func NewDispatcher(name string, h Handler, s Sender, workers, queueSize int, log *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}

	queues := make([]chan Update, workers)
	for i := range queues {
		queues[i] = make(chan Update, queueSize)
	}
	return &Dispatcher{
		name:    name,
		handler: h,
		sender:  s,
		queues:  queues,
		log:     log.With("bot", name),
	}
}

// Name returns the bot name this dispatcher serves.
func (d *Dispatcher) Name() string {
	return d.name
}

// Enqueue schedules u without blocking. An empty update id is replaced
// with a fresh one for log correlation.
func (d *Dispatcher) Enqueue(u Update) (string, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}

	q := d.queues[shard(u.ChatID, len(d.queues))]
	select {
	case q <- u:
		return u.ID, nil
	default:
		return "", ErrQueueFull
	}
}

// Run processes updates until ctx is cancelled. Updates already handed to
// a worker finish first.
func (d *Dispatcher) Run(ctx context.Context) error {
	g := new(errgroup.Group)
	g.SetLimit(len(d.queues))

	for _, q := range d.queues {
		q := q
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case u := <-q:
					d.Process(ctx, u)
				}
			}
		})
	}

	d.log.Info("dispatcher started", "workers", len(d.queues))
	err := g.Wait()
	d.log.Info("dispatcher stopped")
	return err
}

// Process handles one update synchronously and sends its replies. A panic
// or error in the handler is logged and answered with GenericFailure.
func (d *Dispatcher) Process(ctx context.Context, u Update) {
	log := d.log.With("update_id", u.ID, "chat_id", u.ChatID, "user_id", u.From.ID)

	replies, err := d.handle(ctx, u)
	if err != nil {
		log.Error("handler failed", "error", err)
		replies = []Reply{Text(GenericFailure)}
	}

	for _, r := range replies {
		if err := d.sender.Send(ctx, u.ChatID, r); err != nil {
			log.Error("failed to send reply", "error", err)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, u Update) (replies []Reply, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return d.handler.Handle(ctx, u)
}

func shard(chatID int64, n int) int {
	return int(uint64(chatID) % uint64(n))
}
