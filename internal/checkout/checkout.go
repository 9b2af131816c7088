// Package checkout runs the guided delivery-details dialogue that turns a
// cart into an order.
//
// Sessions live in an expiring LRU cache, one per buyer. They are strictly
// linear: city, branch, receiver, phone. An idle session expires after the
// configured TTL and behaves as if it never existed.
package checkout

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/01moynul/tg-storefront/internal/cart"
	"github.com/01moynul/tg-storefront/internal/models"
	"github.com/01moynul/tg-storefront/internal/orders"
)

// Step is the field the session is waiting for.
type Step int

const (
	AwaitingCity Step = iota
	AwaitingBranch
	AwaitingReceiver
	AwaitingPhone
	Completed
)

// Prompts per step.
const (
	PromptCity     = "City:"
	PromptBranch   = "Nova Poshta branch:"
	PromptReceiver = "Receiver full name:"
	PromptPhone    = "Phone (+380...):"
)

// ErrNoSession is returned by Input when the buyer has no live session.
var ErrNoSession = errors.New("no checkout session")

func (s Step) String() string {
	switch s {
	case AwaitingCity:
		return "awaiting_city"
	case AwaitingBranch:
		return "awaiting_branch"
	case AwaitingReceiver:
		return "awaiting_receiver"
	case AwaitingPhone:
		return "awaiting_phone"
	default:
		return "completed"
	}
}

// Prompt is the question asked while waiting in s.
func (s Step) Prompt() string {
	switch s {
	case AwaitingCity:
		return PromptCity
	case AwaitingBranch:
		return PromptBranch
	case AwaitingReceiver:
		return PromptReceiver
	case AwaitingPhone:
		return PromptPhone
	default:
		return ""
	}
}

type session struct {
	step     Step
	delivery models.Delivery
}

// Result is the outcome of one Input call. Either Prompt is set and the
// dialogue continues, or Order is set and the session is gone.
type Result struct {
	Step   Step
	Prompt string
	Order  *models.Order
}

// Dialogue is the Checkout Dialogue.
type Dialogue struct {
	carts  *cart.Store
	ledger *orders.Ledger
	log    *slog.Logger

	// mu serialises step changes; the cache itself is safe for concurrent use.
	mu       sync.Mutex
	sessions *expirable.LRU[int64, *session]
}

// New creates a Dialogue holding at most maxSessions sessions. A session
// idle for longer than ttl is evicted; a ttl of zero disables expiry.
func New(carts *cart.Store, ledger *orders.Ledger, ttl time.Duration, maxSessions int, log *slog.Logger) *Dialogue {
	d := &Dialogue{
		carts:  carts,
		ledger: ledger,
		log:    log,
	}
	d.sessions = expirable.NewLRU[int64, *session](maxSessions, d.onEvict, ttl)
	return d
}

func (d *Dialogue) onEvict(userID int64, _ *session) {
	d.log.Debug("checkout session evicted", "user_id", userID)
}

// Begin opens a session for userID, replacing any previous one, and
// returns the first prompt. An empty cart fails with ErrEmptyCart and
// leaves no session behind.
func (d *Dialogue) Begin(ctx context.Context, userID int64) (string, error) {
	summary, err := d.carts.Summary(ctx, userID)
	if err != nil {
		return "", err
	}
	if summary.Empty() {
		return "", models.ErrEmptyCart
	}

	d.mu.Lock()
	d.sessions.Add(userID, &session{step: AwaitingCity})
	d.mu.Unlock()

	return PromptCity, nil
}

// Active reports whether userID has a live session.
func (d *Dialogue) Active(userID int64) bool {
	_, ok := d.sessions.Get(userID)
	return ok
}

// Input feeds one answer to the buyer's session. Blank answers repeat the
// current prompt. The answer to the last prompt creates the order from the
// buyer's cart; the session is discarded whether that succeeds or not.
func (d *Dialogue) Input(ctx context.Context, buyer models.Buyer, text string) (Result, error) {
	text = strings.TrimSpace(text)

	// 1. --- Advance Session ---
	d.mu.Lock()
	s, ok := d.sessions.Get(buyer.UserID)
	if !ok {
		d.mu.Unlock()
		return Result{}, ErrNoSession
	}

	if text == "" {
		// Re-adding restarts the idle timer.
		d.sessions.Add(buyer.UserID, s)
		d.mu.Unlock()
		return Result{Step: s.step, Prompt: s.step.Prompt()}, nil
	}

	switch s.step {
	case AwaitingCity:
		s.delivery.City = text
	case AwaitingBranch:
		s.delivery.Branch = text
	case AwaitingReceiver:
		s.delivery.Receiver = text
	case AwaitingPhone:
		s.delivery.Phone = text
	}
	s.step++

	if s.step != Completed {
		step := s.step
		d.sessions.Add(buyer.UserID, s)
		d.mu.Unlock()
		return Result{Step: step, Prompt: step.Prompt()}, nil
	}

	delivery := s.delivery
	d.sessions.Remove(buyer.UserID)
	d.mu.Unlock()

	// 2. --- Create Order ---
	order, err := d.ledger.Create(ctx, buyer, delivery, orders.FromCart(d.carts, buyer.UserID))
	if err != nil {
		return Result{Step: Completed}, err
	}
	return Result{Step: Completed, Order: order}, nil
}

// Cancel drops the buyer's session and reports whether a live one existed.
func (d *Dialogue) Cancel(userID int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.sessions.Get(userID)
	d.sessions.Remove(userID)
	return ok
}
