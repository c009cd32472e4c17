package chatwindow

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tmc/chatwindow/message"
)

// Sender simulates delivering outgoing messages over a slow, lossy network.
type Sender struct {
	// Delay is how long a message stays in the sending state.
	Delay time.Duration
	// FailureRate is the probability in [0, 1] that a send fails.
	FailureRate float64

	log *zap.SugaredLogger

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSender returns a sender whose failures are drawn from seed.
func NewSender(delay time.Duration, failureRate float64, seed int64, log *zap.SugaredLogger) *Sender {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Sender{
		Delay:       delay,
		FailureRate: failureRate,
		log:         log,
		rnd:         rand.New(rand.NewSource(seed)),
	}
}

// Send moves msg through sending to sent or failed, reporting each new
// status to update. It blocks for Delay and returns ctx.Err() if ctx ends
// first, leaving the message in the sending state.
func (s *Sender) Send(ctx context.Context, msg *message.Msg, update func(message.Status)) error {
	update(message.StatusSending)
	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			s.log.Debugw("send cancelled", "id", msg.ID)
			return ctx.Err()
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return err
	}
	status := message.StatusSent
	if s.fail() {
		status = message.StatusFailed
	}
	s.log.Debugw("send finished", "id", msg.ID, "status", status)
	update(status)
	return nil
}

func (s *Sender) fail() bool {
	if s.FailureRate <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64() < s.FailureRate
}
