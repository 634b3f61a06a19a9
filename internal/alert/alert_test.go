package alert

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"arb_engine/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChannel struct {
	name    string
	sendErr error

	mu   sync.Mutex
	sent []AlertPayload
}

func (s *stubChannel) Name() string {
	return s.name
}

func (s *stubChannel) Send(ctx context.Context, alert AlertPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, alert)
	return s.sendErr
}

func (s *stubChannel) delivered() []AlertPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AlertPayload, len(s.sent))
	copy(out, s.sent)
	return out
}

type quietLogger struct{}

func (quietLogger) Debug(msg string, f ...interface{})               {}
func (quietLogger) Info(msg string, f ...interface{})                {}
func (quietLogger) Warn(msg string, f ...interface{})                {}
func (quietLogger) Error(msg string, f ...interface{})               {}
func (quietLogger) Fatal(msg string, f ...interface{})               {}
func (l quietLogger) WithField(k string, v interface{}) core.ILogger { return l }
func (l quietLogger) WithFields(f map[string]interface{}) core.ILogger {
	return l
}

func TestAlertManager_FansOutToAllChannels(t *testing.T) {
	am := NewAlertManager(quietLogger{})
	ch1 := &stubChannel{name: "one"}
	ch2 := &stubChannel{name: "two"}
	am.AddChannel(ch1)
	am.AddChannel(ch2)

	am.Alert(context.Background(), "Unhedged position", "second leg failed",
		Critical, map[string]string{"exchange": "bitfinex"})

	// Delivery is asynchronous so the submission path never blocks
	require.Eventually(t, func() bool {
		return len(ch1.delivered()) == 1 && len(ch2.delivered()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	payload := ch1.delivered()[0]
	assert.Equal(t, Critical, payload.Level)
	assert.Equal(t, "Unhedged position", payload.Title)
	assert.Equal(t, "second leg failed", payload.Message)
	assert.Equal(t, "bitfinex", payload.Fields["exchange"])
	assert.False(t, payload.Timestamp.IsZero())
}

func TestAlertManager_ChannelFailureDoesNotBlockOthers(t *testing.T) {
	am := NewAlertManager(quietLogger{})
	failing := &stubChannel{name: "failing", sendErr: errors.New("webhook down")}
	healthy := &stubChannel{name: "healthy"}
	am.AddChannel(failing)
	am.AddChannel(healthy)

	am.Alert(context.Background(), "Cash clamp", "amount reduced", Warning, nil)

	require.Eventually(t, func() bool {
		return len(healthy.delivered()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, Warning, healthy.delivered()[0].Level)
}

func TestAlertManager_NoChannels(t *testing.T) {
	am := NewAlertManager(quietLogger{})

	// Must not panic or block with nothing registered
	am.Alert(context.Background(), "noop", "nothing listens", Info, nil)
}
