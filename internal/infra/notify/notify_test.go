package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"sync"
	"testing"
	"time"

	"expense_reminder/internal/domain/notifier"
	"expense_reminder/internal/infra/config"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"
)

func sampleMessage() notifier.Message {
	return notifier.Message{
		To: notifier.Recipient{
			Name:           "alice",
			Email:          "alice@example.com",
			TelegramChatID: 4242,
		},
		Subject:  "Subscription Renewal Alert: Netflix",
		HTMLBody: "<p>Netflix renews soon</p>",
		TextBody: "Netflix renews soon",
	}
}

type countingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *countingNotifier) Send(context.Context, notifier.Message) error {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
	return nil
}

func TestConsoleNotifier_LogsMessage(t *testing.T) {
	logger, hook := test.NewNullLogger()
	n := NewConsoleNotifier(logrus.NewEntry(logger))

	require.NoError(t, n.Send(context.Background(), sampleMessage()))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "Netflix renews soon", entry.Message)
	assert.Equal(t, "alice@example.com", entry.Data["to"])
	assert.Equal(t, "Subscription Renewal Alert: Netflix", entry.Data["subject"])
}

func TestWebhookNotifier_PostsJSON(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL, srv.Client())
	require.NoError(t, n.Send(context.Background(), sampleMessage()))

	assert.Equal(t, "alice", got.Recipient.Name)
	assert.Equal(t, int64(4242), got.Recipient.TelegramChatID)
	assert.Equal(t, "Subscription Renewal Alert: Netflix", got.Subject)
	assert.Equal(t, "Netflix renews soon", got.Text)
	assert.NotEmpty(t, got.SentAt)
}

func TestWebhookNotifier_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookNotifier(srv.URL, nil).Send(context.Background(), sampleMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSMTPNotifier_BuildsMultipartMessage(t *testing.T) {
	var (
		gotAddr string
		gotTo   []string
		gotMsg  string
		gotAuth smtp.Auth
	)
	n := NewSMTPNotifier(config.SMTPConfig{
		Host:     "mail.example.com",
		Port:     587,
		Username: "bot",
		Password: "secret",
		From:     "reminders@example.com",
	})
	n.deliver = func(_ context.Context, addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotAuth, gotTo, gotMsg = addr, a, to, string(msg)
		assert.Equal(t, "reminders@example.com", from)
		return nil
	}

	require.NoError(t, n.Send(context.Background(), sampleMessage()))

	assert.Equal(t, "mail.example.com:587", gotAddr)
	assert.NotNil(t, gotAuth)
	assert.Equal(t, []string{"alice@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Subscription Renewal Alert: Netflix\r\n")
	assert.Contains(t, gotMsg, "multipart/alternative")
	assert.Contains(t, gotMsg, "text/plain; charset=UTF-8")
	assert.Contains(t, gotMsg, "text/html; charset=UTF-8")
	assert.Contains(t, gotMsg, "<p>Netflix renews soon</p>")
}

func TestSMTPNotifier_Errors(t *testing.T) {
	n := NewSMTPNotifier(config.SMTPConfig{Host: "localhost", Port: 25, From: "a@example.com"})
	n.deliver = func(context.Context, string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := n.Send(context.Background(), sampleMessage())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	msg := sampleMessage()
	msg.To.Email = ""
	err = n.Send(context.Background(), msg)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "no email address"))
}

type fakeTelegram struct {
	to   telebot.Recipient
	text string
	err  error
}

func (f *fakeTelegram) Send(to telebot.Recipient, what interface{}, _ ...interface{}) (*telebot.Message, error) {
	f.to = to
	f.text, _ = what.(string)
	return &telebot.Message{}, f.err
}

func TestTelegramNotifier_SendsToChat(t *testing.T) {
	fake := &fakeTelegram{}
	n := &TelegramNotifier{bot: fake}

	require.NoError(t, n.Send(context.Background(), sampleMessage()))

	require.NotNil(t, fake.to)
	assert.Equal(t, "4242", fake.to.Recipient())
	assert.True(t, strings.HasPrefix(fake.text, "Subscription Renewal Alert: Netflix"))
	assert.Contains(t, fake.text, "Netflix renews soon")
}

func TestTelegramNotifier_MissingChatID(t *testing.T) {
	fake := &fakeTelegram{}
	n := &TelegramNotifier{bot: fake}

	msg := sampleMessage()
	msg.To.TelegramChatID = 0
	err := n.Send(context.Background(), msg)

	require.ErrorIs(t, err, ErrNoTelegramChat)
	assert.Nil(t, fake.to)
}

func TestNewRateLimited_DisabledReturnsNext(t *testing.T) {
	next := &countingNotifier{}
	assert.Same(t, next, NewRateLimited(next, 0))
}

func TestRateLimited_HonoursContextCancellation(t *testing.T) {
	next := &countingNotifier{}
	n := NewRateLimited(next, 1)

	require.NoError(t, n.Send(context.Background(), sampleMessage()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := n.Send(ctx, sampleMessage())

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, next.calls)
}

type transportRecorder struct {
	mu        sync.Mutex
	delivered int
	expired   int
	budgets   []time.Duration
}

func (r *transportRecorder) Send(ctx context.Context, _ notifier.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ctx.Err() != nil {
		r.expired++
		return ctx.Err()
	}
	if deadline, ok := ctx.Deadline(); ok {
		r.budgets = append(r.budgets, time.Until(deadline))
	}
	r.delivered++
	return nil
}

func TestRateLimited_BurstIsDelayedNotDropped(t *testing.T) {
	const burst = 10
	transport := &transportRecorder{}
	// 600/min is one slot every 100ms, far slower than the burst arrives.
	n := NewRateLimited(NewSendTimeout(transport, 50*time.Millisecond), 600)

	var wg sync.WaitGroup
	errs := make(chan error, burst)
	for i := 0; i < burst; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- n.Send(context.Background(), sampleMessage())
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, burst, transport.delivered)
	assert.Zero(t, transport.expired)
	require.Len(t, transport.budgets, burst)
	for _, b := range transport.budgets {
		assert.LessOrEqual(t, b, 50*time.Millisecond, "queue time must not extend the transport deadline")
		assert.Greater(t, b, time.Duration(0))
	}
}

type blockingNotifier struct{}

func (blockingNotifier) Send(ctx context.Context, _ notifier.Message) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestSendTimeout_BoundsHungTransport(t *testing.T) {
	n := NewSendTimeout(blockingNotifier{}, 20*time.Millisecond)

	start := time.Now()
	err := n.Send(context.Background(), sampleMessage())

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestNewSendTimeout_DisabledReturnsNext(t *testing.T) {
	next := &countingNotifier{}
	assert.Same(t, next, NewSendTimeout(next, 0))
}

func TestSMTPNotifier_HungServerIsBoundedByContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// Accept connections but never send the SMTP greeting.
	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()
	defer func() {
		select {
		case conn := <-accepted:
			conn.Close()
		default:
		}
	}()

	addr := ln.Addr().(*net.TCPAddr)
	n := NewSMTPNotifier(config.SMTPConfig{Host: "127.0.0.1", Port: addr.Port, From: "a@example.com"})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = n.Send(ctx, sampleMessage())

	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
