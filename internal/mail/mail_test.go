package mail

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (d *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	d.sent = append(d.sent, m...)
	return d.err
}

func body(t *testing.T, m *gomail.Message) string {
	t.Helper()

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	return buf.String()
}

func TestSMTPSendVerification(t *testing.T) {
	d := &fakeDialer{}
	s := &SMTP{Dialer: d, From: "support@carlyn.test", AppName: "Carlyn"}

	require.NoError(t, s.SendVerification(context.Background(), "a@x.com", "Ana <b>", 123456))
	require.Len(t, d.sent, 1)

	m := d.sent[0]
	assert.Equal(t, []string{"a@x.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Verify your email"}, m.GetHeader("Subject"))

	b := body(t, m)
	assert.Contains(t, b, "123456")
	assert.Contains(t, b, "Ana &lt;b&gt;")
}

func TestSMTPRejectsSelfAddressed(t *testing.T) {
	d := &fakeDialer{}
	s := &SMTP{Dialer: d, From: "support@carlyn.test", AppName: "Carlyn"}

	err := s.SendPasswordChanged(context.Background(), "support@carlyn.test", "x")
	assert.ErrorIs(t, err, ErrInvalidRecipient)
	assert.Empty(t, d.sent)
}

func TestSMTPWrapsDialError(t *testing.T) {
	boom := errors.New("connection refused")
	s := &SMTP{Dialer: &fakeDialer{err: boom}, From: "support@carlyn.test", AppName: "Carlyn"}

	err := s.SendRecovery(context.Background(), "a@x.com", "Ana", 654321)
	assert.ErrorIs(t, err, boom)
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
}

func (e *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

type recordingSender struct {
	calls []string
	codes []int
}

func (r *recordingSender) SendVerification(_ context.Context, email, _ string, code int) error {
	r.calls = append(r.calls, TypeVerification+" "+email)
	r.codes = append(r.codes, code)
	return nil
}

func (r *recordingSender) SendRecovery(_ context.Context, email, _ string, code int) error {
	r.calls = append(r.calls, TypeRecovery+" "+email)
	r.codes = append(r.codes, code)
	return nil
}

func (r *recordingSender) SendPasswordChanged(_ context.Context, email, _ string) error {
	r.calls = append(r.calls, TypePasswordChanged+" "+email)
	return nil
}

func TestQueueRoundTripThroughServeMux(t *testing.T) {
	ctx := context.Background()
	e := &fakeEnqueuer{}
	q := NewQueue(e)

	require.NoError(t, q.SendVerification(ctx, "a@x.com", "Ana", 111111))
	require.NoError(t, q.SendRecovery(ctx, "b@x.com", "Bea", 222222))
	require.NoError(t, q.SendPasswordChanged(ctx, "c@x.com", "Cy"))
	require.Len(t, e.tasks, 3)

	rec := &recordingSender{}
	mux := NewServeMux(rec)

	for _, task := range e.tasks {
		require.NoError(t, mux.ProcessTask(ctx, task))
	}

	assert.Equal(t, []string{
		TypeVerification + " a@x.com",
		TypeRecovery + " b@x.com",
		TypePasswordChanged + " c@x.com",
	}, rec.calls)
	assert.Equal(t, []int{111111, 222222}, rec.codes)
}

func TestServeMuxSkipsRetryOnBadPayload(t *testing.T) {
	mux := NewServeMux(&recordingSender{})

	err := mux.ProcessTask(context.Background(), asynq.NewTask(TypeRecovery, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
