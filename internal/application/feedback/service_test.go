package feedback

import (
	"context"
	"errors"
	"testing"

	"github.com/logbook-api/internal/domain"
	"github.com/logbook-api/internal/infrastructure/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockMailer struct{ mock.Mock }

func (m *mockMailer) Send(ctx context.Context, msg domain.EmailMessage) email.Outcome {
	return m.Called(ctx, msg).Get(0).(email.Outcome)
}

func TestSubmit_RelaysWithReplyTo(t *testing.T) {
	ml := &mockMailer{}
	ml.On("Send", mock.Anything, mock.MatchedBy(func(m domain.EmailMessage) bool {
		return m.To == "team@logbook.app" && m.ReplyTo == "ann@example.com" &&
			m.SenderName == "Ann via Logbook" && m.Text != ""
	})).Return(email.Outcome{Delivered: true, Provider: "sendgrid", Configured: 1})

	out, err := NewService(ml, "team@logbook.app", nil).Submit(context.Background(), Request{
		Name: " Ann ", Email: "Ann@Example.com", Message: "Love the app",
	})

	require.NoError(t, err)
	assert.Equal(t, "sendgrid", out.Provider)
	ml.AssertExpectations(t)
}

func TestSubmit_Validation(t *testing.T) {
	_, err := NewService(&mockMailer{}, "team@logbook.app", nil).Submit(context.Background(), Request{Email: "ann@example.com"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestSubmit_NoInbox_ReturnsConfiguration(t *testing.T) {
	_, err := NewService(&mockMailer{}, "", nil).Submit(context.Background(), Request{Email: "ann@example.com", Message: "hi"})
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestSubmit_NoProvider_ReturnsConfiguration(t *testing.T) {
	ml := &mockMailer{}
	ml.On("Send", mock.Anything, mock.Anything).Return(email.Outcome{})

	_, err := NewService(ml, "team@logbook.app", nil).Submit(context.Background(), Request{Email: "ann@example.com", Message: "hi"})
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}

func TestSubmit_AllFailed_ReturnsUpstream(t *testing.T) {
	ml := &mockMailer{}
	ml.On("Send", mock.Anything, mock.Anything).Return(email.Outcome{
		Configured: 1,
		Attempts:   []email.Attempt{{Provider: "resend", Err: errors.New("status 500")}},
	})

	out, err := NewService(ml, "team@logbook.app", nil).Submit(context.Background(), Request{Email: "ann@example.com", Message: "hi"})
	assert.True(t, errors.Is(err, domain.ErrUpstream))
	assert.Contains(t, out.Note(), "resend: status 500")
}
