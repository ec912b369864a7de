package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"parkdesk/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

var testNotice = models.PaymentNotice{
	PaymentID:  7,
	BookingID:  3,
	Reference:  "BK-20240501100000-042",
	DueAmount:  2000,
	PaidAmount: 2000,
	PaidBy:     "cash",
	PaidAt:     time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC),
}

func TestTelegramNotifier(t *testing.T) {
	logger := zerolog.Nop()
	sender := &mockSender{}
	n := NewTelegramNotifier(sender, 12345, &logger)
	assert.Equal(t, "telegram", n.Name())

	sender.On("Send", mock.MatchedBy(func(c tgbotapi.Chattable) bool {
		msg, ok := c.(tgbotapi.MessageConfig)
		return ok && msg.ChatID == 12345 &&
			assert.Contains(t, msg.Text, "BK-20240501100000-042") &&
			assert.Contains(t, msg.Text, "$20.00 of $20.00") &&
			assert.Contains(t, msg.Text, "cash")
	})).Return(tgbotapi.Message{MessageID: 1}, nil).Once()

	require.NoError(t, n.NotifyPayment(context.Background(), testNotice))
	sender.AssertExpectations(t)
}

func TestTelegramNotifierError(t *testing.T) {
	logger := zerolog.Nop()
	sender := &mockSender{}
	sender.On("Send", mock.Anything).Return(tgbotapi.Message{}, errors.New("Forbidden: bot was blocked")).Once()

	err := NewTelegramNotifier(sender, 1, &logger).NotifyPayment(context.Background(), testNotice)
	assert.ErrorContains(t, err, "bot was blocked")
}

func TestTelegramNotifierCancelled(t *testing.T) {
	logger := zerolog.Nop()
	sender := &mockSender{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewTelegramNotifier(sender, 1, &logger).NotifyPayment(ctx, testNotice)
	assert.ErrorIs(t, err, context.Canceled)
	sender.AssertNotCalled(t, "Send", mock.Anything)
}
