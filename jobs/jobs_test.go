package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	config "github.com/anjiri1684/skillazon/configs"
	"github.com/anjiri1684/skillazon/models"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSweeper struct{ mock.Mock }

func (m *mockSweeper) SendReminders(ctx context.Context, lead time.Duration) (int, error) {
	args := m.Called(ctx, lead)
	return args.Int(0), args.Error(1)
}

func (m *mockSweeper) ExpireStalePending(ctx context.Context) ([]models.Booking, error) {
	args := m.Called(ctx)
	bookings, _ := args.Get(0).([]models.Booking)
	return bookings, args.Error(1)
}

func TestSendSessionReminders_PassesLead(t *testing.T) {
	sweeper := new(mockSweeper)
	sweeper.On("SendReminders", mock.Anything, 65*time.Minute).Return(2, nil).Once()

	SendSessionReminders(context.Background(), sweeper, 65*time.Minute)
	sweeper.AssertExpectations(t)
}

func TestJobs_SurviveErrors(t *testing.T) {
	sweeper := new(mockSweeper)
	sweeper.On("SendReminders", mock.Anything, mock.Anything).Return(0, errors.New("db down"))
	sweeper.On("ExpireStalePending", mock.Anything).Return(nil, errors.New("db down"))

	assert.NotPanics(t, func() {
		SendSessionReminders(context.Background(), sweeper, time.Hour)
		ExpireUnconfirmedBookings(context.Background(), sweeper)
	})
}

func TestRegister(t *testing.T) {
	c := cron.New()
	cfg := config.JobsConfig{ReminderSpec: "*/5 * * * *", ExpirySpec: "*/5 * * * *", ReminderLeadMinutes: 65}

	require.NoError(t, Register(context.Background(), c, new(mockSweeper), cfg))
	assert.Len(t, c.Entries(), 2)

	cfg.ExpirySpec = "every now and then"
	assert.Error(t, Register(context.Background(), cron.New(), new(mockSweeper), cfg))
}
