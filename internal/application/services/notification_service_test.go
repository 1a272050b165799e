package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bondusy/spa-booking/backend/internal/application/services"
	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/providers"
	apperrors "github.com/bondusy/spa-booking/backend/pkg/errors"
)

func TestFormatSpanishDate(t *testing.T) {
	assert.Equal(t, "martes, 10 de junio de 2025", services.FormatSpanishDate(time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "domingo, 1 de junio de 2025", services.FormatSpanishDate(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "miércoles, 31 de diciembre de 2025", services.FormatSpanishDate(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)))
}

func TestNotificationService_SendBookingConfirmation(t *testing.T) {
	ctx := context.Background()
	appointment := &entities.Appointment{
		ID:              "appt-1",
		PatientID:       "patient-1",
		AppointmentDate: time.Date(2025, 6, 10, 16, 0, 0, 0, time.UTC),
		Status:          entities.AppointmentStatusPending,
		Notes:           text("<b>alergia</b>"),
	}

	t.Run("sends and records the confirmation", func(t *testing.T) {
		sender := new(MockEmailSender)
		logs := new(MockNotificationLogRepository)

		var sent *entities.EmailMessage
		sender.On("Send", mock.Anything, mock.AnythingOfType("*entities.EmailMessage")).
			Run(func(args mock.Arguments) { sent = args.Get(1).(*entities.EmailMessage) }).
			Return("msg-123", nil)
		logs.On("Create", mock.Anything, mock.MatchedBy(func(r *entities.NotificationRecord) bool {
			return r.Status == entities.NotificationStatusPending && r.Recipient == "ana@example.com"
		})).Return(nil)
		logs.On("Update", mock.Anything, mock.MatchedBy(func(r *entities.NotificationRecord) bool {
			return r.Status == entities.NotificationStatusSent && r.MessageID != nil && *r.MessageID == "msg-123"
		})).Return(nil)

		svc := services.NewNotificationService(sender, logs, time.UTC, "Bondusy Spa")
		require.NoError(t, svc.SendBookingConfirmation(ctx, appointment, "ana@example.com", "Facial Hidratante"))

		require.NotNil(t, sent)
		assert.Equal(t, "ana@example.com", sent.To)
		assert.Equal(t, services.BookingConfirmationSubject, sent.Subject)
		assert.Equal(t, "Bondusy Spa", sent.FromName)
		assert.Contains(t, sent.HTML, "martes, 10 de junio de 2025")
		assert.Contains(t, sent.HTML, "16:00")
		assert.Contains(t, sent.HTML, "Facial Hidratante")
		assert.Contains(t, sent.HTML, "&lt;b&gt;alergia&lt;/b&gt;")
		logs.AssertExpectations(t)
	})

	t.Run("provider failure is recorded and returned", func(t *testing.T) {
		sender := new(MockEmailSender)
		logs := new(MockNotificationLogRepository)
		sender.On("Send", mock.Anything, mock.Anything).Return("", &providers.EmailProviderError{StatusCode: 500, Message: "internal error"})
		logs.On("Create", mock.Anything, mock.Anything).Return(nil)
		logs.On("Update", mock.Anything, mock.MatchedBy(func(r *entities.NotificationRecord) bool {
			return r.Status == entities.NotificationStatusFailed && r.ErrorMessage != nil && r.FailedAt != nil
		})).Return(nil)

		svc := services.NewNotificationService(sender, logs, time.UTC, "Bondusy Spa")
		err := svc.SendBookingConfirmation(ctx, appointment, "ana@example.com", "Facial Hidratante")

		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
		providerErr, ok := providers.AsEmailProviderError(err)
		require.True(t, ok)
		assert.Equal(t, 500, providerErr.StatusCode)
		logs.AssertExpectations(t)
	})

	t.Run("log failures do not block delivery", func(t *testing.T) {
		sender := new(MockEmailSender)
		logs := new(MockNotificationLogRepository)
		sender.On("Send", mock.Anything, mock.Anything).Return("msg-1", nil)
		logs.On("Create", mock.Anything, mock.Anything).Return(errBoom)
		logs.On("Update", mock.Anything, mock.Anything).Return(errBoom)

		svc := services.NewNotificationService(sender, logs, time.UTC, "Bondusy Spa")
		assert.NoError(t, svc.SendBookingConfirmation(ctx, appointment, "ana@example.com", "Facial Hidratante"))
	})
}

func TestNotificationService_SendDirect(t *testing.T) {
	ctx := context.Background()

	t.Run("validates required fields", func(t *testing.T) {
		svc := services.NewNotificationService(new(MockEmailSender), nil, time.UTC, "Bondusy Spa")

		for _, msg := range []*entities.EmailMessage{
			{Subject: "Hola", HTML: "<p>x</p>"},
			{To: "ana@example.com", HTML: "<p>x</p>"},
			{To: "ana@example.com", Subject: "Hola"},
			{To: "not-an-email", Subject: "Hola", HTML: "<p>x</p>"},
		} {
			_, err := svc.SendDirect(ctx, msg)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation), "message %+v", msg)
		}
	})

	t.Run("defaults the sender name", func(t *testing.T) {
		sender := new(MockEmailSender)
		sender.On("Send", mock.Anything, mock.MatchedBy(func(m *entities.EmailMessage) bool {
			return m.FromName == "Bondusy Spa"
		})).Return("msg-9", nil)

		svc := services.NewNotificationService(sender, nil, time.UTC, "Bondusy Spa")
		id, err := svc.SendDirect(ctx, &entities.EmailMessage{To: "ana@example.com", Subject: "Hola", HTML: "<p>x</p>"})
		require.NoError(t, err)
		assert.Equal(t, "msg-9", id)
	})

	t.Run("provider errors pass through unchanged", func(t *testing.T) {
		sender := new(MockEmailSender)
		sender.On("Send", mock.Anything, mock.Anything).Return("", &providers.EmailProviderError{StatusCode: 422, Message: "invalid from"})

		svc := services.NewNotificationService(sender, nil, time.UTC, "Bondusy Spa")
		_, err := svc.SendDirect(ctx, &entities.EmailMessage{To: "ana@example.com", Subject: "Hola", HTML: "<p>x</p>", FromName: "Otro"})

		providerErr, ok := providers.AsEmailProviderError(err)
		require.True(t, ok)
		assert.Equal(t, 422, providerErr.StatusCode)
	})
}
