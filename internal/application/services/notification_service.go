package services

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/providers"
	"github.com/bondusy/spa-booking/backend/internal/domain/repositories"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/observability"
	apperrors "github.com/bondusy/spa-booking/backend/pkg/errors"
	"github.com/bondusy/spa-booking/backend/pkg/security"
)

// BookingConfirmationSubject is the subject line of the confirmation email
const BookingConfirmationSubject = "Confirmación de cita - Bondushy Spa"

//go:embed templates/booking_confirmation.html
var bookingConfirmationHTML string

var bookingConfirmationTmpl = template.Must(template.New("booking_confirmation").Parse(bookingConfirmationHTML))

var (
	spanishWeekdays = [...]string{"domingo", "lunes", "martes", "miércoles", "jueves", "viernes", "sábado"}
	spanishMonths   = [...]string{"enero", "febrero", "marzo", "abril", "mayo", "junio", "julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"}
)

// ConfirmationSender delivers the booking confirmation email
type ConfirmationSender interface {
	SendBookingConfirmation(ctx context.Context, appointment *entities.Appointment, recipient, procedureName string) error
}

// NotificationService renders and sends transactional email and records every attempt
type NotificationService struct {
	sender          providers.EmailSender
	logs            repositories.NotificationLogRepository
	loc             *time.Location
	defaultFromName string
}

var _ ConfirmationSender = (*NotificationService)(nil)

// NewNotificationService creates a notification service. logs may be nil, in
// which case attempts are not recorded.
func NewNotificationService(
	sender providers.EmailSender,
	logs repositories.NotificationLogRepository,
	loc *time.Location,
	defaultFromName string,
) *NotificationService {
	if loc == nil {
		loc = time.UTC
	}
	return &NotificationService{
		sender:          sender,
		logs:            logs,
		loc:             loc,
		defaultFromName: defaultFromName,
	}
}

type bookingConfirmationData struct {
	Date          string
	Time          string
	ProcedureName string
	Notes         string
}

var errEmailNotConfigured = apperrors.NewExternalError("email provider is not configured", nil)

// SendBookingConfirmation emails the patient the details of a new booking.
// The attempt is written to the notification log as pending, then sent or failed.
func (n *NotificationService) SendBookingConfirmation(ctx context.Context, appointment *entities.Appointment, recipient, procedureName string) error {
	if n.sender == nil {
		return errEmailNotConfigured
	}
	logger := observability.LoggerFromContext(ctx)

	local := appointment.AppointmentDate.In(n.loc)
	data := bookingConfirmationData{
		Date:          FormatSpanishDate(local),
		Time:          local.Format(entities.SlotLayout),
		ProcedureName: procedureName,
	}
	if appointment.Notes != nil {
		data.Notes = *appointment.Notes
	}

	var body bytes.Buffer
	if err := bookingConfirmationTmpl.Execute(&body, data); err != nil {
		return apperrors.NewInternalError("failed to render confirmation email", err)
	}

	now := time.Now()
	appointmentID := appointment.ID
	record := &entities.NotificationRecord{
		ID:               uuid.New().String(),
		AppointmentID:    &appointmentID,
		NotificationType: entities.NotificationBookingConfirmation,
		Recipient:        recipient,
		Subject:          BookingConfirmationSubject,
		Status:           entities.NotificationStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	n.createRecord(ctx, record)

	messageID, err := n.sender.Send(ctx, &entities.EmailMessage{
		To:       recipient,
		Subject:  BookingConfirmationSubject,
		HTML:     body.String(),
		FromName: n.defaultFromName,
	})
	if err != nil {
		n.markFailed(ctx, record, err)
		logger.Warn().Err(err).
			Str("appointment_id", appointment.ID).
			Msg("failed to send booking confirmation")
		return apperrors.NewExternalError("failed to send booking confirmation", err)
	}

	n.markSent(ctx, record, messageID)
	logger.Info().
		Str("appointment_id", appointment.ID).
		Str("message_id", messageID).
		Msg("booking confirmation sent")
	return nil
}

// SendDirect sends a caller-composed email. Provider errors are returned
// unchanged so the HTTP layer can pass the provider status through.
func (n *NotificationService) SendDirect(ctx context.Context, msg *entities.EmailMessage) (string, error) {
	msg.To = strings.TrimSpace(msg.To)
	if msg.To == "" || strings.TrimSpace(msg.Subject) == "" || strings.TrimSpace(msg.HTML) == "" {
		return "", apperrors.NewValidationError("Faltan campos requeridos: to, subject, html")
	}
	if !security.ValidateEmail(msg.To) {
		return "", apperrors.NewValidationError("El correo electrónico no es válido")
	}
	if msg.FromName == "" {
		msg.FromName = n.defaultFromName
	}
	if n.sender == nil {
		return "", errEmailNotConfigured
	}

	now := time.Now()
	record := &entities.NotificationRecord{
		ID:               uuid.New().String(),
		NotificationType: entities.NotificationDirect,
		Recipient:        msg.To,
		Subject:          msg.Subject,
		Status:           entities.NotificationStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	n.createRecord(ctx, record)

	messageID, err := n.sender.Send(ctx, msg)
	if err != nil {
		n.markFailed(ctx, record, err)
		return "", err
	}

	n.markSent(ctx, record, messageID)
	return messageID, nil
}

func (n *NotificationService) createRecord(ctx context.Context, record *entities.NotificationRecord) {
	if n.logs == nil {
		return
	}
	if err := n.logs.Create(ctx, record); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("notification_id", record.ID).Msg("failed to record notification")
	}
}

func (n *NotificationService) markSent(ctx context.Context, record *entities.NotificationRecord, messageID string) {
	now := time.Now()
	record.Status = entities.NotificationStatusSent
	record.SentAt = &now
	record.UpdatedAt = now
	if messageID != "" {
		record.MessageID = &messageID
	}
	n.updateRecord(ctx, record)
}

func (n *NotificationService) markFailed(ctx context.Context, record *entities.NotificationRecord, cause error) {
	now := time.Now()
	msg := cause.Error()
	record.Status = entities.NotificationStatusFailed
	record.ErrorMessage = &msg
	record.FailedAt = &now
	record.UpdatedAt = now
	n.updateRecord(ctx, record)
}

func (n *NotificationService) updateRecord(ctx context.Context, record *entities.NotificationRecord) {
	if n.logs == nil {
		return
	}
	if err := n.logs.Update(ctx, record); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("notification_id", record.ID).Msg("failed to update notification record")
	}
}

// FormatSpanishDate renders t as e.g. "martes, 10 de junio de 2025"
func FormatSpanishDate(t time.Time) string {
	return fmt.Sprintf("%s, %d de %s de %d",
		spanishWeekdays[t.Weekday()], t.Day(), spanishMonths[t.Month()-1], t.Year())
}
