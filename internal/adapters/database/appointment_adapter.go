package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/lib/pq"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/repositories"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/bondusy/spa-booking/backend/pkg/errors"
)

const appointmentsTable = "appointments"

var appointmentColumns = []interface{}{
	"id", "patient_id", "procedure_id", "appointment_date", "status", "notes", "created_at",
}

// AppointmentAdapter implements the AppointmentRepository interface
type AppointmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

var _ repositories.AppointmentRepository = (*AppointmentAdapter)(nil)

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) *AppointmentAdapter {
	return &AppointmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// occupyingStatus matches rows that hold their slot
func occupyingStatus() exp.Expression {
	statuses := make([]string, 0, 2)
	for _, s := range entities.OccupyingStatuses() {
		statuses = append(statuses, string(s))
	}
	return goqu.L("? = ANY(?)", goqu.C("status"), pq.Array(statuses))
}

func (a *AppointmentAdapter) insertQuery(appointment *entities.Appointment) (string, error) {
	record := goqu.Record{
		"id":               appointment.ID,
		"patient_id":       appointment.PatientID,
		"procedure_id":     appointment.ProcedureID,
		"appointment_date": appointment.AppointmentDate.UTC(),
		"status":           appointment.Status,
		"notes":            nullString(appointment.Notes),
		"created_at":       appointment.CreatedAt.UTC(),
	}

	query, _, err := a.db.Insert(appointmentsTable).Rows(record).ToSQL()
	if err != nil {
		return "", apperrors.NewInternalError("failed to build insert query", err)
	}
	return query, nil
}

// Create inserts an appointment without checking slot occupancy
func (a *AppointmentAdapter) Create(ctx context.Context, appointment *entities.Appointment) error {
	query, err := a.insertQuery(appointment)
	if err != nil {
		return err
	}

	if _, err := a.client.DB().ExecContext(ctx, query); err != nil {
		return classifyError(err, "failed to create appointment")
	}
	return nil
}

// CreateExclusive runs check-then-insert inside a serializable transaction
func (a *AppointmentAdapter) CreateExclusive(ctx context.Context, appointment *entities.Appointment) error {
	query, err := a.insertQuery(appointment)
	if err != nil {
		return err
	}

	err = a.client.InSerializableTx(ctx, func(tx *sql.Tx) error {
		if err := a.ensureSlotFree(ctx, tx, appointment.AppointmentDate); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, query)
		return err
	})
	return classifyError(err, "failed to create appointment")
}

func (a *AppointmentAdapter) ensureSlotFree(ctx context.Context, tx *sql.Tx, at time.Time) error {
	query, _, err := a.db.From(appointmentsTable).
		Select("id").
		Where(goqu.C("appointment_date").Eq(at.UTC()), occupyingStatus()).
		Limit(1).
		ForUpdate(exp.Wait).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build slot query", err)
	}

	var existing string
	err = tx.QueryRowContext(ctx, query).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return classifyError(err, "failed to check slot")
	}
	return apperrors.NewConflictError("the selected time slot is already taken")
}

// GetByID retrieves an appointment by ID
func (a *AppointmentAdapter) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	query, _, err := a.db.From(appointmentsTable).
		Select(appointmentColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	appointment, err := scanAppointment(a.client.DB().QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	if err != nil {
		return nil, classifyError(err, "failed to get appointment")
	}
	return appointment, nil
}

// ListOccupied returns instants in [from, to) held by pending or confirmed appointments
func (a *AppointmentAdapter) ListOccupied(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	query, _, err := a.db.From(appointmentsTable).
		Select("appointment_date").
		Where(
			goqu.C("appointment_date").Gte(from.UTC()),
			goqu.C("appointment_date").Lt(to.UTC()),
			occupyingStatus(),
		).
		Order(goqu.C("appointment_date").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build occupied slots query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewTransientError("failed to load booked slots", err)
	}
	defer rows.Close()

	occupied := []time.Time{}
	for rows.Next() {
		var at time.Time
		if err := rows.Scan(&at); err != nil {
			return nil, apperrors.NewTransientError("failed to read booked slots", err)
		}
		occupied = append(occupied, at)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewTransientError("failed to read booked slots", err)
	}
	return occupied, nil
}

// UpdateStatus performs a compare-and-swap on the status column
func (a *AppointmentAdapter) UpdateStatus(ctx context.Context, id string, expected, next entities.AppointmentStatus) (*entities.Appointment, error) {
	query, _, err := a.db.Update(appointmentsTable).
		Set(goqu.Record{"status": next}).
		Where(goqu.Ex{"id": id, "status": expected}).
		Returning(appointmentColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build status update", err)
	}

	appointment, err := scanAppointment(a.client.DB().QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		current, getErr := a.GetByID(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		return nil, apperrors.NewConflictError(
			fmt.Sprintf("appointment status changed to %s before the update was applied", current.Status))
	}
	if err != nil {
		return nil, classifyError(err, "failed to update appointment status")
	}
	return appointment, nil
}

// Reschedule cancels the original and inserts the replacement in one
// serializable transaction. The target slot is only checked when exclusive,
// matching Create and CreateExclusive.
func (a *AppointmentAdapter) Reschedule(ctx context.Context, originalID string, replacement *entities.Appointment, exclusive bool) (*entities.Appointment, error) {
	cancelQuery, _, err := a.db.Update(appointmentsTable).
		Set(goqu.Record{"status": entities.AppointmentStatusCancelled}).
		Where(goqu.C("id").Eq(originalID), occupyingStatus()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build cancel query", err)
	}
	insertQuery, err := a.insertQuery(replacement)
	if err != nil {
		return nil, err
	}

	err = a.client.InSerializableTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, cancelQuery)
		if err != nil {
			return classifyError(err, "failed to cancel original appointment")
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return apperrors.NewInternalError("failed to get rows affected", err)
		}
		if affected == 0 {
			return a.missingOrSettled(ctx, tx, originalID)
		}

		if exclusive {
			if err := a.ensureSlotFree(ctx, tx, replacement.AppointmentDate); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, insertQuery); err != nil {
			return classifyError(err, "failed to create replacement appointment")
		}
		return nil
	})
	if err != nil {
		return nil, classifyError(err, "failed to reschedule appointment")
	}
	return replacement, nil
}

// missingOrSettled explains why a conditional cancel touched no row
func (a *AppointmentAdapter) missingOrSettled(ctx context.Context, tx *sql.Tx, id string) error {
	query, _, err := a.db.From(appointmentsTable).Select("status").Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build query", err)
	}

	var status entities.AppointmentStatus
	err = tx.QueryRowContext(ctx, query).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	if err != nil {
		return classifyError(err, "failed to get appointment")
	}
	return apperrors.NewConflictError(fmt.Sprintf("appointment is already %s and cannot be rescheduled", status))
}

// List retrieves appointments ordered by appointment date
func (a *AppointmentAdapter) List(ctx context.Context, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	ds := a.db.From(appointmentsTable).Select(appointmentColumns...)

	if filter.PatientID != "" {
		ds = ds.Where(goqu.Ex{"patient_id": filter.PatientID})
	}
	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": filter.Status})
	}
	if filter.From != nil {
		ds = ds.Where(goqu.C("appointment_date").Gte(filter.From.UTC()))
	}
	if filter.To != nil {
		ds = ds.Where(goqu.C("appointment_date").Lt(filter.To.UTC()))
	}

	ds = ds.Order(goqu.C("appointment_date").Asc())

	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, _, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query)
	if err != nil {
		return nil, classifyError(err, "failed to list appointments")
	}
	defer rows.Close()

	appointments := []*entities.Appointment{}
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan appointment", err)
		}
		appointments = append(appointments, appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyError(err, "failed to list appointments")
	}

	return appointments, nil
}

func scanAppointment(row rowScanner) (*entities.Appointment, error) {
	appointment := &entities.Appointment{}
	var notes sql.NullString

	err := row.Scan(
		&appointment.ID,
		&appointment.PatientID,
		&appointment.ProcedureID,
		&appointment.AppointmentDate,
		&appointment.Status,
		&notes,
		&appointment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	appointment.Notes = stringPtr(notes)
	return appointment, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
