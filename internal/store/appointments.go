package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"sarvsaathi-server/internal/models"
)

// AppointmentFilter narrows appointment listings. Zero values are ignored.
type AppointmentFilter struct {
	UserID   string
	DoctorID string
	Status   models.AppointmentStatus
	From     time.Time // scheduled at or after
	To       time.Time // scheduled before
}

func (s *Store) appointmentQuery(ctx context.Context, f AppointmentFilter) *gorm.DB {
	q := s.conn(ctx).Model(&models.Appointment{})
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.DoctorID != "" {
		q = q.Where("doctor_id = ?", f.DoctorID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.From.IsZero() {
		q = q.Where("scheduled_start >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("scheduled_start < ?", f.To)
	}
	return q
}

func (s *Store) CreateAppointment(ctx context.Context, a *models.Appointment) error {
	return translate(s.write(ctx).Create(a).Error)
}

func (s *Store) SaveAppointment(ctx context.Context, a *models.Appointment) error {
	return translate(s.write(ctx).Save(a).Error)
}

// GetAppointment loads an appointment with its doctor, family member and
// requesting user.
func (s *Store) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	var a models.Appointment
	err := s.conn(ctx).
		Preload("Doctor.User").
		Preload("FamilyMember").
		Preload("User").
		First(&a, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *Store) AppointmentNumberExists(ctx context.Context, number string) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&models.Appointment{}).
		Where("appointment_number = ?", number).
		Count(&count).Error
	return count > 0, err
}

// HasActiveAppointmentForSlot reports whether a pending or confirmed
// appointment currently holds the slot.
func (s *Store) HasActiveAppointmentForSlot(ctx context.Context, slotID string) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&models.Appointment{}).
		Where("time_slot_id = ? AND status IN ?", slotID,
			[]models.AppointmentStatus{models.StatusPending, models.StatusConfirmed}).
		Count(&count).Error
	return count > 0, err
}

func (s *Store) ListAppointments(ctx context.Context, f AppointmentFilter) ([]models.Appointment, error) {
	var out []models.Appointment
	err := s.appointmentQuery(ctx, f).
		Preload("Doctor.User").
		Preload("FamilyMember").
		Order("scheduled_start DESC").
		Find(&out).Error
	return out, err
}

// CountAppointmentsByStatus groups the filtered appointments by status.
func (s *Store) CountAppointmentsByStatus(ctx context.Context, f AppointmentFilter) (map[models.AppointmentStatus]int64, error) {
	var rows []struct {
		Status models.AppointmentStatus
		Total  int64
	}
	err := s.appointmentQuery(ctx, f).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.AppointmentStatus]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Total
	}
	return counts, nil
}

func (s *Store) CreateStatusLog(ctx context.Context, l *models.AppointmentStatusLog) error {
	return translate(s.conn(ctx).Create(l).Error)
}

func (s *Store) ListStatusLogs(ctx context.Context, appointmentID string) ([]models.AppointmentStatusLog, error) {
	var logs []models.AppointmentStatusLog
	err := s.conn(ctx).
		Where("appointment_id = ?", appointmentID).
		Order("created_at ASC").
		Find(&logs).Error
	return logs, err
}
