package appointments

import (
	"fmt"

	"sarvsaathi-server/internal/models"
	"sarvsaathi-server/internal/notify"
)

const whenLayout = "Mon, 02 Jan 2006 at 15:04"

func (s *Service) when(a *models.Appointment) string {
	return a.ScheduledStart.In(s.opts.Location).Format(whenLayout)
}

func patientName(a *models.Appointment) string {
	if a.FamilyMember != nil {
		return a.FamilyMember.FullName()
	}
	if a.User != nil {
		return a.User.FullName()
	}
	return "Patient"
}

func doctorName(a *models.Appointment) string {
	if a.Doctor == nil {
		return "your doctor"
	}
	return a.Doctor.DisplayName()
}

// patientMessage addresses the account holder, using the family member's
// own phone when they have one.
func patientMessage(a *models.Appointment, subject, body string) notify.Message {
	msg := notify.Message{Subject: subject, Body: body, Name: patientName(a)}
	if a.FamilyMember != nil {
		msg.Phone = a.FamilyMember.ContactPhone(a.User)
	} else if a.User != nil {
		msg.Phone = a.User.Phone
	}
	if a.User != nil {
		msg.Email = a.User.Email
	}
	return msg
}

func doctorMessage(a *models.Appointment, subject, body string) notify.Message {
	msg := notify.Message{Subject: subject, Body: body, Name: doctorName(a)}
	if a.Doctor != nil && a.Doctor.User != nil {
		msg.Phone = a.Doctor.User.Phone
		msg.Email = a.Doctor.User.Email
	}
	return msg
}

func (s *Service) notify(msgs ...notify.Message) {
	if s.notifier == nil {
		return
	}
	for _, m := range msgs {
		s.notifier.Send(m)
	}
}

func (s *Service) notifyConfirmed(a *models.Appointment) {
	s.notify(
		patientMessage(a, "Appointment confirmed", fmt.Sprintf(
			"Your appointment %s with %s on %s is confirmed.",
			a.AppointmentNumber, doctorName(a), s.when(a))),
		doctorMessage(a, "New booking", fmt.Sprintf(
			"New booking %s: %s on %s (%s).",
			a.AppointmentNumber, patientName(a), s.when(a), a.ConsultationType)),
	)
}

func (s *Service) notifyCancelled(a *models.Appointment, byDoctor bool) {
	if byDoctor {
		s.notify(patientMessage(a, "Appointment cancelled", fmt.Sprintf(
			"Your appointment %s with %s on %s was cancelled by the doctor.",
			a.AppointmentNumber, doctorName(a), s.when(a))))
		return
	}
	s.notify(doctorMessage(a, "Appointment cancelled", fmt.Sprintf(
		"Appointment %s with %s on %s was cancelled by the patient.",
		a.AppointmentNumber, patientName(a), s.when(a))))
}

func (s *Service) notifyRescheduled(old, next *models.Appointment) {
	s.notify(doctorMessage(next, "Appointment rescheduled", fmt.Sprintf(
		"Appointment %s with %s moved from %s to %s (now %s).",
		old.AppointmentNumber, patientName(next), s.when(old), s.when(next), next.AppointmentNumber)))
}
