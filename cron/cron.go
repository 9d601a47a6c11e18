package cron

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"study-booking-api/db"
	"study-booking-api/models"
	"study-booking-api/utils"
)

// StartCronJobs initializes and starts the scheduler for session reminders
func StartCronJobs() {
	c := cron.New()
	// Run every minute to check for slots starting in the next hour
	_, err := c.AddFunc("* * * * *", sendSessionReminders)
	if err != nil {
		log.Fatalf("Failed to add cron job: %v", err)
	}
	c.Start()
	log.Println("Cron job scheduler started for session reminders")
}

// sendSessionReminders mails participants whose slot starts in about an
// hour. Only bookings with a live ancestor chain and an email address
// qualify.
func sendSessionReminders() {
	now := time.Now()
	startWindow := now.Add(55 * time.Minute)
	endWindow := now.Add(65 * time.Minute)

	var bookings []models.Booking
	err := db.DB.
		Joins("JOIN time_slots ON time_slots.id = bookings.slot_id AND time_slots.deleted_at IS NULL").
		Joins("JOIN sessions ON sessions.id = time_slots.session_id AND sessions.deleted_at IS NULL").
		Joins("JOIN studies ON studies.id = sessions.study_id AND studies.deleted_at IS NULL").
		Where("bookings.email <> '' AND time_slots.start_time BETWEEN ? AND ?", startWindow, endWindow).
		Preload("Slot").
		Preload("Slot.Session").
		Preload("Slot.Session.Study").
		Find(&bookings).Error
	if err != nil {
		log.Printf("Error fetching bookings for reminders: %v", err)
		return
	}

	for _, booking := range bookings {
		if err := sendReminderEmail(&booking); err != nil {
			log.Printf("Failed to send reminder for booking %d: %v", booking.ID, err)
			continue
		}
		log.Printf("Sent reminder for booking %d to %s", booking.ID, booking.Email)
	}
}

// sendReminderEmail constructs and sends the reminder email
func sendReminderEmail(booking *models.Booking) error {
	study := booking.Slot.Session.Study
	subject := fmt.Sprintf("Reminder: Upcoming Study Session - %s", study.Title)
	body := fmt.Sprintf(`
		<p>Dear %s,</p>
		<p>This is a reminder for your study session starting in one hour.</p>
		<p><strong>Details:</strong></p>
		<ul>
			<li><strong>Study:</strong> %s</li>
			<li><strong>Location:</strong> %s</li>
			<li><strong>Start Time:</strong> %s</li>
			<li><strong>End Time:</strong> %s</li>
		</ul>
		<p>Please arrive on time. If you can no longer attend, contact the research team as soon as possible.</p>
		<p>Best regards,</p>
		<p>The Research Team</p>
	`, booking.Name, study.Title, booking.Slot.Session.Location,
		booking.Slot.StartTime.Format("2006-01-02 15:04:05"),
		booking.Slot.EndTime.Format("2006-01-02 15:04:05"))

	return utils.SendEmail(booking.Email, subject, body)
}
