package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"society_portal_echo/internal/billing"
	"society_portal_echo/internal/models"
)

// Mailer is the slice of the email service the reminder task needs
type Mailer interface {
	SendEmail(to []string, subject, body string) error
}

// DuesReminderTaskDef sweeps every society and emails approved residents
// whose computed dues are positive. Scheduled as a monthly recurring task.
type DuesReminderTaskDef struct {
	Mailer Mailer
}

// DuesReminderTask is the singleton instance of DuesReminderTaskDef
var DuesReminderTask = &DuesReminderTaskDef{}

// TaskID returns the unique identifier for this task
func (t *DuesReminderTaskDef) TaskID() string {
	return "dues_reminder"
}

// CreateTask builds the monthly recurring reminder schedule
func (t *DuesReminderTaskDef) CreateTask(firstRun time.Time) (*models.ScheduledTask, error) {
	rule := "FREQ=MONTHLY;BYMONTHDAY=1"
	return BuildScheduledTask(t.TaskID(), map[string]interface{}{}, firstRun, &rule, models.ScheduledTaskTypeRecurring, 3)
}

// HandleExecution computes dues for every approved resident and sends a
// reminder for each positive balance. A send failure skips that resident
// and continues the sweep.
func (t *DuesReminderTaskDef) HandleExecution(ctx context.Context, db *gorm.DB, args map[string]interface{}) (map[string]interface{}, error) {
	if t.Mailer == nil {
		return nil, fmt.Errorf("mailer not configured")
	}

	var societies []models.Society
	if err := db.WithContext(ctx).Find(&societies).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch societies: %w", err)
	}

	now := time.Now()
	notified := 0
	failures := 0

	for _, society := range societies {
		var residents []models.Resident
		err := db.WithContext(ctx).
			Where("society_name = ? AND approval_state = ?", society.SocietyName, models.ApprovalStateApproved).
			Find(&residents).Error
		if err != nil {
			slog.Error("failed to fetch residents for reminder sweep", "society", society.SocietyName, "error", err)
			failures++
			continue
		}

		for _, resident := range residents {
			bill := billing.Compute(resident, society, now)
			if bill.TotalAmount <= 0 || resident.Email == "" {
				continue
			}

			subject := fmt.Sprintf("Maintenance dues for %s", society.SocietyName)
			body := fmt.Sprintf(
				"Hello %s,\n\nYour maintenance balance for flat %s is %.2f "+
					"(monthly charge %.2f, pending dues %.2f).\n"+
					"Please visit the bill page to pay.\n",
				resident.FullName(), resident.FlatNumber,
				bill.TotalAmount, bill.MonthlyTotal, bill.Due,
			)
			if err := t.Mailer.SendEmail([]string{resident.Email}, subject, body); err != nil {
				slog.Warn("failed to send dues reminder", "resident_id", resident.ID, "error", err)
				failures++
				continue
			}
			notified++
		}
	}

	return map[string]interface{}{
		"status":   "success",
		"notified": notified,
		"failures": failures,
	}, nil
}
