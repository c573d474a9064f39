package tasks

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"society_portal_echo/internal/models"
)

type fakeMailer struct {
	sent []string
	fail bool
}

func (m *fakeMailer) SendEmail(to []string, subject, body string) error {
	if m.fail {
		return assert.AnError
	}
	m.sent = append(m.sent, to...)
	return nil
}

func newTaskTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "tasks.db")), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Society{}, &models.Resident{}))
	return db
}

func TestDuesReminderNotifiesOnlyPositiveBalances(t *testing.T) {
	db := newTaskTestDB(t)

	society := models.Society{
		SocietyName: "Green Meadows",
		FeeSchedule: datatypes.JSONMap{"maintenance": 600.0},
	}
	require.NoError(t, db.Create(&society).Error)

	now := time.Now()
	paidToday := now

	owing := models.Resident{
		FirebaseUID:   "uid-owing",
		Email:         "owing@example.com",
		SocietyName:   "Green Meadows",
		FlatNumber:    "A-101",
		ApprovalState: models.ApprovalStateApproved,
	}
	require.NoError(t, db.Create(&owing).Error)

	settled := models.Resident{
		FirebaseUID:   "uid-settled",
		Email:         "settled@example.com",
		SocietyName:   "Green Meadows",
		FlatNumber:    "A-102",
		ApprovalState: models.ApprovalStateApproved,
		LastPayment: models.LastPayment{
			Date:    &paidToday,
			Amount:  600,
			Invoice: "order_settled",
		},
	}
	require.NoError(t, db.Create(&settled).Error)

	unapproved := models.Resident{
		FirebaseUID:   "uid-applied",
		Email:         "applied@example.com",
		SocietyName:   "Green Meadows",
		FlatNumber:    "A-103",
		ApprovalState: models.ApprovalStateApplied,
	}
	require.NoError(t, db.Create(&unapproved).Error)

	mailer := &fakeMailer{}
	task := &DuesReminderTaskDef{Mailer: mailer}

	result, err := task.HandleExecution(context.Background(), db, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"owing@example.com"}, mailer.sent)
	assert.Equal(t, 1, result["notified"])
	assert.Equal(t, 0, result["failures"])
}

func TestDuesReminderRequiresMailer(t *testing.T) {
	task := &DuesReminderTaskDef{}

	_, err := task.HandleExecution(context.Background(), newTaskTestDB(t), nil)
	assert.Error(t, err)
}

func TestDuesReminderCountsSendFailures(t *testing.T) {
	db := newTaskTestDB(t)

	society := models.Society{
		SocietyName: "Green Meadows",
		FeeSchedule: datatypes.JSONMap{"maintenance": 600.0},
	}
	require.NoError(t, db.Create(&society).Error)

	resident := models.Resident{
		FirebaseUID:   "uid-owing",
		Email:         "owing@example.com",
		SocietyName:   "Green Meadows",
		FlatNumber:    "A-101",
		ApprovalState: models.ApprovalStateApproved,
	}
	require.NoError(t, db.Create(&resident).Error)

	task := &DuesReminderTaskDef{Mailer: &fakeMailer{fail: true}}

	result, err := task.HandleExecution(context.Background(), db, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result["notified"])
	assert.Equal(t, 1, result["failures"])
}

func TestDuesReminderCreateTask(t *testing.T) {
	firstRun := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)

	scheduled, err := DuesReminderTask.CreateTask(firstRun)
	require.NoError(t, err)

	assert.Equal(t, "dues_reminder", scheduled.TaskName)
	assert.Equal(t, models.ScheduledTaskTypeRecurring, scheduled.TaskType)
	require.NotNil(t, scheduled.RecurringInterval)
	assert.Contains(t, *scheduled.RecurringInterval, "FREQ=MONTHLY")
}
