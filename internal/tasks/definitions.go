package tasks

import (
	"context"
	"log/slog"

	"gorm.io/gorm"
)

// DefineTasks registers all available tasks. The mailer is injected so the
// reminder task can be exercised with a fake in tests.
func DefineTasks(mailer Mailer) {
	DuesReminderTask.Mailer = mailer
	RegisterHandler(DuesReminderTask.TaskID(), DuesReminderTask.HandleExecution)

	// Diagnostic task, handy when verifying the worker loop end to end
	RegisterHandler("log_info", func(ctx context.Context, db *gorm.DB, args map[string]interface{}) (map[string]interface{}, error) {
		message, ok := args["message"].(string)
		if !ok {
			message = "No message provided"
		}
		slog.Info("log_info task executed", "message", message)
		return map[string]interface{}{"status": "success", "message": message}, nil
	})
}
