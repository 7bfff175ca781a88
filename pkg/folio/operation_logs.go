package folio

import (
	"context"
	"database/sql"
)

// AddOperationLog adds a new operation log entry.
func (c *Core) AddOperationLog(ctx context.Context, log OperationLog) (int64, error) {
	result, err := c.db.ExecContext(ctx, `
		INSERT INTO operation_logs (operation_type, target, details, rows_affected, run_id)
		VALUES (?, ?, ?, ?, ?)
	`, log.Operation, log.Target, log.Details, log.RowsAffected, log.RunID)
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "add operation log", err)
	}
	return result.LastInsertId()
}

// GetOperationLogs returns recent operation logs, newest first.
func (c *Core) GetOperationLogs(ctx context.Context, limit, offset int) ([]OperationLog, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := c.QueryContext(ctx,
		"SELECT id, operation_type, target, details, rows_affected, run_id, created_at FROM operation_logs ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []OperationLog
	for rows.Next() {
		var log OperationLog
		var target, details, runID, createdAt sql.NullString
		if err := rows.Scan(&log.ID, &log.Operation, &target, &details, &log.RowsAffected, &runID, &createdAt); err != nil {
			return nil, err
		}
		if target.Valid {
			log.Target = &target.String
		}
		if details.Valid {
			log.Details = &details.String
		}
		if runID.Valid {
			log.RunID = &runID.String
		}
		if createdAt.Valid {
			log.CreatedAt = &createdAt.String
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
