package folio

import (
	"context"
	"testing"
)

func TestOperationLogs(t *testing.T) {
	core, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	for i, target := range []string{"ADP", "IYK", "USD"} {
		if _, err := core.AddOperationLog(ctx, OperationLog{
			Operation:    "ingest_stock",
			Target:       stringPtr(target),
			RowsAffected: int64(i + 1),
			RunID:        stringPtr("run"),
		}); err != nil {
			t.Fatalf("AddOperationLog: %v", err)
		}
	}
	if _, err := core.AddOperationLog(ctx, OperationLog{Operation: "setup"}); err != nil {
		t.Fatalf("AddOperationLog without details: %v", err)
	}

	logs, err := core.GetOperationLogs(ctx, 0, -1)
	assertNoError(t, err, "GetOperationLogs")
	if len(logs) != 4 {
		t.Fatalf("expected 4 logs, got %d", len(logs))
	}
	if logs[0].Operation != "setup" || logs[0].Target != nil || logs[0].RunID != nil || logs[0].CreatedAt == nil {
		t.Fatalf("expected newest log first with nil optional fields, got %+v", logs[0])
	}

	page, err := core.GetOperationLogs(ctx, 2, 1)
	assertNoError(t, err, "GetOperationLogs page")
	if len(page) != 2 || page[0].Target == nil || *page[0].Target != "USD" || page[1].RowsAffected != 2 {
		t.Fatalf("unexpected page %+v", page)
	}
}
