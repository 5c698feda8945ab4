package ports

import (
	"context"
	"time"
)

type Clock interface {
	Now() time.Time
}

type ScanService interface {
	RunStatusScan(ctx context.Context) error
	RunReminderScan(ctx context.Context) error
}
