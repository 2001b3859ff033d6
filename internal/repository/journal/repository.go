package journal

import (
	"context"

	"github.com/oshokin/safe-walk/internal/domain/walk"
)

// DefaultListLimit caps ListAlerts when the caller passes a non-positive limit.
const DefaultListLimit = 100

// Repository stores alert records.
type Repository interface {
	SaveAlert(ctx context.Context, alert *walk.AlertRecord) error
	ListAlerts(ctx context.Context, limit int) ([]*walk.AlertRecord, error)
}
