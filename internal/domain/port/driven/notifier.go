package driven

import "context"

// Notifier defines the driven port for delivering a notification to a user.
// target is the delivery address captured at opt-in (for the Discord adapter,
// a user id). Delivery failures are logged by callers, never fatal.
type Notifier interface {
	Deliver(ctx context.Context, target, text string) error
}
