// Package notify forwards collector events to external channels.
package notify

import (
	"context"

	"github.com/and3rn3t/network-sub004/internal/model"
)

// Provider sends notifications through a specific channel.
type Provider interface {
	Name() string
	Send(ctx context.Context, n model.Notification) error
}
