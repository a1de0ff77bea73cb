package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/nicopel-ti/helpdesk/internal/events"
	"github.com/nicopel-ti/helpdesk/internal/realtime"
	"github.com/nicopel-ti/helpdesk/internal/service"
)

// Relay fans events out across instances.
type Relay interface {
	Publish(ctx context.Context, event events.Event) error
	Run(ctx context.Context) error
}

// Subscribers groups the event consumers started with the server. Nil
// members are skipped.
type Subscribers struct {
	Notifications *service.NotificationService
	Sync          *service.SyncService
	Hub           *realtime.Hub
	// Relay, when set, carries events to the hub through Redis instead of
	// broadcasting locally.
	Relay Relay
}

// StartEventWorkers registers every consumer with the dispatcher and starts
// the relay loop. The returned func blocks until the loop has exited after
// ctx is cancelled.
func StartEventWorkers(ctx context.Context, dispatcher events.Dispatcher, subs Subscribers, logger *zap.Logger) func() {
	if logger == nil {
		logger = zap.NewNop()
	}
	if subs.Notifications != nil {
		subs.Notifications.RegisterHandlers()
	}
	if subs.Sync != nil {
		subs.Sync.RegisterHandlers()
	}

	var wg sync.WaitGroup
	switch {
	case subs.Hub == nil:
	case subs.Relay != nil:
		dispatcher.SubscribeAll(subs.Relay.Publish)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := subs.Relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("event relay stopped", zap.Error(err))
			}
		}()
		logger.Info("realtime events relayed through redis")
	default:
		dispatcher.SubscribeAll(realtime.LocalForwarder(subs.Hub))
		logger.Info("realtime events broadcast locally")
	}
	return wg.Wait
}
