package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"shopfloor-status-backend/internal/model"
)

// Sender sends one web push notification. Abstracted so tests can observe
// payloads without hitting a push service.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// webPushSender is the real Sender backed by the webpush library.
type webPushSender struct{}

func (s *webPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool delivers fault alerts for machines. Status writers dispatch a
// machine id whenever a machine transitions into fault; the pool notifies
// every subscriber watching that machine.
type WorkerPool struct {
	size    int
	jobs    chan int
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
	log     *logrus.Logger
}

// NewWorkerPool creates a pool of the given size.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options, log *logrus.Logger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan int, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &webPushSender{},
		log:     log,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.log.WithField("worker", id).Debug("fault alert worker started")
	for {
		select {
		case machineID := <-wp.jobs:
			wp.sendFaultAlerts(ctx, machineID)
		case <-ctx.Done():
			wp.log.WithField("worker", id).Debug("fault alert worker shutting down")
			return
		}
	}
}

// Dispatch queues fault alerts for a machine.
func (wp *WorkerPool) Dispatch(machineID int) {
	wp.jobs <- machineID
}

// sendFaultAlerts fetches the machine's watchers and notifies each of them.
func (wp *WorkerPool) sendFaultAlerts(ctx context.Context, machineID int) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscription_machine_mapping smm ON smm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("smm.machine_id = ?", machineID).
		Find(&subscriptions).Error
	if err != nil {
		wp.log.WithError(err).WithField("machine", machineID).Error("failed to fetch fault alert subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	machineLabel := fmt.Sprintf("#%d", machineID)
	var machine model.Machine
	if err := wp.db.WithContext(ctx).
		Select("machine_name").
		First(&machine, "machine_id = ?", machineID).Error; err != nil {
		wp.log.WithError(err).WithField("machine", machineID).Warn("failed to resolve machine name for alert")
	} else if machine.MachineName != "" {
		machineLabel = machine.MachineName
	}

	message := fmt.Sprintf("Machine %s reported a fault", machineLabel)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.log.WithError(err).WithField("endpoint", sub.Endpoint).Error("failed to send fault alert")
		return
	}
	defer resp.Body.Close()

	// A 410 means the browser dropped the subscription; prune it.
	if resp.StatusCode == http.StatusGone {
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			wp.log.WithError(err).WithField("endpoint", sub.Endpoint).Error("failed to delete expired subscription")
		}
	}
}
