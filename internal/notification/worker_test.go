package notification

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"shopfloor-status-backend/internal/db"
	"shopfloor-status-backend/internal/model"
)

// mockSender is a mock implementation of the Sender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := testDB.DB()
		sqlDB.Close()
	})
	require.NoError(t, db.Migrate(testDB))
	return testDB
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func watchMachine(t *testing.T, testDB *gorm.DB, endpoint string, machineID int) {
	t.Helper()
	sub := model.PushSubscription{
		Endpoint: endpoint,
		P256DH:   "test_p256dh",
		Auth:     "test_auth",
	}
	require.NoError(t, testDB.Create(&sub).Error)
	require.NoError(t, testDB.Exec(
		"INSERT INTO subscription_machine_mapping (push_subscription_endpoint, machine_id) VALUES (?, ?)",
		endpoint, machineID,
	).Error)
}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp := NewWorkerPool(1, newTestDB(t), &webpush.Options{}, quietLogger())

	wp.Dispatch(123)

	select {
	case job := <-wp.jobs:
		assert.Equal(t, 123, job)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_FaultAlerts(t *testing.T) {
	t.Run("notifies the machine's watchers", func(t *testing.T) {
		testDB := newTestDB(t)
		require.NoError(t, testDB.Create(&model.Machine{MachineID: 101, MachineName: "JSW-180", Status: model.StatusFault, InputMode: model.InputModeAuto, PartsPerCycle: 1}).Error)
		watchMachine(t, testDB, "https://example.com/push", 101)
		// A watcher of another machine must not be notified.
		watchMachine(t, testDB, "https://example.com/other", 999)

		wp := NewWorkerPool(1, testDB, &webpush.Options{}, quietLogger())

		var wg sync.WaitGroup
		wg.Add(1)
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				assert.Equal(t, "https://example.com/push", sub.Endpoint)
				assert.Equal(t, "Machine JSW-180 reported a fault", string(payload))
				wg.Done()
				return &http.Response{
					StatusCode: http.StatusCreated,
					Body:       io.NopCloser(bytes.NewBufferString("")),
				}, nil
			},
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		wp.Start(ctx)

		wp.Dispatch(101)
		wg.Wait()
	})

	t.Run("deletes a subscription the push service reports gone", func(t *testing.T) {
		testDB := newTestDB(t)
		require.NoError(t, testDB.Create(&model.Machine{MachineID: 102, MachineName: "M102", Status: model.StatusFault, InputMode: model.InputModeAuto, PartsPerCycle: 1}).Error)
		watchMachine(t, testDB, "https://example.com/expired", 102)

		wp := NewWorkerPool(1, testDB, &webpush.Options{}, quietLogger())
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				return &http.Response{
					StatusCode: http.StatusGone,
					Body:       io.NopCloser(bytes.NewBufferString("")),
				}, nil
			},
		}

		wp.sendFaultAlerts(context.Background(), 102)

		var count int64
		testDB.Model(&model.PushSubscription{}).Where("endpoint = ?", "https://example.com/expired").Count(&count)
		assert.Zero(t, count, "a 410 response prunes the subscription")
	})

	t.Run("falls back to the machine id when the name is missing", func(t *testing.T) {
		testDB := newTestDB(t)
		watchMachine(t, testDB, "https://example.com/fallback", 103)

		wp := NewWorkerPool(1, testDB, &webpush.Options{}, quietLogger())

		var payload string
		wp.sender = &mockSender{
			SendFunc: func(p []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				payload = string(p)
				return &http.Response{
					StatusCode: http.StatusCreated,
					Body:       io.NopCloser(bytes.NewBufferString("")),
				}, nil
			},
		}

		wp.sendFaultAlerts(context.Background(), 103)
		assert.Equal(t, "Machine #103 reported a fault", payload)
	})
}
