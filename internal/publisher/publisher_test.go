package publisher

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"shopfloor-status-backend/internal/db"
	"shopfloor-status-backend/internal/liveness"
	"shopfloor-status-backend/internal/model"
	"shopfloor-status-backend/internal/store"
)

func newTestPublisher(t *testing.T, now func() time.Time) (*Publisher, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	testDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := testDB.DB()
		sqlDB.Close()
	})
	require.NoError(t, db.Migrate(testDB))

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return New(store.NewGormStore(testDB), 10*time.Millisecond, liveness.DefaultOfflineThreshold, logger, now), testDB
}

func TestSnapshotAppliesOfflineOverlay(t *testing.T) {
	now := time.Now().UTC()
	pub, testDB := newTestPublisher(t, func() time.Time { return now })

	fresh := now.Add(-5 * time.Second)
	silent := now.Add(-40 * time.Second)
	require.NoError(t, testDB.Create(&model.Machine{MachineID: 1, MachineName: "M1", Status: model.StatusRunning, InputMode: model.InputModeAuto, PartsPerCycle: 1, LastSeen: &fresh}).Error)
	require.NoError(t, testDB.Create(&model.Machine{MachineID: 2, MachineName: "M2", Status: model.StatusRunning, InputMode: model.InputModeAuto, PartsPerCycle: 1, LastSeen: &silent}).Error)
	require.NoError(t, testDB.Create(&model.Machine{MachineID: 3, MachineName: "M3", Status: model.StatusIdle, InputMode: model.InputModeAuto, PartsPerCycle: 1}).Error)

	views, err := pub.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, views, 3)

	assert.Equal(t, model.StatusRunning, views[0].Status)
	require.NotNil(t, views[0].SecondsSinceSeen)
	assert.Equal(t, int64(5), *views[0].SecondsSinceSeen)

	assert.Equal(t, model.StatusOffline, views[1].Status, "a machine silent past the threshold displays offline")
	assert.Equal(t, model.StatusOffline, views[2].Status, "a machine never seen displays offline")
	assert.Nil(t, views[2].SecondsSinceSeen)

	// The overlay is a read-time substitution, not a write.
	var stored model.Machine
	require.NoError(t, testDB.First(&stored, "machine_id = ?", 2).Error)
	assert.Equal(t, model.StatusRunning, stored.Status)
}

func TestRunBroadcastsToSubscribers(t *testing.T) {
	now := time.Now().UTC()
	pub, testDB := newTestPublisher(t, func() time.Time { return now })

	seen := now.Add(-time.Second)
	require.NoError(t, testDB.Create(&model.Machine{MachineID: 1, MachineName: "M1", Status: model.StatusRunning, InputMode: model.InputModeAuto, PartsPerCycle: 1, LastSeen: &seen}).Error)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pub.Run(ctx)

	ch, unsubscribe := pub.Subscribe()
	defer unsubscribe()

	select {
	case frame := <-ch:
		require.Len(t, frame, 1)
		assert.Equal(t, model.StatusRunning, frame[0].Status)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a frame from the publisher loop")
	}
}

func TestUnsubscribeDetachesOnlyCaller(t *testing.T) {
	pub, _ := newTestPublisher(t, nil)

	_, cancelA := pub.Subscribe()
	chB, cancelB := pub.Subscribe()
	defer cancelB()

	assert.Equal(t, 2, pub.subscriberCount())

	cancelA()
	cancelA() // idempotent
	assert.Equal(t, 1, pub.subscriberCount())

	pub.broadcast([]MachineView{})
	select {
	case <-chB:
	default:
		t.Fatal("remaining subscriber should still receive frames")
	}
}

func TestSlowSubscriberDropsFramesWithoutBlocking(t *testing.T) {
	pub, _ := newTestPublisher(t, nil)

	ch, cancel := pub.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		// The channel holds one frame; further broadcasts must not block.
		pub.broadcast([]MachineView{{}})
		pub.broadcast([]MachineView{{}, {}})
		pub.broadcast([]MachineView{{}, {}, {}})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow subscriber")
	}

	frame := <-ch
	assert.Len(t, frame, 1, "the undrained frame is the first one; later frames were dropped")
}
