package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"stockwatch/config"
	"stockwatch/internal/dto"
	"stockwatch/pkg/logger"
	"stockwatch/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	mu    sync.Mutex
	items map[string]interface{}
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[string]interface{})}
}

func (f *fakeCache) Set(key string, value interface{}, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[key] = value
}

func (f *fakeCache) Get(key string) (interface{}, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.items[key]
	return v, ok
}

func (f *fakeCache) Delete(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, key)
}

func (f *fakeCache) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = make(map[string]interface{})
}

type scheduleReply struct {
	schedule *dto.Schedule
	err      error
	delay    time.Duration
}

// fakeSchedulerClient counts calls and replays canned responses. When the
// schedule reply queue is non-empty, replies are consumed in call order.
type fakeSchedulerClient struct {
	mu sync.Mutex

	schedule    *dto.Schedule
	scheduleErr error
	logs        []dto.ExecutionLogRecord
	logsErr     error

	scheduleQueue []scheduleReply

	pauseErr   error
	resumeErr  error
	triggerErr error
	pauseDelay time.Duration

	scheduleCalls int
	historyCalls  int
	pauseCalls    int
	resumeCalls   int
	triggerCalls  int
}

func (f *fakeSchedulerClient) GetSchedule(ctx context.Context, _ uint) (*dto.Schedule, error) {
	f.mu.Lock()
	f.scheduleCalls++
	var reply scheduleReply
	if len(f.scheduleQueue) > 0 {
		reply = f.scheduleQueue[0]
		f.scheduleQueue = f.scheduleQueue[1:]
	} else {
		reply = scheduleReply{schedule: f.schedule, err: f.scheduleErr}
	}
	f.mu.Unlock()

	if reply.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(reply.delay):
		}
	}
	return reply.schedule, reply.err
}

func (f *fakeSchedulerClient) GetScheduleLogs(_ context.Context, _ uint, _ int) ([]dto.ExecutionLogRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyCalls++
	return f.logs, f.logsErr
}

func (f *fakeSchedulerClient) PauseSchedule(_ context.Context, _ uint) error {
	f.mu.Lock()
	f.pauseCalls++
	delay := f.pauseDelay
	err := f.pauseErr
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	return err
}

func (f *fakeSchedulerClient) ResumeSchedule(_ context.Context, _ uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumeCalls++
	return f.resumeErr
}

func (f *fakeSchedulerClient) TriggerScheduleNow(_ context.Context, _ uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.triggerCalls++
	return f.triggerErr
}

func (f *fakeSchedulerClient) counts() (schedule, history int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scheduleCalls, f.historyCalls
}

func monitorConfig() *config.Config {
	return &config.Config{
		Monitor: config.Monitor{
			ScheduleID:         7,
			PollInterval:       time.Hour, // polling disabled unless a test shortens it
			HistoryLimit:       50,
			TriggerResyncDelay: 20 * time.Millisecond,
		},
		Cache: config.Cache{DefaultExpiration: time.Minute},
	}
}

func newTestMonitor(cfg *config.Config, client *fakeSchedulerClient) *Monitor {
	return NewMonitor(cfg, logger.NewNop(), client, newFakeCache(), nil)
}

func activeSchedule() *dto.Schedule {
	next := time.Now().Add(10 * time.Minute)
	last := time.Now().Add(-50 * time.Minute)
	return &dto.Schedule{
		ID:             7,
		JobID:          1,
		CronExpression: "0 * * * *",
		IsActive:       true,
		NextRunTime:    &next,
		LastRunAt:      &last,
	}
}

func logRecord(id uint, success bool, output *string) dto.ExecutionLogRecord {
	return dto.ExecutionLogRecord{
		ID:             id,
		ExecutedAt:     time.Now().Add(-time.Duration(id) * time.Minute),
		Success:        success,
		ResponseOutput: output,
	}
}

func TestRefreshScheduleReplacesWholesale(t *testing.T) {
	client := &fakeSchedulerClient{schedule: activeSchedule()}
	m := newTestMonitor(monitorConfig(), client)
	defer m.Stop()

	err := m.RefreshSchedule(context.Background())
	require.NoError(t, err)

	snap := m.Snapshot()
	require.NotNil(t, snap.Schedule)
	assert.True(t, snap.Schedule.IsActive)
	assert.Equal(t, "Hourly at minute 0", snap.CronDescription)
	assert.NotEqual(t, "Not scheduled", snap.NextRunIn)
}

func TestRefreshScheduleFailureKeepsStaleCopy(t *testing.T) {
	client := &fakeSchedulerClient{schedule: activeSchedule()}
	m := newTestMonitor(monitorConfig(), client)
	defer m.Stop()

	require.NoError(t, m.RefreshSchedule(context.Background()))

	client.mu.Lock()
	client.scheduleErr = assert.AnError
	client.schedule = nil
	client.mu.Unlock()

	err := m.RefreshSchedule(context.Background())
	assert.Error(t, err)

	snap := m.Snapshot()
	assert.NotNil(t, snap.Schedule, "stale-but-available beats blank")
	assert.NotEmpty(t, snap.Error)
}

func TestLatestSkipsFailedNewestRun(t *testing.T) {
	goodPayload := `{"result":{"stock_symbol":"AAPL","current_price":242.841}}`
	client := &fakeSchedulerClient{
		logs: []dto.ExecutionLogRecord{
			logRecord(2, false, nil),
			logRecord(1, true, utils.ToPointer(goodPayload)),
		},
	}
	m := newTestMonitor(monitorConfig(), client)
	defer m.Stop()

	require.NoError(t, m.RefreshHistory(context.Background()))

	snap := m.Snapshot()
	require.Len(t, snap.History, 2)
	require.NotNil(t, snap.Latest)
	assert.Equal(t, "AAPL", *snap.Latest.StockSymbol)
	assert.Equal(t, "$242.84", snap.LatestPrice)
}

func TestRefreshHistoryFailureIsSilentByDefault(t *testing.T) {
	goodPayload := `{"result":{"stock_symbol":"TSLA","current_price":180.0}}`
	client := &fakeSchedulerClient{
		logs: []dto.ExecutionLogRecord{logRecord(1, true, utils.ToPointer(goodPayload))},
	}
	m := newTestMonitor(monitorConfig(), client)
	defer m.Stop()

	require.NoError(t, m.RefreshHistory(context.Background()))

	client.mu.Lock()
	client.logsErr = assert.AnError
	client.logs = nil
	client.mu.Unlock()

	err := m.RefreshHistory(context.Background())
	assert.Error(t, err)

	snap := m.Snapshot()
	assert.Len(t, snap.History, 1, "prior history survives a failed poll")
	assert.NotNil(t, snap.Latest)
	assert.Empty(t, snap.Error, "history fetch failures stay off the surface")
}

func TestRefreshHistoryFailureSurfacesWhenConfigured(t *testing.T) {
	cfg := monitorConfig()
	cfg.Monitor.SurfaceHistoryErrors = true
	client := &fakeSchedulerClient{logsErr: assert.AnError}
	m := newTestMonitor(cfg, client)
	defer m.Stop()

	_ = m.RefreshHistory(context.Background())

	assert.NotEmpty(t, m.Snapshot().Error)
}

func TestToggleFailureLeavesScheduleUntouched(t *testing.T) {
	client := &fakeSchedulerClient{schedule: activeSchedule(), pauseErr: assert.AnError}
	m := newTestMonitor(monitorConfig(), client)
	defer m.Stop()

	require.NoError(t, m.RefreshSchedule(context.Background()))

	err := m.Toggle(context.Background())
	assert.Error(t, err)

	snap := m.Snapshot()
	assert.True(t, snap.Schedule.IsActive, "local state must not flip on a failed pause")
	assert.NotEmpty(t, snap.Error)
	assert.False(t, snap.Busy)
}

func TestToggleResyncsInsteadOfFlippingLocally(t *testing.T) {
	paused := activeSchedule()
	paused.IsActive = false
	paused.NextRunTime = nil

	client := &fakeSchedulerClient{
		scheduleQueue: []scheduleReply{
			{schedule: activeSchedule()}, // initial load
			{schedule: paused},           // re-read after the pause
		},
	}
	m := newTestMonitor(monitorConfig(), client)
	defer m.Stop()

	require.NoError(t, m.RefreshSchedule(context.Background()))
	require.NoError(t, m.Toggle(context.Background()))

	client.mu.Lock()
	pauses := client.pauseCalls
	client.mu.Unlock()
	assert.Equal(t, 1, pauses)

	snap := m.Snapshot()
	assert.False(t, snap.Schedule.IsActive, "state comes from the re-read, not a local flip")
	assert.Equal(t, "Paused", snap.NextRunIn)
}

func TestToggleRequiresLoadedSchedule(t *testing.T) {
	m := newTestMonitor(monitorConfig(), &fakeSchedulerClient{})
	defer m.Stop()

	assert.ErrorIs(t, m.Toggle(context.Background()), ErrScheduleNotLoaded)
}

func TestToggleRejectsReentrantCalls(t *testing.T) {
	client := &fakeSchedulerClient{
		schedule:   activeSchedule(),
		pauseDelay: 100 * time.Millisecond,
	}
	m := newTestMonitor(monitorConfig(), client)
	defer m.Stop()

	require.NoError(t, m.RefreshSchedule(context.Background()))

	done := make(chan error, 1)
	go func() { done <- m.Toggle(context.Background()) }()

	time.Sleep(20 * time.Millisecond)
	assert.ErrorIs(t, m.Toggle(context.Background()), ErrBusy)

	assert.NoError(t, <-done)
}

func TestTriggerNowDefersResync(t *testing.T) {
	client := &fakeSchedulerClient{schedule: activeSchedule()}
	m := newTestMonitor(monitorConfig(), client)
	defer m.Stop()

	require.NoError(t, m.TriggerNow(context.Background()))

	schedCalls, histCalls := client.counts()
	assert.Equal(t, 0, schedCalls, "resync must not happen before the delay")
	assert.Equal(t, 0, histCalls)
	assert.False(t, m.Snapshot().Busy, "busy does not cover the deferred resync")

	time.Sleep(80 * time.Millisecond)

	schedCalls, histCalls = client.counts()
	assert.Equal(t, 1, schedCalls)
	assert.Equal(t, 1, histCalls)
}

func TestTriggerNowFailureSkipsResync(t *testing.T) {
	client := &fakeSchedulerClient{triggerErr: assert.AnError}
	m := newTestMonitor(monitorConfig(), client)
	defer m.Stop()

	assert.Error(t, m.TriggerNow(context.Background()))
	assert.NotEmpty(t, m.Snapshot().Error)

	time.Sleep(60 * time.Millisecond)
	schedCalls, histCalls := client.counts()
	assert.Equal(t, 0, schedCalls)
	assert.Equal(t, 0, histCalls)
}

func TestMutatingActionClearsPreviousError(t *testing.T) {
	client := &fakeSchedulerClient{schedule: activeSchedule(), scheduleErr: assert.AnError}
	m := newTestMonitor(monitorConfig(), client)
	defer m.Stop()

	_ = m.RefreshSchedule(context.Background())
	assert.NotEmpty(t, m.Snapshot().Error)

	client.mu.Lock()
	client.scheduleErr = nil
	client.mu.Unlock()

	require.NoError(t, m.RefreshSchedule(context.Background()))
	assert.NotEmpty(t, m.Snapshot().Error, "successful reads do not clear the error")

	require.NoError(t, m.TriggerNow(context.Background()))
	assert.Empty(t, m.Snapshot().Error, "mutating actions clear the error on entry")
}

func TestStartPollsBothSources(t *testing.T) {
	cfg := monitorConfig()
	cfg.Monitor.PollInterval = 100 * time.Millisecond
	client := &fakeSchedulerClient{schedule: activeSchedule()}
	m := newTestMonitor(cfg, client)

	m.Start(context.Background())
	defer m.Stop()

	schedCalls, histCalls := client.counts()
	assert.Equal(t, 1, schedCalls, "activation fetches each source exactly once")
	assert.Equal(t, 1, histCalls)

	time.Sleep(150 * time.Millisecond)

	schedCalls, histCalls = client.counts()
	assert.Equal(t, 2, schedCalls, "one interval tick adds one fetch per source")
	assert.Equal(t, 2, histCalls)
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	fresh := activeSchedule()
	stale := activeSchedule()
	stale.IsActive = false

	client := &fakeSchedulerClient{
		scheduleQueue: []scheduleReply{
			{schedule: stale, delay: 80 * time.Millisecond}, // slow, issued first
			{schedule: fresh},                               // fast, issued second
		},
	}
	m := newTestMonitor(monitorConfig(), client)
	defer m.Stop()

	done := make(chan struct{})
	go func() {
		_ = m.RefreshSchedule(context.Background())
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, m.RefreshSchedule(context.Background()))
	<-done

	snap := m.Snapshot()
	assert.True(t, snap.Schedule.IsActive, "the slow stale response must not win")
}

func TestNoMutationAfterStop(t *testing.T) {
	client := &fakeSchedulerClient{
		scheduleQueue: []scheduleReply{
			{schedule: activeSchedule(), delay: 60 * time.Millisecond},
		},
	}
	m := newTestMonitor(monitorConfig(), client)

	done := make(chan struct{})
	go func() {
		_ = m.RefreshSchedule(context.Background())
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	m.Stop()
	<-done

	snap := m.Snapshot()
	assert.Nil(t, snap.Schedule, "a fetch resolving after teardown is discarded")

	assert.ErrorIs(t, m.Toggle(context.Background()), ErrStopped)
	assert.ErrorIs(t, m.TriggerNow(context.Background()), ErrStopped)
}

func TestDecodeCacheSurvivesRepeatedRefreshes(t *testing.T) {
	payload := `{"result":{"stock_symbol":"NVDA","current_price":950.5}}`
	client := &fakeSchedulerClient{
		logs: []dto.ExecutionLogRecord{logRecord(11, true, utils.ToPointer(payload))},
	}
	m := newTestMonitor(monitorConfig(), client)
	defer m.Stop()

	require.NoError(t, m.RefreshHistory(context.Background()))
	require.NoError(t, m.RefreshHistory(context.Background()))

	snap := m.Snapshot()
	require.NotNil(t, snap.Latest)
	assert.Equal(t, "NVDA", *snap.Latest.StockSymbol)
}
