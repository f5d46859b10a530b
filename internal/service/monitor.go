package service

import (
	"context"
	"errors"
	"fmt"
	"stockwatch/config"
	"stockwatch/internal/dto"
	"stockwatch/internal/repository"
	"stockwatch/pkg/cache"
	"stockwatch/pkg/common"
	"stockwatch/pkg/logger"
	"stockwatch/pkg/utils"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrBusy rejects a mutating action while another is in flight.
	ErrBusy = errors.New("another action is already in progress")
	// ErrScheduleNotLoaded rejects a toggle before the first schedule fetch
	// has succeeded, because the direction of the toggle is unknown.
	ErrScheduleNotLoaded = errors.New("schedule has not been loaded yet")
	// ErrStopped rejects actions after teardown.
	ErrStopped = errors.New("monitor has been stopped")
)

// Monitor owns the reconciled view of the remote schedule and its
// execution history. It polls both sources on a fixed interval, serializes
// user-triggered mutations, and never trusts its own assumptions over the
// server: every mutation is followed by a re-read instead of a local flip.
type Monitor struct {
	cfg           *config.Config
	log           *logger.Logger
	client        repository.SchedulerClient
	inmemoryCache cache.Cache
	notifier      *Notifier
	countdown     *Countdown

	ctx    context.Context
	cancel context.CancelFunc

	mu              sync.Mutex
	schedule        *dto.Schedule
	history         []dto.AlertHistoryItem
	latest          *dto.AlertResult
	lastError       string
	busy            bool
	loadingSchedule bool
	loadingHistory  bool
	stopped         bool

	// Per-source fetch sequence numbers. A response whose sequence is not
	// the latest issued for its source is discarded, so a slow stale read
	// cannot overwrite a fresher one.
	scheduleSeq uint64
	historySeq  uint64

	lastNotifiedFailure uint
}

func NewMonitor(
	cfg *config.Config,
	log *logger.Logger,
	client repository.SchedulerClient,
	inmemoryCache cache.Cache,
	notifier *Notifier,
) *Monitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		cfg:           cfg,
		log:           log,
		client:        client,
		inmemoryCache: inmemoryCache,
		notifier:      notifier,
		countdown:     NewCountdown(log),
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start performs the initial fetch of both sources and begins polling.
// It returns once the initial fetch has completed; polling continues in
// the background until Stop or until parent is cancelled.
func (m *Monitor) Start(parent context.Context) {
	utils.GoSafe(func() {
		select {
		case <-parent.Done():
			m.Stop()
		case <-m.ctx.Done():
		}
	})

	g, ctx := errgroup.WithContext(m.ctx)
	g.Go(func() error { m.RefreshSchedule(ctx); return nil })
	g.Go(func() error { m.RefreshHistory(ctx); return nil })
	_ = g.Wait()

	utils.GoSafe(func() { m.poll() })
}

func (m *Monitor) poll() {
	ticker := time.NewTicker(m.cfg.Monitor.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if !utils.ShouldContinue(m.ctx, m.log) {
				return
			}
			m.RefreshSchedule(m.ctx)
			m.RefreshHistory(m.ctx)
		}
	}
}

// Stop tears the monitor down: polling stops, the countdown ticker is
// released, and any still-in-flight fetch results are discarded.
func (m *Monitor) Stop() {
	m.cancel()
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
	m.countdown.Stop()
}

// RefreshSchedule fetches the schedule and replaces the cached copy
// wholesale. On failure the previous copy stays: stale-but-available
// beats blank.
func (m *Monitor) RefreshSchedule(ctx context.Context) error {
	seq, ok := m.beginFetch(&m.scheduleSeq, &m.loadingSchedule)
	if !ok {
		return ErrStopped
	}

	schedule, err := m.client.GetSchedule(ctx, m.cfg.Monitor.ScheduleID)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadingSchedule = false

	if m.stopped || seq != m.scheduleSeq {
		return nil
	}

	if err != nil {
		m.log.ErrorContextWithAlert(ctx, "Failed to refresh schedule",
			logger.ErrorField(err),
			logger.IntField("schedule_id", int(m.cfg.Monitor.ScheduleID)),
		)
		m.lastError = userFacingError(err, "failed to load schedule")
		return err
	}

	m.schedule = schedule
	m.syncCountdownLocked()
	return nil
}

// RefreshHistory fetches the recent execution logs, decodes each payload,
// and atomically republishes the history and the derived latest result.
// Failures leave the previous view untouched and are silent by default;
// a polling read that flaps should not flap the surface with it.
func (m *Monitor) RefreshHistory(ctx context.Context) error {
	seq, ok := m.beginFetch(&m.historySeq, &m.loadingHistory)
	if !ok {
		return ErrStopped
	}

	records, err := m.client.GetScheduleLogs(ctx, m.cfg.Monitor.ScheduleID, m.cfg.Monitor.HistoryLimit)

	var items []dto.AlertHistoryItem
	if err == nil {
		items = make([]dto.AlertHistoryItem, 0, len(records))
		for _, rec := range records {
			items = append(items, dto.AlertHistoryItem{
				ID:           rec.ID,
				ExecutedAt:   rec.ExecutedAt.Format(time.RFC3339),
				Success:      rec.Success,
				ErrorMessage: rec.ErrorMessage,
				Result:       m.decodePayload(rec),
			})
		}
	}

	m.mu.Lock()
	m.loadingHistory = false

	if m.stopped || seq != m.historySeq {
		m.mu.Unlock()
		return nil
	}

	if err != nil {
		m.log.WarnContext(ctx, "Failed to refresh execution history",
			logger.ErrorField(err),
			logger.IntField("schedule_id", int(m.cfg.Monitor.ScheduleID)),
		)
		if m.cfg.Monitor.SurfaceHistoryErrors {
			m.lastError = userFacingError(err, "failed to load execution history")
		}
		m.mu.Unlock()
		return err
	}

	m.history = items
	m.latest = latestDecodedResult(items)

	var failed *dto.AlertHistoryItem
	if len(items) > 0 && !items[0].Success && items[0].ID != m.lastNotifiedFailure {
		m.lastNotifiedFailure = items[0].ID
		failed = &items[0]
	}
	m.mu.Unlock()

	if failed != nil {
		item := *failed
		utils.GoSafe(func() { m.notifier.NotifyFailure(m.ctx, item) })
	}
	return nil
}

// Toggle pauses an active schedule or resumes a paused one, then re-reads
// the schedule so the surface only ever shows server-confirmed state.
func (m *Monitor) Toggle(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}
	if m.busy {
		m.mu.Unlock()
		return ErrBusy
	}
	if m.schedule == nil {
		m.mu.Unlock()
		return ErrScheduleNotLoaded
	}
	m.busy = true
	m.lastError = ""
	active := m.schedule.IsActive
	m.mu.Unlock()

	defer m.clearBusy()

	var err error
	if active {
		err = m.client.PauseSchedule(ctx, m.cfg.Monitor.ScheduleID)
	} else {
		err = m.client.ResumeSchedule(ctx, m.cfg.Monitor.ScheduleID)
	}
	if err != nil {
		m.log.ErrorContextWithAlert(ctx, "Failed to toggle schedule",
			logger.ErrorField(err),
			logger.Field("was_active", active),
		)
		m.setError(userFacingError(err, "failed to toggle schedule"))
		return err
	}

	return m.RefreshSchedule(ctx)
}

// TriggerNow asks the backend to run the job immediately. Trigger
// completion does not imply the log is queryable yet, so the resync is
// deferred; the busy flag only brackets the trigger call itself.
func (m *Monitor) TriggerNow(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}
	if m.busy {
		m.mu.Unlock()
		return ErrBusy
	}
	m.busy = true
	m.lastError = ""
	m.mu.Unlock()

	err := m.client.TriggerScheduleNow(ctx, m.cfg.Monitor.ScheduleID)
	m.clearBusy()
	if err != nil {
		m.log.ErrorContextWithAlert(ctx, "Failed to trigger schedule", logger.ErrorField(err))
		m.setError(userFacingError(err, "failed to trigger job"))
		return err
	}

	utils.GoSafe(func() { m.notifier.NotifyTriggered(m.ctx) })

	utils.GoSafe(func() {
		select {
		case <-m.ctx.Done():
			return
		case <-time.After(m.cfg.Monitor.TriggerResyncDelay):
		}
		m.RefreshHistory(m.ctx)
		m.RefreshSchedule(m.ctx)
	})
	return nil
}

// Refresh runs both reads immediately without touching the poll phase.
func (m *Monitor) Refresh(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { m.RefreshSchedule(gctx); return nil })
	g.Go(func() error { m.RefreshHistory(gctx); return nil })
	_ = g.Wait()
}

// Snapshot returns a copy of the current view for presentation consumers.
func (m *Monitor) Snapshot() dto.MonitorSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := dto.MonitorSnapshot{
		Schedule:        m.schedule,
		Latest:          m.latest,
		Error:           m.lastError,
		Busy:            m.busy,
		LoadingSchedule: m.loadingSchedule,
		LoadingHistory:  m.loadingHistory,
		History:         make([]dto.AlertHistoryItem, len(m.history)),
		LastRunAt:       utils.FormatTime(nil),
		NextRunIn:       countdownNotScheduled,
	}
	copy(snap.History, m.history)

	if m.latest != nil {
		snap.LatestPrice = utils.FormatCurrency(m.latest.CurrentPrice)
		snap.LatestChangePct = utils.FormatPercentage(m.latest.DailyChangePercentage)
		snap.LatestAt = utils.FormatTimestamp(m.latest.Timestamp)
	} else {
		snap.LatestPrice = utils.FormatCurrency(nil)
		snap.LatestChangePct = utils.FormatPercentage(nil)
		snap.LatestAt = utils.FormatTimestamp(nil)
	}

	if m.schedule != nil {
		snap.CronDescription = utils.CronToHuman(m.schedule.CronExpression)
		snap.LastRunAt = utils.FormatTime(m.schedule.LastRunAt)
		if m.schedule.IsActive {
			snap.NextRunIn = m.countdown.Value()
		} else {
			// a paused schedule's next_run_time is meaningless, never
			// show a countdown for it
			snap.NextRunIn = "Paused"
		}
	}

	return snap
}

func (m *Monitor) beginFetch(seq *uint64, loading *bool) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return 0, false
	}
	*seq++
	*loading = true
	return *seq, true
}

func (m *Monitor) setError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}
	m.lastError = msg
}

func (m *Monitor) clearBusy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.busy = false
}

// syncCountdownLocked points the countdown at the schedule's next run.
// When the backend omits next_run_time for an active schedule, it is
// derived from the cron expression instead.
func (m *Monitor) syncCountdownLocked() {
	if m.schedule == nil || !m.schedule.IsActive {
		m.countdown.SetTarget(nil)
		return
	}

	target := m.schedule.NextRunTime
	if target == nil && m.schedule.CronExpression != "" {
		if next, err := utils.NextCronRun(m.schedule.CronExpression, time.Now()); err == nil {
			target = &next
		}
	}
	m.countdown.SetTarget(target)
}

// decodePayload memoizes payload decoding per log record; records are
// immutable so a cached decode never goes stale.
func (m *Monitor) decodePayload(rec dto.ExecutionLogRecord) *dto.AlertResult {
	key := fmt.Sprintf(common.KEY_ALERT_PAYLOAD, rec.ID)
	if cached, found := m.inmemoryCache.Get(key); found {
		if result, ok := cached.(*dto.AlertResult); ok {
			return result
		}
	}

	result := dto.DecodeAlertPayload(rec)
	m.inmemoryCache.Set(key, result, m.cfg.Cache.DefaultExpiration)
	return result
}

// latestDecodedResult scans newest-first for the first successful run
// with decodable data. That is not necessarily items[0]: a failed newest
// run must not blank the latest known quote.
func latestDecodedResult(items []dto.AlertHistoryItem) *dto.AlertResult {
	for _, item := range items {
		if item.Success && item.Result != nil {
			return item.Result
		}
	}
	return nil
}

func userFacingError(err error, fallback string) string {
	if err == nil || err.Error() == "" {
		return fallback
	}
	return err.Error()
}
