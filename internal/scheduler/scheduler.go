package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"SignalFeed/internal/model"
	"SignalFeed/internal/notifier"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// ErrBusy is returned when a recommendation run is already in progress.
var ErrBusy = errors.New("a recommendation run is already in progress")

// ErrNoMonitor is returned when alerts are requested without a monitor.
var ErrNoMonitor = errors.New("alert monitor not configured")

const sendRetries = 3

// Runner produces the daily recommendations for a date.
type Runner interface {
	RunForDate(ctx context.Context, date time.Time) (*model.RunSummary, error)
}

// Evaluator runs one alert pass.
type Evaluator interface {
	Evaluate(ctx context.Context) ([]model.Alert, error)
}

// AlertObserver is told about every alert pass, e.g. for metrics.
type AlertObserver interface {
	RecordAlerts(alerts []model.Alert)
}

// Scheduler manages the cron jobs and chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Monitor  Evaluator
	Notifier notifier.Notifier
	Observer AlertObserver
	Ctx      context.Context

	loc     *time.Location
	log     zerolog.Logger
	now     func() time.Time
	running atomic.Bool

	mu       sync.Mutex
	notified map[string]string // symbol|type -> date last sent
}

// NewScheduler creates a Scheduler. notify may be nil to disable messages.
func NewScheduler(ctx context.Context, runner Runner, monitor Evaluator, notify notifier.Notifier, loc *time.Location, log zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	lg := log.With().Str("component", "scheduler").Logger()
	cronLog := cron.PrintfLogger(&lg)
	return &Scheduler{
		Cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		Runner:   runner,
		Monitor:  monitor,
		Notifier: notify,
		Ctx:      ctx,
		loc:      loc,
		log:      lg,
		now:      time.Now,
		notified: make(map[string]string),
	}
}

// RegisterAll registers the recommendations and alerts jobs.
func (s *Scheduler) RegisterAll(recommendationsCron, alertsCron string) error {
	if _, err := s.Cron.AddFunc(recommendationsCron, s.recommendationsTask); err != nil {
		return fmt.Errorf("register recommendations task: %w", err)
	}
	if s.Monitor != nil {
		if _, err := s.Cron.AddFunc(alertsCron, s.alertsTask); err != nil {
			return fmt.Errorf("register alerts task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

// Today returns the current date in the scheduler timezone.
func (s *Scheduler) Today() time.Time {
	n := s.now().In(s.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC)
}

// RunForDate runs recommendations for date unless a run is already in
// progress, and reports the outcome to the chat.
func (s *Scheduler) RunForDate(ctx context.Context, date time.Time) (*model.RunSummary, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer s.running.Store(false)

	summary, err := s.Runner.RunForDate(ctx, date)
	if err != nil {
		s.trySend(notifier.FormatRunError(model.FormatDate(date), err))
		return nil, err
	}
	s.trySend(notifier.FormatRunSummary(summary))
	return summary, nil
}

// EvaluateAlerts runs one alert pass without sending anything.
func (s *Scheduler) EvaluateAlerts(ctx context.Context) ([]model.Alert, error) {
	if s.Monitor == nil {
		return nil, ErrNoMonitor
	}
	alerts, err := s.Monitor.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	if s.Observer != nil {
		s.Observer.RecordAlerts(alerts)
	}
	return alerts, nil
}

// unsent filters out alerts already delivered for the same symbol and type today.
func (s *Scheduler) unsent(alerts []model.Alert) []model.Alert {
	today := model.FormatDate(s.Today())

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Alert
	for _, a := range alerts {
		key := a.Symbol + "|" + string(a.Type)
		if s.notified[key] == today {
			continue
		}
		s.notified[key] = today
		out = append(out, a)
	}
	return out
}

func (s *Scheduler) recommendationsTask() {
	date := s.Today()
	s.log.Info().Str("date", model.FormatDate(date)).Msg("running recommendations task")
	if _, err := s.RunForDate(s.Ctx, date); err != nil {
		s.log.Error().Err(err).Msg("recommendations task failed")
	}
}

func (s *Scheduler) alertsTask() {
	alerts, err := s.EvaluateAlerts(s.Ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("alerts task failed")
		return
	}
	fresh := s.unsent(alerts)
	if len(fresh) > 0 {
		s.trySend(notifier.FormatAlertDigest(fresh, s.now().In(s.loc)))
	}
	s.log.Info().Int("alerts", len(alerts)).Int("new", len(fresh)).Msg("alerts task complete")
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.FormatHelp()
	}
	// Group chats address commands as /run@BotName.
	name, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")

	switch name {
	case "/run":
		if _, err := s.RunForDate(ctx, s.Today()); errors.Is(err, ErrBusy) {
			return "⏳ " + ErrBusy.Error()
		}
		// The outcome has already been sent.
		return ""
	case "/alerts":
		alerts, err := s.EvaluateAlerts(ctx)
		if err != nil {
			return notifier.FormatRunError(model.FormatDate(s.Today()), err)
		}
		if len(alerts) == 0 {
			return "✅ No alerts"
		}
		return notifier.FormatAlertDigest(alerts, s.now().In(s.loc))
	default:
		return notifier.FormatHelp()
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil || text == "" {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, sendRetries); err != nil {
		s.log.Error().Err(err).Msg("send notification failed")
	}
}
