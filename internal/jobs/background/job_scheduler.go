package background

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"subsync/internal/config"
	"subsync/internal/jobs"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	SyncJobName   = "subscription-sync"
	ReportJobName = "subscription-report"
)

// JobScheduler runs the periodic sync and report jobs. With a distributed
// locker set, each run happens on a single instance.
type JobScheduler struct {
	scheduler gocron.Scheduler
	syncJob   *jobs.SubscriptionSyncJob
	reportJob *jobs.SubscriptionReportJob
	syncCfg   config.SyncConfig
	reportCfg config.ReportConfig
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	jobJobs   map[string]gocron.Job
	mu        sync.RWMutex
}

// NewJobScheduler creates the scheduler and registers the enabled jobs. A nil
// locker disables cross-instance locking.
func NewJobScheduler(cfg *config.Config, locker gocron.Locker, syncJob *jobs.SubscriptionSyncJob,
	reportJob *jobs.SubscriptionReportJob, logger *zap.Logger) (*JobScheduler, error) {

	logger = logger.Named("scheduler")
	opts := []gocron.SchedulerOption{
		gocron.WithLocation(time.UTC),
		gocron.WithLogger(gocronLogger{logger.Sugar()}),
		gocron.WithGlobalJobOptions(gocron.WithEventListeners(
			gocron.AfterJobRunsWithError(func(jobID uuid.UUID, jobName string, err error) {
				logger.Error("job run failed", zap.String("job", jobName), zap.String("job_id", jobID.String()), zap.Error(err))
			}),
		)),
	}
	if locker != nil {
		opts = append(opts, gocron.WithDistributedLocker(locker))
	}

	scheduler, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	js := &JobScheduler{
		scheduler: scheduler,
		syncJob:   syncJob,
		reportJob: reportJob,
		syncCfg:   cfg.Sync,
		reportCfg: cfg.Report,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		jobJobs:   make(map[string]gocron.Job),
	}

	if err := js.registerJobs(); err != nil {
		cancel()
		_ = scheduler.Shutdown()
		return nil, err
	}
	return js, nil
}

func (js *JobScheduler) Start() {
	js.logger.Info("starting background job scheduler", zap.Strings("jobs", js.jobNames()))
	js.scheduler.Start()
}

// Stop cancels running jobs and waits for them to return.
func (js *JobScheduler) Stop() error {
	js.logger.Info("stopping background job scheduler")
	js.cancel()
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) registerJobs() error {
	js.mu.Lock()
	defer js.mu.Unlock()

	if js.syncCfg.Enabled && js.syncJob != nil {
		job, err := js.scheduler.NewJob(
			gocron.DurationJob(js.syncCfg.Interval),
			gocron.NewTask(js.runSync, js.ctx),
			gocron.WithName(SyncJobName),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("failed to create sync job: %w", err)
		}
		js.jobJobs[SyncJobName] = job
	}

	if js.reportCfg.Enabled && js.reportJob != nil {
		job, err := js.scheduler.NewJob(
			gocron.CronJob(js.reportCfg.Cron, false),
			gocron.NewTask(js.reportJob.RunScheduled, js.ctx),
			gocron.WithName(ReportJobName),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("failed to create report job: %w", err)
		}
		js.jobJobs[ReportJobName] = job
	}

	js.logger.Info("registered background jobs", zap.Int("count", len(js.jobJobs)))
	return nil
}

func (js *JobScheduler) runSync(ctx context.Context) error {
	_, err := js.syncJob.Run(ctx, jobs.SyncOptions{BatchSize: js.syncCfg.BatchSize})
	return err
}

func (js *JobScheduler) jobNames() []string {
	js.mu.RLock()
	defer js.mu.RUnlock()
	names := make([]string, 0, len(js.jobJobs))
	for name := range js.jobJobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// JobStatus describes one scheduled job for the health endpoint.
type JobStatus struct {
	Name    string     `json:"name"`
	LastRun *time.Time `json:"last_run,omitempty"`
	NextRun *time.Time `json:"next_run,omitempty"`
}

func (js *JobScheduler) GetJobStatus() []JobStatus {
	js.mu.RLock()
	defer js.mu.RUnlock()

	status := make([]JobStatus, 0, len(js.jobJobs))
	for name, job := range js.jobJobs {
		s := JobStatus{Name: name}
		if last, err := job.LastRun(); err == nil && !last.IsZero() {
			s.LastRun = &last
		}
		if next, err := job.NextRun(); err == nil && !next.IsZero() {
			s.NextRun = &next
		}
		status = append(status, s)
	}
	sort.Slice(status, func(i, j int) bool { return status[i].Name < status[j].Name })
	return status
}

type gocronLogger struct {
	log *zap.SugaredLogger
}

func (l gocronLogger) Debug(msg string, args ...any) { l.log.Debugw(msg, args...) }
func (l gocronLogger) Info(msg string, args ...any)  { l.log.Infow(msg, args...) }
func (l gocronLogger) Warn(msg string, args ...any)  { l.log.Warnw(msg, args...) }
func (l gocronLogger) Error(msg string, args ...any) { l.log.Errorw(msg, args...) }
