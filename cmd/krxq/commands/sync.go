package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/krxquery/internal/dates"
	"github.com/wonny/krxquery/internal/scheduler"
	"github.com/wonny/krxquery/internal/store"
	"github.com/wonny/krxquery/internal/syncjob"
	"github.com/wonny/krxquery/pkg/database"
)

var (
	syncConfigPath string
	syncOnce       bool
	syncRetries    int
	syncRetryDelay time.Duration
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync [job_name...]",
	Short: "정기 데이터 수집",
	Long: `sync.yaml 에 정의된 수집 작업을 스케줄러로 실행합니다.
결과는 PostgreSQL(DATABASE_URL)에 저장됩니다.

--once 는 스케줄을 무시하고 작업을 즉시 한 번 실행합니다.
작업 이름을 주면 해당 작업만 실행합니다.

Example:
  go run ./cmd/krxq sync
  go run ./cmd/krxq sync --once daily_ohlcv`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().StringVar(&syncConfigPath, "config", "", "sync config file (default $SYNC_CONFIG or sync.yaml)")
	syncCmd.Flags().BoolVar(&syncOnce, "once", false, "run the jobs immediately and exit")
	syncCmd.Flags().IntVar(&syncRetries, "retries", 0, "retries for a failed run")
	syncCmd.Flags().DurationVar(&syncRetryDelay, "retry-delay", time.Minute, "delay between retries")
}

// buildScheduler loads the sync config and registers its jobs. The
// returned DB must be closed by the caller.
func buildScheduler(ctx context.Context, a *app) (*scheduler.Scheduler, *database.DB, error) {
	path := syncConfigPath
	if path == "" {
		path = a.cfg.Sync.ConfigPath
	}
	syncCfg, err := syncjob.Load(path)
	if err != nil {
		return nil, nil, err
	}

	db, err := a.openDB(ctx)
	if err != nil {
		return nil, nil, err
	}

	repo := store.NewRepository(db.Pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	jobs, err := syncjob.Build(syncCfg, a.service, repo, dates.SystemClock{}, a.log)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	sched := scheduler.New(a.log, nil).WithRetry(syncRetries, syncRetryDelay)
	for _, job := range jobs {
		if err := sched.AddJob(job); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("add job %s: %w", job.Name(), err)
		}
	}
	return sched, db, nil
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, db, err := buildScheduler(ctx, a)
	if err != nil {
		return err
	}
	defer db.Close()

	if syncOnce {
		return runJobsOnce(ctx, sched, args)
	}
	if len(args) > 0 {
		return errors.New("job names are only accepted with --once")
	}

	sched.Start()
	printJobStats(sched)
	PrintInfo("Press Ctrl+C to stop")

	<-ctx.Done()
	sched.Stop()
	printJobStats(sched)
	return nil
}

func runJobsOnce(ctx context.Context, sched *scheduler.Scheduler, names []string) error {
	if len(names) == 0 {
		names = sched.GetAllJobs()
	}

	var failed int
	for _, name := range names {
		result, err := sched.RunNow(ctx, name)
		if err != nil {
			failed++
			PrintWarning(err.Error())
			continue
		}
		PrintSuccess(fmt.Sprintf("%s completed in %.2fs", name, result.Duration.Seconds()))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(names))
	}
	return nil
}

func printJobStats(sched *scheduler.Scheduler) {
	stats := sched.GetJobStats()

	rows := make([][]string, 0, len(stats))
	for _, name := range sched.GetAllJobs() {
		s := stats[name]
		next := "-"
		if s.NextRun != nil {
			next = s.NextRun.Format(time.RFC3339)
		}
		rows = append(rows, []string{name, s.Schedule, fmt.Sprint(s.TotalRuns), fmt.Sprintf("%.0f%%", s.SuccessRate*100), next})
	}
	_ = printGrid([]string{"job", "schedule", "runs", "success", "next_run"}, rows)
}
