package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/baderkha/mysql2ch/pkg/migrate"
	"github.com/baderkha/mysql2ch/pkg/migrate/config"
	"github.com/baderkha/mysql2ch/pkg/migrate/event"
	"github.com/baderkha/mysql2ch/pkg/migrate/notify"
	"github.com/baderkha/mysql2ch/pkg/migrate/state"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the migration task described by the job file",
	RunE: func(cmd *cobra.Command, args []string) error {
		fs := afero.NewOsFs()

		log, closeLog, err := setupLogging(fs, logPrefix)
		if err != nil {
			return err
		}
		defer closeLog()

		cfg, err := config.Load(fs, cfgFile)
		if err != nil {
			return err
		}
		log.Info().Str("config", cfgFile).Int("tables", len(cfg.Tables)).Msg("configuration loaded")

		mgr, err := state.NewSqliteGormManager(historyPath)
		if err != nil {
			return err
		}
		// a previous run killed mid flight must not stay RUNNING
		mgr.OnShutDownEv()

		snapshot, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("snapshotting config: %w", err)
		}
		if taskName == "" {
			taskName = "migration_" + time.Now().Format("20060102_150405")
		}

		listeners := event.Fanout{
			state.NewListener(mgr, taskName, string(snapshot), log),
			notify.NewFeishu(cfg.Notify, log),
		}
		if !noProgress {
			listeners = append(listeners, newProgressListener(log))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		start := time.Now()
		runner := migrate.NewMysqlToClickhouse(listeners, log)
		res, err := runner.Run(ctx, *cfg)
		if err != nil {
			return err
		}

		took := time.Since(start)
		rowsPerSec := float64(res.TotalRows()) / took.Seconds()
		log.Info().
			Str("status", string(res.Status)).
			Int("succeeded", res.CountByStatus(migrate.StatusSucceeded)).
			Int("failed", res.CountByStatus(migrate.StatusFailed)).
			Int("skipped", res.CountByStatus(migrate.StatusSkipped)).
			Int64("rows", res.TotalRows()).
			Float64("rows_per_sec", rowsPerSec).
			Dur("took", took).
			Msg("run finished")

		if res.Status == migrate.TaskFailed {
			return fmt.Errorf("migration failed: %s", res.FirstError())
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&taskName, "task-name", "", "display name recorded in task history")
	runCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the terminal progress bar")
}

// setupLogging : console plus one timestamped log file per run, same shape
// as the original tool's migration_<ts>.log
func setupLogging(fs afero.Fs, prefix string) (zerolog.Logger, func(), error) {
	name := fmt.Sprintf("%s_%s.log", prefix, time.Now().Format("20060102_150405"))
	f, err := fs.Create(name)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("creating log file %s: %w", name, err)
	}
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.DateTime}
	log := zerolog.New(zerolog.MultiLevelWriter(console, f)).With().Timestamp().Logger()
	return log, func() { f.Close() }, nil
}
