package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/diegoclair/shift-notify-bot/internal/database"
	"github.com/diegoclair/shift-notify-bot/internal/delivery"
	"github.com/diegoclair/shift-notify-bot/internal/domain/service"
	"github.com/diegoclair/shift-notify-bot/internal/logger"
	"github.com/diegoclair/shift-notify-bot/migrator/sqlite"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type globalOptions struct {
	dbPath   string
	timezone string
	logLevel string
}

func (o *globalOptions) location() (*time.Location, error) {
	loc, err := time.LoadLocation(o.timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", o.timezone, err)
	}
	return loc, nil
}

func (o *globalOptions) logger() zerolog.Logger {
	return logger.New(o.logLevel, "console")
}

// openService opens the job store and builds the shift service on top of it.
// The scheduler is never started, the bot process owns delivery.
func (o *globalOptions) openService() (*service.Instance, func(), error) {
	loc, err := o.location()
	if err != nil {
		return nil, nil, err
	}

	db, err := database.New(o.dbPath)
	if err != nil {
		return nil, nil, err
	}

	if err := sqlite.Migrate(db.DB()); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log := o.logger()
	svc := service.NewInstance(database.NewInstance(db), delivery.NewLog(log), log, service.Options{Location: loc})

	return svc, func() { db.Close() }, nil
}

// NewRootCmd returns the shiftctl command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "shiftctl",
		Short: "Inspect and manage scheduled shift alarms",
		Long: `shiftctl previews shift declarations and manages the job store
used by the shift notification bot.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", envOr("DATABASE_PATH", "./shifts.db"), "path to the SQLite job store")
	rootCmd.PersistentFlags().StringVar(&opts.timezone, "tz", envOr("TIMEZONE", "UTC"), "timezone shift times are expressed in")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", envOr("LOG_LEVEL", "warn"), "log level")

	rootCmd.AddCommand(PreviewCmd(opts))
	rootCmd.AddCommand(JobsCmd(opts))
	rootCmd.AddCommand(ClearCmd(opts))

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
