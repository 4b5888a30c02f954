package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile     string
	historyPath string
	logPrefix   string
	taskName    string
	noProgress  bool
)

var rootCmd = &cobra.Command{
	Use:   "mysql2ch",
	Short: "Stream mysql tables into clickhouse",
	Long: `mysql2ch migrates row oriented mysql tables into clickhouse MergeTree
tables without ever holding a full table in memory. Tables are streamed
through a forward only cursor, bulk inserted in batches and count verified
at the end.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "conf.yaml", "job file")
	rootCmd.PersistentFlags().StringVar(&historyPath, "history-db", "migration_tasks.db", "sqlite task history path")
	rootCmd.PersistentFlags().StringVar(&logPrefix, "log-prefix", "migration", "log file name prefix")
	rootCmd.AddCommand(runCmd, initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
