package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kasw/orgtrace"
	"github.com/kasw/orgtrace/internal/cli"
)

var (
	// Global state set during PersistentPreRunE
	cfg        *cli.Config
	configPath string

	// Persistent flags
	cfgFile string
	verbose int
	quiet   bool
)

var rootCmd = &cobra.Command{
	Use:   "orgtrace",
	Short: "Temporal organizational graph",
	Long: `orgtrace - Temporal organizational graph

Orgtrace tracks people and organizational units over time: who served
where and when, who overlapped with whom, and how the unit hierarchy
changed.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for help/completion/version commands
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		var err error
		cfg, configPath, err = cli.LoadConfig(cfgFile)
		if err != nil {
			return cli.ConfigError("loading configuration", err)
		}

		return nil
	},
	SilenceUsage:  true, // Don't show usage on errors
	SilenceErrors: true, // We handle errors ourselves
}

// Command group IDs
const (
	groupData    = "data"
	groupQuery   = "query"
	groupUtility = "utility"
)

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: auto-discover orgtrace.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbose, "verbose", "v", "increase verbosity (can be repeated)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-error output")

	// Define command groups
	rootCmd.AddGroup(
		&cobra.Group{ID: groupData, Title: "Data:"},
		&cobra.Group{ID: groupQuery, Title: "Query:"},
		&cobra.Group{ID: groupUtility, Title: "Utility:"},
	)

	// Data commands
	migrateCmd.GroupID = groupData
	seedCmd.GroupID = groupData
	ingestCmd.GroupID = groupData
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(ingestCmd)

	// Query commands
	colleaguesCmd.GroupID = groupQuery
	pathCmd.GroupID = groupQuery
	timelineCmd.GroupID = groupQuery
	statsCmd.GroupID = groupQuery
	rootCmd.AddCommand(colleaguesCmd)
	rootCmd.AddCommand(pathCmd)
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(statsCmd)

	// Utility commands
	doctorCmd.GroupID = groupUtility
	versionCmd.GroupID = groupUtility
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		cli.ExitWithError(err)
	}
}

// newLogger builds a console logger from the verbosity flags.
func newLogger() *zap.Logger {
	if quiet {
		return zap.NewNop()
	}
	level := zapcore.WarnLevel
	switch {
	case verbose >= 2:
		level = zapcore.DebugLevel
	case verbose == 1:
		level = zapcore.InfoLevel
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	log, err := zcfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// openHandle connects the facade using the loaded configuration.
func openHandle(ctx context.Context, log *zap.Logger) (*orgtrace.Handle, error) {
	h, err := orgtrace.Open(ctx, orgtrace.Config{
		Store:             cfg.StoreConfig(),
		TrigramThreshold:  cfg.Resolver.TrigramThreshold,
		PrimaryThreshold:  cfg.Resolver.PrimaryThreshold,
		PairwiseThreshold: cfg.Resolver.PairwiseThreshold,
		MaxSimilarNames:   cfg.Resolver.MaxSimilarNames,
		MinStrongLinks:    cfg.Resolver.MinStrongLinks,
		DisablePairwise:   cfg.Resolver.DisablePairwise,
		CohesionThreshold: cfg.Ingest.CohesionThreshold,
		Logger:            log,
	})
	if err != nil {
		return nil, cli.DBConnectError("connecting to database", err)
	}
	return h, nil
}
