package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/victorlunam/dbseed/internal/config"
	"github.com/victorlunam/dbseed/internal/database"
	"github.com/victorlunam/dbseed/internal/logging"
	"github.com/victorlunam/dbseed/internal/playground"
	"github.com/victorlunam/dbseed/internal/revisions"
	"github.com/victorlunam/dbseed/internal/seeds"
)

const (
	envPrefix      = "DBSEED"
	configFileName = "dbseed"
)

// app holds what every subcommand needs once the configuration is loaded.
type app struct {
	v        *viper.Viper
	cfg      *config.Config
	db       *database.Database
	store    *revisions.Store
	registry *seeds.Registry
}

func newApp() *app {
	return &app{v: viper.New()}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "dbseed",
		Short:         "Versioned database seeds",
		Long:          "dbseed exports database rows to fixture files and loads them again when their revision changes.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.SortFlags = false
	flags.StringP("config", "c", "", "config file (default ./dbseed.{json,yaml})")
	flags.String("driver", "", "database driver: sqlite3 or sqlserver")
	flags.String("dsn-path", "", "SQLite database file, or :memory:")
	flags.String("seeds-dir", config.DefaultSeedsDir, "directory holding the fixture files")
	flags.String("meta", "", "revision metadata file (default <seeds-dir>/seed_meta.json)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.Bool("playground", false, "register the example_preset demo seed")

	root.AddCommand(
		a.syncCmd(),
		a.exportCmd(),
		a.loadCmd(),
		a.listCmd(),
		a.statusCmd(),
		a.historyCmd(),
		a.playgroundCmd(),
	)
	return root
}

// setup loads the configuration, connects to the database and fills the registry.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logging.Setup(cmd.ErrOrStderr(), logging.Options{Level: cfg.LogLevel})
	slog.Debug("config", "file", a.v.ConfigFileUsed(), "driver", cfg.Database.Driver, "seeds_dir", cfg.SeedsDir)

	db, err := database.Connect(cmd.Context(), cfg.Database)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	a.db = db

	a.store = revisions.NewStore(db)
	if err := a.store.Init(cmd.Context()); err != nil {
		return err
	}

	a.registry = seeds.NewRegistry()
	if cfg.Playground {
		if err := playground.Register(a.registry); err != nil {
			return err
		}
	}
	return seeds.RegisterConfigured(a.registry, cfg.Seeders)
}

func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := a.v

	// config path
	if cmd.Flag("config").Changed {
		configFilePath, _ := cmd.Flags().GetString("config")
		v.SetConfigFile(configFilePath)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(configFileName)
	}

	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		var notFound viper.ConfigFileNotFoundError
		if !enoent && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
	}

	// Bind flags to viper
	v.BindPFlag("database.driver", cmd.Flag("driver"))
	v.BindPFlag("database.path", cmd.Flag("dsn-path"))
	v.BindPFlag("seeds_dir", cmd.Flag("seeds-dir"))
	v.BindPFlag("meta_file", cmd.Flag("meta"))
	v.BindPFlag("log_level", cmd.Flag("log-level"))
	v.BindPFlag("playground", cmd.Flag("playground"))

	// DBSEED_DATABASE_PASSWORD and friends
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{"database.server", "database.port", "database.user", "database.password", "database.database"} {
		v.BindEnv(key)
	}

	var cfg config.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

func (a *app) close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		slog.Error("close database", "error", err)
	}
}
