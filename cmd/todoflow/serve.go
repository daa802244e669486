package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/thuale/todoflow/internal/api"
	"github.com/thuale/todoflow/internal/config"
	"github.com/thuale/todoflow/internal/credential"
	"github.com/thuale/todoflow/internal/reminder"
	"github.com/thuale/todoflow/internal/store"
	"github.com/thuale/todoflow/internal/sync"
	"github.com/thuale/todoflow/internal/todos"
	"github.com/thuale/todoflow/internal/views"
)

func serveCmd(configPath *string) *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the todoflow API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(*configPath)
			if err != nil {
				return err
			}
			if listenAddr != "" {
				cfg.Server.ListenAddr = listenAddr
			}

			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			builder := views.NewBuilder(st)
			if cfg.Views.UpcomingDays > 0 {
				builder.UpcomingDays = cfg.Views.UpcomingDays
			}
			if cfg.Views.OverdueLookback > 0 {
				builder.OverdueLookback = cfg.Views.OverdueLookback
			}

			if cfg.Reminders.Enabled {
				interval := time.Duration(cfg.Reminders.ScanIntervalSec) * time.Second
				dispatcher := reminder.NewDispatcher(st, interval)
				dispatcher.Start()
				defer dispatcher.Stop()
			}

			if cfg.Sync.Enabled {
				poller, err := startSync(cfg, st)
				if err != nil {
					return err
				}
				defer poller.Stop()
			}

			server := api.NewServer(st, builder, todos.NewService(st), cfg.Server.Token)
			log.Printf("todoflow listening on %s", cfg.Server.ListenAddr)
			return server.Run(cfg.Server.ListenAddr)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "", "listen address (overrides config)")

	return cmd
}

// openStore opens the configured persistence backend. The file backend
// also watches its document for external writes.
func openStore(cfg *config.AppConfig) (store.Store, error) {
	path := cfg.Storage.Path
	if path == "" {
		dir := config.DefaultDataDir()
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
		}
		switch cfg.Storage.Backend {
		case config.BackendFile:
			path = filepath.Join(dir, "todoflow.json")
		default:
			path = filepath.Join(dir, "todoflow.db")
		}
	}

	switch cfg.Storage.Backend {
	case config.BackendFile:
		fs, err := store.NewFileStore(path)
		if err != nil {
			return nil, err
		}
		if err := fs.Watch(); err != nil {
			return nil, err
		}
		return fs, nil
	default:
		return store.NewSQLiteStore(path)
	}
}

// startSync builds the remote client with the keyring token and starts
// the poller. Sync results are drained to the log.
func startSync(cfg *config.AppConfig, st store.Store) (*sync.Poller, error) {
	if cfg.Sync.RemoteURL == "" {
		return nil, fmt.Errorf("sync enabled but sync.remote_url is empty")
	}

	token, err := credential.Get(credential.KeySyncToken)
	if err != nil {
		// An unset token is fine for open remotes; keyring errors for
		// missing keys land here too.
		token = ""
	}

	client := sync.NewClient(cfg.Sync.RemoteURL, token)
	interval := time.Duration(cfg.Sync.PollIntervalSec) * time.Second
	poller := sync.NewPoller(st, client, interval)
	poller.Start()

	go func() {
		for r := range poller.Results() {
			switch {
			case r.AuthExpired:
				log.Printf("sync: token rejected; run 'todoflow token set' to update it")
			case r.Error != nil:
				log.Printf("sync: %v", r.Error)
			case r.NewTodoCount > 0 || r.CompletionCount > 0:
				log.Printf("sync: %d new todos, %d updated, %d completions",
					r.NewTodoCount, r.UpdatedTodoCount, r.CompletionCount)
			}
		}
	}()

	return poller, nil
}
