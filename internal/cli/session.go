package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rahulclufox/EpubViewerKit/internal/bookmark"
	"github.com/rahulclufox/EpubViewerKit/internal/config"
	"github.com/rahulclufox/EpubViewerKit/internal/logger"
	"github.com/rahulclufox/EpubViewerKit/internal/service"
	"github.com/rahulclufox/EpubViewerKit/internal/store"
)

// memoryPath opens a throwaway database that lives as long as the command.
const memoryPath = ":memory:"

// session is the open store and façade for one command invocation.
type session struct {
	cfg   *config.Config
	log   logger.Logger
	store *store.Store
	svc   *service.Service
	out   *OutputFormatter

	// failures collects what the façade reports instead of returning.
	failures []string
}

// openSession loads config, builds the logger and opens the store.
// Callers must defer close.
func openSession(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	overrides := map[string]any{}
	if opts.Database != "" {
		overrides[config.KeyDatabasePath] = opts.Database
	}
	if opts.Verbose {
		overrides[config.KeyLogLevel] = "debug"
	}

	cfg, err := config.Load(config.Options{File: opts.ConfigFile, Overrides: overrides})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}

	log, err := logger.New(cfg.LogLevel, cfg.PrettyLog)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to build logger", err)
	}

	if cfg.DatabasePath != memoryPath {
		if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to create database directory", err)
		}
	}

	log.Debug("opening database", logger.String("path", cfg.DatabasePath))
	st, err := store.Open(store.Config{Path: cfg.DatabasePath})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	s := &session{
		cfg:   cfg,
		log:   log,
		store: st,
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
	}
	s.svc = service.New(st,
		service.WithLogger(log),
		service.WithErrorHandler(s.record),
	)
	return s, nil
}

func (s *session) record(op string, b bookmark.Bookmark, err error) {
	s.failures = append(s.failures, fmt.Sprintf("%s %s: %v", op, b.ID, err))
}

// takeFailures returns and clears the reported failures.
func (s *session) takeFailures() []string {
	f := s.failures
	s.failures = nil
	return f
}

func (s *session) close() {
	if err := s.store.Close(); err != nil {
		s.log.Error("error closing database", logger.Error(err))
	}
	// Sync on a terminal stderr returns EINVAL; nothing to do about it.
	_ = s.log.Sync()
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
