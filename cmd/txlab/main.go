// Package main implements txlab, a small command line companion to the
// transaction harness. It loads the harness configuration, registers the
// configured backends and reports on them.
//
// Usage:
//
//	txlab [-config dir] backends
//	txlab [-config dir] probe [kind...]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/phrazzld/txlab/internal/config"
	"github.com/phrazzld/txlab/internal/platform/logger"
	"github.com/phrazzld/txlab/internal/provider"
	"github.com/phrazzld/txlab/internal/redact"
	"github.com/phrazzld/txlab/internal/txn"
)

// probeTimeout bounds the probe of a single backend.
const probeTimeout = 10 * time.Second

var errUsage = errors.New("usage: txlab [-config dir] backends | probe [kind...]")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		log.Fatalf("txlab: %v", err)
	}
}

// app holds the components shared by every subcommand.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *provider.Registry
	out      io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("txlab", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configDir := fs.String("config", ".", "directory containing txlab.yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errUsage
	}

	a, err := initializeApp(*configDir, stdout, stderr)
	if err != nil {
		return err
	}

	switch cmd := fs.Arg(0); cmd {
	case "backends":
		return a.backends()
	case "probe":
		return a.probe(ctx, fs.Args()[1:])
	default:
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}
}

// initializeApp loads configuration and sets up logging and the registry.
func initializeApp(configDir string, stdout, stderr io.Writer) (*app, error) {
	cfg, err := config.LoadFrom(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.SetupWriter(cfg.Harness, stderr)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Info("harness configuration loaded",
		"log_level", cfg.Harness.LogLevel,
		"default_backend", cfg.Harness.DefaultBackend,
		"lock_policy", cfg.Harness.Policy().String())

	return &app{
		cfg:      cfg,
		logger:   l,
		registry: provider.FromConfig(cfg.Backends),
		out:      stdout,
	}, nil
}

func (a *app) backends() error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tDIALECT\tDRIVER\tSTRATEGIES\tDSN")
	for _, k := range a.registry.Kinds() {
		p, err := a.registry.Lookup(k)
		if err != nil {
			return err
		}
		marker := ""
		if p.Dialect() == a.cfg.Harness.DefaultBackend {
			marker = " (default)"
		}
		fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t%s\n",
			k, marker, p.Dialect(), p.DriverName(), strategies(p), redact.DSN(p.DSN()))
	}
	return w.Flush()
}

// probe opens every requested backend and runs one transaction against it.
func (a *app) probe(ctx context.Context, names []string) error {
	kinds := a.registry.Kinds()
	if len(names) > 0 {
		kinds = kinds[:0]
		for _, n := range names {
			k, err := provider.ParseKind(n)
			if err != nil {
				return err
			}
			kinds = append(kinds, k)
		}
	}

	e := txn.NewExecutor(a.logger, txn.OptionsFromConfig(a.cfg.Harness))
	defer func() {
		if err := e.Close(); err != nil {
			a.logger.Warn("failed to close connection pools", "error", err)
		}
	}()

	var failed []string
	for _, k := range kinds {
		p, err := a.registry.Lookup(k)
		if err != nil {
			return err
		}

		pctx, cancel := context.WithTimeout(ctx, probeTimeout)
		start := time.Now()
		err = e.Do(pctx, p, func(ctx context.Context, s *txn.Session) error {
			_, err := s.Statements().SelectString(ctx, "SELECT 1")
			return err
		})
		cancel()

		if err != nil {
			a.logger.Error("backend probe failed", "kind", k.String(), "error", redact.Error(err))
			fmt.Fprintf(a.out, "%-10s FAIL  %s\n", k, redact.Error(err))
			failed = append(failed, k.String())
			continue
		}
		fmt.Fprintf(a.out, "%-10s OK    %s [%s] in %s\n",
			k, p.Dialect(), strategies(p), time.Since(start).Round(time.Millisecond))
	}

	if len(failed) > 0 {
		return fmt.Errorf("probe failed for %s", strings.Join(failed, ", "))
	}
	return nil
}

func strategies(p provider.Provider) string {
	ss := p.IdentifierStrategies()
	names := make([]string, len(ss))
	for i, s := range ss {
		names[i] = s.String()
	}
	return strings.Join(names, ",")
}
