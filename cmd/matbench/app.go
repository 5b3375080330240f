// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/tebeka/atexit"

	"github.com/ajroetker/go-matbench/harness"
	"github.com/ajroetker/go-matbench/perfcount"
	"github.com/ajroetker/go-matbench/report"
)

// options holds the persistent flags.
type options struct {
	noCounters bool
	l2RawEvent string
	preview    int
	format     string
	output     string
	logLevel   string
	logJSON    bool
	planFile   string
}

func (o *options) register(fs *pflag.FlagSet) {
	fs.BoolVar(&o.noCounters, "no-counters", false, "Run without hardware counters (also "+perfcount.EnvNoCounters+")")
	fs.StringVar(&o.l2RawEvent, "l2-raw-event", "", "Raw PMU event code for L2 data cache misses, e.g. 0x3f24 (also "+perfcount.EnvL2RawEvent+")")
	fs.IntVar(&o.preview, "preview", harness.DefaultPreview, "Number of row-0 elements of C to report")
	fs.StringVar(&o.format, "format", report.FormatText, "Output format: text, json or csv")
	fs.StringVarP(&o.output, "output", "o", "", "Write results to this file instead of stdout")
	fs.StringVar(&o.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	fs.BoolVar(&o.logJSON, "log-json", false, "Log in JSON instead of text")
	fs.StringVar(&o.planFile, "plans", "", "YAML file with sweep plans (default: built-in plans)")
}

// app is the state shared by subcommands. It is built lazily so that
// commands that never measure do not need a PMU.
type app struct {
	opts   options
	logger *slog.Logger

	sub     perfcount.Subsystem
	session *harness.Session
	harness *harness.Harness
	out     report.Writer
	file    *os.File
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "matbench",
		Short:         "Benchmark matrix multiplication kernels against cache-miss counters",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setupLogging(cmd.ErrOrStderr())
		},
	}
	a.opts.register(root.PersistentFlags())

	root.AddCommand(
		a.kernelCommand("naive", "Multiply with the i-j-k loop order", "mult"),
		a.kernelCommand("line", "Multiply with the i-k-j loop order"),
		a.blockCommand(),
		a.sweepCommand(),
		a.plansCommand(),
		a.hostCommand(),
	)
	return root
}

func (a *app) setupLogging(w io.Writer) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.opts.logLevel)); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if a.opts.logJSON {
		a.logger = slog.New(slog.NewJSONHandler(w, handlerOpts))
	} else {
		a.logger = slog.New(slog.NewTextHandler(w, handlerOpts))
	}
	slog.SetDefault(a.logger)
	return nil
}

// counterConfig merges the environment with explicitly set flags.
func (a *app) counterConfig(fs *pflag.FlagSet) (perfcount.Config, error) {
	cfg, err := perfcount.ConfigFromEnv()
	if err != nil {
		return cfg, err
	}
	if fs.Changed("no-counters") {
		cfg.Disabled = a.opts.noCounters
	}
	if fs.Changed("l2-raw-event") {
		raw, err := strconv.ParseUint(a.opts.l2RawEvent, 0, 64)
		if err != nil {
			return cfg, fmt.Errorf("--l2-raw-event: %w", err)
		}
		cfg.L2RawEvent = raw
	}
	return cfg, nil
}

// open initializes the counter subsystem, the measurement session and the
// result writer. Teardown is registered with atexit so it also runs when a
// fatal error ends the process.
func (a *app) open(cmd *cobra.Command) error {
	cfg, err := a.counterConfig(cmd.Flags())
	if err != nil {
		return err
	}
	sub, err := perfcount.Open(cfg)
	if err != nil {
		return fmt.Errorf("%w (run with --no-counters to measure time only)", err)
	}
	a.sub = sub
	atexit.Register(a.close)
	a.logger.Info("counters ready", "backend", sub.Name())

	var out io.Writer = cmd.OutOrStdout()
	if a.opts.output != "" {
		f, err := os.Create(a.opts.output)
		if err != nil {
			return err
		}
		a.file = f
		out = f
	}
	a.out, err = report.NewWriter(a.opts.format, out)
	if err != nil {
		return err
	}

	a.session = harness.OpenSession(sub, a.logger)
	a.harness = harness.New(a.session,
		harness.WithLogger(a.logger),
		harness.WithPreview(a.opts.preview),
	)
	return nil
}

// close flushes output and tears down the counters. It runs from atexit,
// which gives no ordering between handlers, so it owns the whole teardown.
func (a *app) close() {
	if a.out != nil {
		if err := a.out.Flush(); err != nil {
			a.logger.Error("flush results", "err", err)
		}
	}
	if a.file != nil {
		if err := a.file.Close(); err != nil {
			a.logger.Error("close output", "file", a.opts.output, "err", err)
		}
	}
	if a.session != nil {
		_ = a.session.Close()
	}
	if a.sub != nil {
		_ = a.sub.Close()
	}
}

// emit writes one result, logging write errors rather than aborting a
// sweep that may have run for hours.
func (a *app) emit(res harness.Result) {
	if err := a.out.Write(res); err != nil {
		a.logger.Error("write result", "err", err)
	}
}
