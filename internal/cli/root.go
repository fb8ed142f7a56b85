// Package cli implements the medicai command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/0xcro3dile/medicai-go/internal/app"
	"github.com/0xcro3dile/medicai-go/internal/config"
	"github.com/0xcro3dile/medicai-go/internal/pkg/logger"
)

// runtime holds what every subcommand shares once flags are parsed.
type runtime struct {
	v        *viper.Viper
	plain    bool
	cfg      *config.Config
	logger   *zap.Logger
	closeLog func() error
	app      *app.App
}

func (rt *runtime) init(cmd *cobra.Command) error {
	cfg, err := config.Load(rt.v)
	if err != nil {
		return err
	}

	level := zapcore.WarnLevel
	if cfg.Verbose {
		level = zapcore.DebugLevel
	}
	log, closeLog := logger.New(logger.Options{
		FilePath:     cfg.LogFile,
		Production:   cfg.IsProduction(),
		ConsoleLevel: level,
		Console:      cmd.ErrOrStderr(),
	})

	a, err := app.New(cfg, log, app.Options{})
	if err != nil {
		closeLog()
		return err
	}

	rt.cfg = cfg
	rt.logger = log
	rt.closeLog = closeLog
	rt.app = a
	return nil
}

func (rt *runtime) close() {
	if rt.app != nil {
		if err := rt.app.Close(); err != nil {
			rt.logger.Warn("closing session", zap.Error(err))
		}
	}
	if rt.closeLog != nil {
		rt.closeLog()
	}
}

func (rt *runtime) printer(cmd *cobra.Command) *printer {
	return newPrinter(cmd.OutOrStdout(), rt.plain)
}

func newRootCommand(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:           "medicai",
		Short:         "Upload a medical report and ask questions about it",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.init(cmd)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.String("backend", "", "backend base URL (default http://localhost:8000)")
	flags.String("log-file", "", "also write JSON logs to this file")
	flags.String("env", "", "development or production")
	flags.String("transcript-db", "", "archive chat transcripts in this SQLite file")
	flags.BoolP("verbose", "v", false, "log debug output to stderr")
	flags.BoolVar(&rt.plain, "plain", false, "print answers without markdown rendering")

	bindFlag(rt.v, config.KeyBackendURL, flags.Lookup("backend"))
	bindFlag(rt.v, config.KeyLogFile, flags.Lookup("log-file"))
	bindFlag(rt.v, config.KeyEnv, flags.Lookup("env"))
	bindFlag(rt.v, config.KeyTranscriptDB, flags.Lookup("transcript-db"))
	bindFlag(rt.v, config.KeyVerbose, flags.Lookup("verbose"))

	root.AddCommand(
		newChatCommand(rt),
		newAskCommand(rt),
		newUploadCommand(rt),
		newWatchCommand(rt),
		newServeCommand(rt),
		newTranscriptCommand(rt),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	rt := &runtime{v: viper.New()}
	defer rt.close()

	root := newRootCommand(rt)
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return 130
		}
		newPrinter(errOut, true).fail(errorText(err))
		if rt.logger != nil {
			rt.logger.Debug("command failed", zap.Error(err))
		}
		return 1
	}
	return 0
}

// userError carries the text shown for a failed operation.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return fmt.Sprintf("%s: %v", e.msg, e.err) }
func (e *userError) Unwrap() error { return e.err }

func errorText(err error) string {
	var uerr *userError
	if errors.As(err, &uerr) {
		return uerr.msg
	}
	return err.Error()
}
