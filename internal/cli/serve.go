package cli

import (
	"errors"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/0xcro3dile/medicai-go/internal/app"
	"github.com/0xcro3dile/medicai-go/internal/config"
	"github.com/0xcro3dile/medicai-go/internal/domain/entities"
	bridge "github.com/0xcro3dile/medicai-go/internal/infrastructure/http"
)

func newWatchCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Upload every report dropped into a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := rt.cfg.WatchDir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return errors.New("no inbox directory given (pass one or set MEDICAI_WATCH_DIR)")
			}

			p := rt.printer(cmd)
			rt.app.Intake.Subscribe(p.uploadListener())
			p.info("Watching %s for reports", dir)
			return rt.app.WatchInbox(cmd.Context(), dir, app.DefaultSettle, inboxReporter(p))
		},
	}
}

func newServeCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local browser bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := rt.app
			srv, err := bridge.NewServer(a.Intake, a.Chat, a.Loader, rt.cfg.BridgeAddr, rt.logger)
			if err != nil {
				return err
			}
			defer srv.Close()

			p := rt.printer(cmd)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return srv.Start(ctx)
			})
			if dir := rt.cfg.WatchDir; dir != "" {
				p.info("Watching %s for reports", dir)
				g.Go(func() error {
					return a.WatchInbox(ctx, dir, app.DefaultSettle, inboxReporter(p))
				})
			}

			p.ok("Bridge listening on http://%s", rt.cfg.BridgeAddr)
			return g.Wait()
		},
	}

	cmd.Flags().String("addr", "", "bridge listen address (default 127.0.0.1:8090)")
	cmd.Flags().String("watch", "", "also upload reports dropped into this directory")
	bindFlag(rt.v, config.KeyBridgeAddr, cmd.Flags().Lookup("addr"))
	bindFlag(rt.v, config.KeyWatchDir, cmd.Flags().Lookup("watch"))
	return cmd
}

func inboxReporter(p *printer) func(app.InboxResult) {
	return func(r app.InboxResult) {
		if r.Err != nil {
			p.fail(filepath.Base(r.Path) + ": " + entities.UserMessage(r.Err, entities.MsgUploadFailed))
		}
	}
}
