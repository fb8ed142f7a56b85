package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newTranscriptCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "transcript [session-id]",
		Short: "List archived sessions or print one transcript",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rt.cfg.TranscriptDB == "" {
				return errors.New("no transcript archive configured (use --transcript-db or MEDICAI_TRANSCRIPT_DB)")
			}
			store := rt.app.Transcript
			p := rt.printer(cmd)

			if len(args) == 0 {
				sessions, err := store.Sessions(cmd.Context())
				if err != nil {
					return err
				}
				if len(sessions) == 0 {
					p.info("No archived sessions")
				}
				for _, id := range sessions {
					fmt.Fprintln(cmd.OutOrStdout(), id)
				}
				return nil
			}

			msgs, err := store.Transcript(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if len(msgs) == 0 {
				return fmt.Errorf("no transcript for session %s", args[0])
			}
			for _, m := range msgs {
				p.message(m)
			}
			return nil
		},
	}
}
