package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/medicai-go/internal/domain/entities"
	"github.com/0xcro3dile/medicai-go/internal/domain/usecases"
)

func newChatCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "chat [file]",
		Short: "Optionally upload a report, then ask questions interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := rt.printer(cmd)
			if len(args) == 1 {
				if err := uploadReport(cmd.Context(), rt, p, args[0]); err != nil {
					return err
				}
			}
			p.info("Ask about your report. /quit to leave.")
			return repl(cmd.Context(), rt.app.Chat, p, cmd.InOrStdin())
		},
	}
}

func newAskCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question about the uploaded report",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := rt.app.Chat.Send(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return &userError{msg: entities.UserMessage(err, entities.MsgQueryFailed), err: err}
			}
			rt.printer(cmd).assistant(reply.Content)
			return nil
		},
	}
}

func newUploadCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a PDF, DOC, DOCX or TXT report (5MB max)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return uploadReport(cmd.Context(), rt, rt.printer(cmd), args[0])
		},
	}
}

func uploadReport(ctx context.Context, rt *runtime, p *printer, path string) error {
	rt.app.Intake.Subscribe(p.uploadListener())

	p.info("Uploading %s", filepath.Base(path))
	if err := rt.app.UploadPath(ctx, path); err != nil {
		return &userError{msg: entities.UserMessage(err, entities.MsgUploadFailed), err: err}
	}
	return nil
}

// repl reads questions from in until EOF, /quit or ctx is done.
func repl(ctx context.Context, chat *usecases.ChatSession, p *printer, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		p.prompt()

		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = l
		}

		switch strings.TrimSpace(line) {
		case "/quit", "/exit":
			return nil
		}

		reply, err := chat.Send(ctx, line)
		switch {
		case err == nil:
			p.assistant(reply.Content)
		case errors.Is(err, entities.ErrEmptyInput):
			p.warn(entities.MsgEmptyInput)
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			p.fail(chat.State().LastError)
		}
	}
}
