package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"

	"github.com/0xcro3dile/medicai-go/internal/domain/entities"
	"github.com/0xcro3dile/medicai-go/internal/domain/usecases"
)

const barWidth = 30

var (
	userLabel      = color.New(color.FgCyan, color.Bold)
	assistantLabel = color.New(color.FgGreen, color.Bold)
	okText         = color.New(color.FgGreen)
	warnText       = color.New(color.FgYellow)
	errText        = color.New(color.FgRed)
	dimText        = color.New(color.Faint)
)

// printer writes session output for humans.
type printer struct {
	out io.Writer
	md  *glamour.TermRenderer // nil prints answers as-is
}

func newPrinter(out io.Writer, plain bool) *printer {
	p := &printer{out: out}
	if !plain {
		if r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100)); err == nil {
			p.md = r
		}
	}
	return p
}

func (p *printer) prompt() {
	userLabel.Fprint(p.out, "you> ")
}

func (p *printer) assistant(text string) {
	assistantLabel.Fprintln(p.out, "assistant:")
	if p.md != nil {
		if rendered, err := p.md.Render(text); err == nil {
			fmt.Fprint(p.out, rendered)
			return
		}
	}
	fmt.Fprintln(p.out, text)
}

func (p *printer) message(m entities.Message) {
	switch m.Sender {
	case entities.SenderUser:
		userLabel.Fprint(p.out, "you: ")
		fmt.Fprintln(p.out, m.Content)
	default:
		p.assistant(m.Content)
	}
}

func (p *printer) info(format string, args ...interface{}) {
	dimText.Fprintf(p.out, format+"\n", args...)
}

func (p *printer) ok(format string, args ...interface{}) {
	okText.Fprintf(p.out, format+"\n", args...)
}

func (p *printer) warn(msg string) {
	warnText.Fprintln(p.out, msg)
}

func (p *printer) fail(msg string) {
	errText.Fprintln(p.out, msg)
}

// uploadListener draws a progress bar and announces reports ready for chat.
func (p *printer) uploadListener() usecases.IntakeListener {
	return usecases.IntakeListenerFuncs{
		OnState: func(s entities.UploadState) {
			switch s.Phase {
			case entities.UploadInProgress:
				fmt.Fprintf(p.out, "\r  %s %3d%%", progressBar(s.Percent), s.Percent)
			case entities.UploadSucceeded, entities.UploadFailed:
				fmt.Fprintln(p.out)
			}
		},
		OnReady: func(doc entities.Document) {
			p.ok("%s is ready for questions", doc.Name)
		},
	}
}

func progressBar(percent int) string {
	filled := percent * barWidth / 100
	return "[" + strings.Repeat("#", filled) + strings.Repeat(" ", barWidth-filled) + "]"
}
