// Package cli wires configuration, adapters and services into cobra commands.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/okian/edusynth/internal/adapters/collaborator"
	service "github.com/okian/edusynth/internal/app"
	"github.com/okian/edusynth/internal/config"
)

// CompleterFactory builds the collaborator for one role.
type CompleterFactory func(ctx context.Context, s collaborator.Settings) (collaborator.Completer, error)

// Deps are the process-level seams the commands run against.
type Deps struct {
	Fs           afero.Fs
	Out          io.Writer
	Err          io.Writer
	Now          func() time.Time
	NewCompleter CompleterFactory
	Sleep        func(context.Context, time.Duration) error
}

func (d Deps) withDefaults() Deps {
	if d.Fs == nil {
		d.Fs = afero.NewOsFs()
	}
	if d.Out == nil {
		d.Out = os.Stdout
	}
	if d.Err == nil {
		d.Err = os.Stderr
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewCompleter == nil {
		d.NewCompleter = func(ctx context.Context, s collaborator.Settings) (collaborator.Completer, error) {
			return collaborator.New(ctx, s)
		}
	}
	return d
}

// NewRootCmd returns the edusynth command tree.
func NewRootCmd(deps Deps) *cobra.Command {
	deps = deps.withDefaults()

	root := &cobra.Command{
		Use:           "edusynth",
		Short:         "Synthetic educational data generation and LLM judging",
		Long:          "Generate labeled educational records with a remote LLM and score contestant answers with an anonymized judge.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(deps.Out)
	root.SetErr(deps.Err)

	root.AddCommand(
		generateCmd(deps),
		judgeCmd(deps),
		tasksCmd(deps),
	)
	return root
}

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ExitCode maps a command error to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, config.ErrLoadConfig),
		errors.Is(err, config.ErrMissingCredential),
		service.IsUsageError(err):
		return ExitUsage
	default:
		return ExitFailure
	}
}
