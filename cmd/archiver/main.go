// Package main is the entry point of the register archiver.
//
// The archiver reads a finished school year from the school database and
// writes one PDF per teacher register, support register and class register
// into the archive directory. Every document is reported as created,
// skipped for lack of data, or failed; the process exits with status 1 when
// any document failed.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/classbook/register-archive/internal/application/command"
)

// errFailedDocuments makes the process exit 1 after the report is printed.
var errFailedDocuments = errors.New("some documents failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stdout).ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errFailedDocuments) {
			fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCommand(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "archiver",
		Short:         "Compile the school registers of a finished year into PDF documents",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)

	root.AddCommand(
		newGenerateCommand(command.VariantTeacher, "Generate teacher registers"),
		newGenerateCommand(command.VariantSupport, "Generate support teacher registers"),
		newGenerateCommand(command.VariantClass, "Generate class registers"),
		newMigrateCommand(),
		newTermsCommand(),
		newDemoCommand(),
	)
	return root
}
