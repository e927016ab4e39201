package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/classbook/register-archive/config"
	"github.com/classbook/register-archive/internal/application/command"
	"github.com/classbook/register-archive/internal/domain/period"
	"github.com/classbook/register-archive/internal/infrastructure/persistence/memory"
	"github.com/classbook/register-archive/internal/infrastructure/persistence/postgres"
	"github.com/classbook/register-archive/pkg/timeutil"
)

// ─── teacher / support / class ─────────────────────────────────────────────

func newGenerateCommand(v command.Variant, short string) *cobra.Command {
	var (
		ids []int64
		all bool
	)
	cmd := &cobra.Command{
		Use:   string(v),
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(ids) == 0 && !all {
				return errors.New("pass --id at least once, or --all")
			}
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			var cmds []command.GenerateRegisterCommand
			if all {
				if cmds, err = command.ListTargets(ctx, a.source, v); err != nil {
					return fmt.Errorf("failed to list %s registers: %w", v, err)
				}
			} else {
				for _, id := range ids {
					cmds = append(cmds, command.GenerateRegisterCommand{Variant: v, EntityID: id})
				}
			}

			h := batchHandler(a.cfg, a.log, a.source, a.calendar, a.cfg.Archive.Root)
			res := h.Handle(ctx, command.BatchGenerateCommand{Commands: cmds})
			return printReport(cmd.OutOrStdout(), res)
		},
	}
	entity := "teacher"
	if v == command.VariantClass {
		entity = "class"
	}
	cmd.Flags().Int64SliceVar(&ids, "id", nil, entity+" ID, repeatable")
	cmd.Flags().BoolVar(&all, "all", false, "every "+entity+" with a register")
	cmd.MarkFlagsMutuallyExclusive("id", "all")
	return cmd
}

// ─── migrate ───────────────────────────────────────────────────────────────

func newMigrateCommand() *cobra.Command {
	var (
		rollback bool
		status   bool
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the school schema migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfig(config.WithoutSchool())
			if err != nil {
				return err
			}
			conn, err := connectDatabase(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer conn.Close()

			m := postgres.NewMigrator(conn)
			switch {
			case rollback:
				if err := m.Rollback(ctx); err != nil {
					return fmt.Errorf("rollback failed: %w", err)
				}
			case !status:
				if err := m.Migrate(ctx); err != nil {
					return fmt.Errorf("failed to run migrations: %w", err)
				}
			}

			applied, err := m.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tNAME\tAPPLIED")
			for _, mg := range applied {
				at := "-"
				if mg.IsApplied {
					at = mg.AppliedAt.Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%03d\t%s\t%s\n", mg.Version, mg.Name, at)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&rollback, "rollback", false, "revert the latest migration")
	cmd.Flags().BoolVar(&status, "status", false, "only print the migration status")
	cmd.MarkFlagsMutuallyExclusive("rollback", "status")
	return cmd
}

// ─── terms ─────────────────────────────────────────────────────────────────

func newTermsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "terms",
		Short: "Print the term calendar of the configured school year",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			cal, err := period.NewCalendar(cfg.School.Settings())
			if err != nil {
				return fmt.Errorf("invalid school year: %w", err)
			}
			return printTerms(cmd, cal)
		},
	}
}

func printTerms(cmd *cobra.Command, cal *period.Calendar) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Anno scolastico %s\n", cal.Year())
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTERM\tSCRUTINY\tFROM\tTO\tDAYS")
	for _, t := range cal.Terms() {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\n",
			t.Ordinal, t.Name, t.Scrutiny, timeutil.FormatDate(t.Start), timeutil.FormatDate(t.End), t.Days())
	}
	return tw.Flush()
}

// ─── demo ──────────────────────────────────────────────────────────────────

func newDemoCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Render every register of the built-in sample school",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfig(config.WithoutSchool())
			if err != nil {
				return err
			}
			cal, err := period.NewCalendar(memory.DemoSettings())
			if err != nil {
				return err
			}
			if out == "" {
				out = cfg.Archive.Root
			}

			store := memory.Demo()
			var cmds []command.GenerateRegisterCommand
			for _, v := range []command.Variant{command.VariantTeacher, command.VariantSupport, command.VariantClass} {
				targets, err := command.ListTargets(ctx, store, v)
				if err != nil {
					return err
				}
				cmds = append(cmds, targets...)
			}

			h := batchHandler(cfg, log, store, cal, out)
			res := h.Handle(ctx, command.BatchGenerateCommand{Commands: cmds})
			return printReport(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "archive directory (default ARCHIVE_ROOT)")
	return cmd
}
