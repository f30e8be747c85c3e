package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ionbatch/internal/outcome"
	"ionbatch/internal/project"
	"ionbatch/internal/reconcile"
	"ionbatch/internal/services"
)

const messageWidth = 60

func newShowCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var runID string
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show [index]",
		Short: "Display stored identification outcomes",
		Long: "Display stored identification outcomes.\n\n" +
			"Without arguments every outcome is listed with its best candidate. With an\n" +
			"instance index the full candidate list of that instance is printed.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := project.OpenReadOnly(cfg.Paths.ProjectDir)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				index, err := strconv.Atoi(strings.TrimSpace(args[0]))
				if err != nil {
					return services.Wrap(services.ErrValidation, "cli", "show", fmt.Sprintf("invalid instance index %q", args[0]), nil)
				}
				rec, err := store.Get(cmd.Context(), index)
				if err != nil {
					return err
				}
				if rec == nil {
					return services.Wrap(services.ErrNotFound, "cli", "show", fmt.Sprintf("instance %d not found", index), nil)
				}
				if jsonOut {
					return writeJSON(cmd, newOutcomeView(*rec, true))
				}
				fmt.Fprint(out, reconcile.RenderSummary(*rec, limit))
				return nil
			}

			filter := project.Filter{RunID: strings.TrimSpace(runID), Limit: limit}
			for _, raw := range statuses {
				kind, err := outcome.ParseKind(strings.ToLower(strings.TrimSpace(raw)))
				if err != nil {
					return services.Wrap(services.ErrValidation, "cli", "show", "--status", err)
				}
				filter.Kinds = append(filter.Kinds, kind)
			}
			records, err := store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if jsonOut {
				views := make([]outcomeView, 0, len(records))
				for _, rec := range records {
					views = append(views, newOutcomeView(rec, false))
				}
				return writeJSON(cmd, views)
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "No outcomes stored")
				return nil
			}
			fmt.Fprintln(out, renderOutcomeTable(records, shouldColorize(out)))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Only show outcomes of these kinds (success, no_results, timeout, error)")
	cmd.Flags().StringVar(&runID, "run", "", "Only show outcomes written by this run")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum rows, or candidates for a single instance (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func renderOutcomeTable(records []outcome.Record, colorize bool) string {
	headers := []string{"Index", "Name", "Status", "Ion", "Formula", "Score", "Message"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		formula, score := "", ""
		if best, ok := rec.Best(); ok {
			formula = best.Formula.String()
			score = strconv.FormatFloat(best.Score, 'f', 3, 64)
		}
		rows = append(rows, []string{
			strconv.Itoa(rec.Index),
			rec.Name,
			paint(reconcile.KindLabel(rec.Kind), kindColors(rec.Kind), colorize),
			rec.IonType,
			formula,
			score,
			truncate(rec.Message, messageWidth),
		})
	}
	return renderTable(headers, rows, aligns)
}

func truncate(value string, width int) string {
	runes := []rune(value)
	if len(runes) <= width {
		return value
	}
	return string(runes[:width-1]) + "…"
}
