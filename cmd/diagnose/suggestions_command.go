package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/enginesound/internal/domain/diagnosis"
)

type suggestionEntry struct {
	Category  diagnosis.Category `json:"category"`
	Temporary []string           `json:"temporary"`
	Permanent []string           `json:"permanent"`
}

func newSuggestionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "suggestions [category]",
		Short: "Show the repair suggestions per damage category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := ctx.table()
			if err != nil {
				return err
			}

			categories := diagnosis.ClassifierCategories
			if len(args) == 1 {
				c, ok := diagnosis.ParseCategory(args[0])
				if !ok {
					return fmt.Errorf("unknown damage type %q", args[0])
				}
				categories = []diagnosis.Category{c}
			}

			entries := make([]suggestionEntry, 0, len(categories))
			for _, c := range categories {
				b := table.Resolve(c)
				entries = append(entries, suggestionEntry{Category: c, Temporary: b.Temporary, Permanent: b.Permanent})
			}

			if ctx.wantJSON(cmd) {
				return writeJSON(cmd, entries)
			}
			var rows [][]string
			for _, e := range entries {
				for _, s := range e.Temporary {
					rows = append(rows, []string{string(e.Category), "temporary", s})
				}
				for _, s := range e.Permanent {
					rows = append(rows, []string{string(e.Category), "permanent", s})
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Damage", "Kind", "Suggestion"}, rows, nil))
			return nil
		},
	}
}
