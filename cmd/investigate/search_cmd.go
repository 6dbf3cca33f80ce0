package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brightframe/investigator/internal/tools"
	"github.com/brightframe/investigator/internal/tools/builtin"
	"github.com/brightframe/investigator/internal/wiring"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a single entity search without starting a full investigation",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	executor := tools.NewExecutor(wiring.NewRegistry())
	res, err := executor.Execute(context.Background(), builtin.EntitySearchName, tools.Args{"query": args[0]})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	entities := builtin.EntitiesFrom(res)
	if len(entities) == 0 {
		fmt.Println("no matching entities")
		return nil
	}
	for _, e := range entities {
		fmt.Printf("%s\t%s\t%s\n", e.ID, e.Schema, e.Name())
	}
	return nil
}
