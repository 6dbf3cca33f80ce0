package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/brightframe/investigator/internal/persistence"
)

var statusCmd = &cobra.Command{
	Use:   "status [saved-session-path]",
	Short: "List saved sessions, or show one saved session's summary",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return showStatus(args[0])
	}

	cfg := loadConfig()
	files, err := persistence.ListSaved(cfg.PersistDir)
	if err != nil {
		return fmt.Errorf("listing saved sessions under %s: %w", cfg.PersistDir, err)
	}
	if len(files) == 0 {
		fmt.Printf("no saved sessions under %s\n", cfg.PersistDir)
		return nil
	}
	for _, path := range files {
		if err := showStatus(path); err != nil {
			fmt.Printf("%s: %v\n", path, err)
		}
	}
	return nil
}

func showStatus(path string) error {
	sess, err := persistence.Load(path)
	if err != nil {
		return err
	}
	s := sess.Summary()
	fmt.Printf("%s\tgoal=%q\tturns=%d\tfindings=%d\tentities=%d\topen_leads=%d\n",
		path, s.Goal, s.Turns, s.FindingCount, s.EntityCount, s.LeadsOpen)
	return nil
}
