package handlers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// NewTopicsCmd creates the topics command with subcommands
func NewTopicsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Manage the active topic set",
		Long: `List or toggle the topics that scope every feed and search. Workers
pick up changes at their next cycle boundary.

Examples:
  tidings topics list
  tidings topics set Technology on
  tidings topics set Christianity off`,
	}

	cmd.AddCommand(NewTopicsListCmd())
	cmd.AddCommand(NewTopicsSetCmd())

	return cmd
}

// NewTopicsListCmd creates the list subcommand
func NewTopicsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List topics and their status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTopicsList()
		},
	}
}

// NewTopicsSetCmd creates the set subcommand
func NewTopicsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set [topic] [on|off]",
		Short: "Enable or disable a topic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTopicsSet(args[0], args[1])
		},
	}
}

func runTopicsList() error {
	a, err := newApp()
	if err != nil {
		return err
	}

	all := a.topics.GetAll()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		status := "off"
		if all[name] {
			status = "on"
		}
		fmt.Printf("%-20s %s\n", name, status)
	}
	return nil
}

func runTopicsSet(name, state string) error {
	var enabled bool
	switch strings.ToLower(state) {
	case "on", "true", "1":
		enabled = true
	case "off", "false", "0":
		enabled = false
	default:
		return fmt.Errorf("invalid state %q: use on or off", state)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.topics.SetTopic(name, enabled); err != nil {
		return fmt.Errorf("failed to update topic: %w", err)
	}
	fmt.Printf("Topic %q is now %s.\n", name, state)
	return nil
}
