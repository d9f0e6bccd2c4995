package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"strand/internal/lessons"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the available lessons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			namesOnly, err := cmd.Flags().GetBool("names")
			if err != nil {
				return fmt.Errorf("failed to get names flag: %w", err)
			}
			out := cmd.OutOrStdout()
			if namesOnly {
				for _, name := range lessons.Names() {
					fmt.Fprintln(out, name)
				}
				return nil
			}
			nameStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Width(18)
			titleStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("7")).Width(18)
			summaryStyle := lipgloss.NewStyle().Faint(true)
			for _, l := range lessons.All() {
				fmt.Fprintf(out, "%s %s %s\n",
					nameStyle.Render(l.Name), titleStyle.Render(l.Title()), summaryStyle.Render(l.Summary))
			}
			return nil
		},
	}
	cmd.Flags().Bool("names", false, "print bare lesson names, one per line")
	return cmd
}
