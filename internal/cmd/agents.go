package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the demo agent pool",
	Long:  `List the agents the run command negotiates with, including the keywords the candidate gate matches against.`,
	RunE:  runAgents,
}

func init() {
	rootCmd.AddCommand(agentsCmd)
}

func runAgents(cmd *cobra.Command, args []string) error {
	pool := demoPool()
	fmt.Println(headerStyle.Render(fmt.Sprintf("Demo agent pool (%d agents)", pool.Size())))
	for _, p := range pool.All() {
		fmt.Printf("  %s  %s\n", labelStyle.Render(fmt.Sprintf("%-10s", p.ID)), p.Description)
		fmt.Printf("             keywords: %s\n", strings.Join(p.Keywords, ", "))
	}
	return nil
}
