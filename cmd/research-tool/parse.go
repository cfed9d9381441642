// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SEERINTELAI/academic-research-tool-sub000/internal/intent"
)

var parseCmd = &cobra.Command{
	Use:   "parse <message>",
	Short: "Show how a chat message is understood",
	Long: `Parse runs the intent parser on a message and prints the detected action,
the extracted query, paper references and section reference. Nothing is
executed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := intent.Parse(strings.Join(args, " "))
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(in)
		}
		fmt.Println(intent.Describe(in))
		return nil
	},
}

func init() {
	parseCmd.Flags().Bool("json", false, "output the intent as JSON")
	rootCmd.AddCommand(parseCmd)
}
