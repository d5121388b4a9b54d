package analyze

import (
	"encoding/json"
	"fmt"

	"github.com/crucial707/dermalens/cmd/cli/client"
	"github.com/spf13/cobra"
)

// InitAnalyze registers the analyze command on the root command.
func InitAnalyze(rootCmd *cobra.Command) {
	rootCmd.AddCommand(analyzeCmd())
}

func analyzeCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "analyze <image>",
		Short: "Upload a skin image and print the analysis",
		Long: `Upload an image of a skin lesion and print the model's descriptive analysis.
The result is also saved to your history.

Example:
  dermalens analyze ./mole.jpg`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}

			var result struct {
				Analysis string `json:"analysis"`
			}
			if err := c.Upload("/api/analyze", args[0], &result); err != nil {
				return err
			}

			if jsonOutput {
				out, _ := json.MarshalIndent(result, "", "  ")
				fmt.Println(string(out))
				return nil
			}
			fmt.Println(result.Analysis)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output raw JSON instead of formatted text")
	return cmd
}
