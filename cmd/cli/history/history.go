package history

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/crucial707/dermalens/cmd/cli/client"
	"github.com/crucial707/dermalens/cmd/cli/output"
	"github.com/spf13/cobra"
)

// previewLen caps the analysis column in table output.
const previewLen = 60

type item struct {
	ID        int    `json:"id"`
	ImagePath string `json:"image_path"`
	Analysis  string `json:"analysis"`
	Date      string `json:"date"`
}

// ==========================
// Init History
// ==========================
func InitHistory(rootCmd *cobra.Command) {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List or delete past analyses",
	}

	historyCmd.AddCommand(
		listHistoryCmd(),
		deleteHistoryCmd(),
	)

	rootCmd.AddCommand(historyCmd)
}

// ==========================
// LIST
// ==========================
func listHistoryCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your analyses, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Authenticated()
			if err != nil {
				return err
			}

			var items []item
			if err := c.Get("/api/history", &items); err != nil {
				return err
			}

			if jsonOutput {
				b, _ := json.MarshalIndent(items, "", "  ")
				fmt.Println(string(b))
				return nil
			}
			if len(items) == 0 {
				fmt.Println("No history yet.")
				return nil
			}

			rows := make([][]interface{}, 0, len(items))
			for _, it := range items {
				rows = append(rows, []interface{}{it.ID, it.Date, it.ImagePath, preview(it.Analysis)})
			}
			output.RenderTable([]string{"ID", "Date", "Image", "Analysis"}, rows)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output raw JSON instead of a table")
	return cmd
}

// ==========================
// DELETE
// ==========================
func deleteHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an analysis and its stored image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid id %q", args[0])
			}

			c, err := client.Authenticated()
			if err != nil {
				return err
			}

			var resp struct {
				Message string `json:"message"`
			}
			if err := c.Delete("/api/history/delete/"+strconv.Itoa(id), &resp); err != nil {
				return err
			}
			fmt.Println(resp.Message)
			return nil
		},
	}
}

// preview returns the first line of text, shortened for a table cell.
func preview(text string) string {
	line := strings.TrimSpace(text)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	r := []rune(line)
	if len(r) > previewLen {
		return string(r[:previewLen-3]) + "..."
	}
	return line
}
