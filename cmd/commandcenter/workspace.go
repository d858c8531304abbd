package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fentz26/commandcenter/internal/models"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Read and update Notion tasks",
}

var tasksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List Notion tasks",
	RunE:  runTasksList,
}

var tasksStatusCmd = &cobra.Command{
	Use:   "status [task-id] [status]",
	Short: "Set the status of a Notion task",
	Args:  cobra.ExactArgs(2),
	RunE:  runTasksStatus,
}

var tasksOpenOnly bool

func init() {
	tasksCmd.AddCommand(tasksListCmd, tasksStatusCmd)
	tasksListCmd.Flags().BoolVar(&tasksOpenOnly, "open", false, "Only list tasks that are not done")
}

func runTasksList(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/notion/tasks")
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	var out struct {
		Tasks []models.Task `json:"tasks"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTASK\tSTATUS\tPRIORITY\tDUE")
	n := 0
	for _, t := range out.Tasks {
		if tasksOpenOnly && t.Done {
			continue
		}
		n++
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", truncateID(t.ID), t.Title, t.Status, deref(t.Priority), deref(t.DueDate))
	}
	if n == 0 {
		fmt.Println("No tasks found")
		return nil
	}
	return w.Flush()
}

func runTasksStatus(cmd *cobra.Command, args []string) error {
	resp, err := apiDo(apiClient, http.MethodPatch, "/notion/tasks/"+url.PathEscape(args[0]), map[string]string{"status": args[1]})
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}
	fmt.Printf("Task %s set to %q\n", truncateID(args[0]), args[1])
	return nil
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
