package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/commandcenter/internal/connectors"
	"github.com/fentz26/commandcenter/internal/health"
	"github.com/fentz26/commandcenter/internal/store"
)

var triggerCmd = &cobra.Command{
	Use:   "trigger [workflow-id]",
	Short: "Trigger an n8n workflow",
	Long:  `Triggers an n8n workflow through its webhook. The payload is a JSON object given with --data.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTrigger,
}

var triggerHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent workflow triggers",
	Args:  cobra.NoArgs,
	RunE:  runTriggerHistory,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon health and probe the configured services",
	RunE:  runStatus,
}

var (
	triggerData  string
	triggerLimit int
)

func init() {
	triggerCmd.AddCommand(triggerHistoryCmd)
	triggerCmd.Flags().StringVar(&triggerData, "data", "{}", "JSON payload sent to the workflow")
	triggerHistoryCmd.Flags().IntVar(&triggerLimit, "limit", 20, "Number of triggers to list")
}

func runTrigger(cmd *cobra.Command, args []string) error {
	var payload map[string]any
	if err := json.Unmarshal([]byte(triggerData), &payload); err != nil {
		return fmt.Errorf("--data must be a JSON object: %w", err)
	}

	resp, err := apiDo(slowClient, http.MethodPost, "/n8n/trigger", map[string]any{
		"workflowId": args[0],
		"payload":    payload,
	})
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	var res connectors.TriggerResult
	if err := json.Unmarshal(resp, &res); err != nil {
		return err
	}
	if !res.OK {
		return fmt.Errorf("workflow %s failed: %s", args[0], res.Error)
	}
	fmt.Printf("Workflow %s triggered\n", args[0])
	if res.Data != nil {
		data, _ := json.MarshalIndent(res.Data, "", "  ")
		fmt.Println(string(data))
	}
	return nil
}

func runTriggerHistory(cmd *cobra.Command, args []string) error {
	resp, err := apiGet(fmt.Sprintf("/n8n/triggers?limit=%d", triggerLimit))
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	var recs []store.TriggerRecord
	if err := json.Unmarshal(resp, &recs); err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Println("No workflow triggers recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WORKFLOW\tSTARTED\tDURATION\tRESULT")
	for _, r := range recs {
		result := "ok"
		if !r.OK {
			result = "failed: " + r.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.WorkflowID, r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond), result)
	}
	return w.Flush()
}

func runStatus(cmd *cobra.Command, args []string) error {
	h, err := CheckHealth()
	if h == nil {
		return fmt.Errorf("daemon not reachable at %s: %w", apiAddr, err)
	}
	fmt.Printf("Daemon:  %s (version %s, db %s)\n", okLabel(h.OK), h.Version, h.DB)

	resp, err := apiGet("/status")
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	var out struct {
		Results []health.Result `json:"results"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return err
	}
	if len(out.Results) == 0 {
		fmt.Println("No services configured")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SERVICE\tSTATUS\tLATENCY")
	offline := 0
	for _, r := range out.Results {
		if r.Status != health.StatusOnline {
			offline++
		}
		fmt.Fprintf(w, "%s\t%s\t%dms\n", r.Label, r.Status, r.Latency)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if offline > 0 {
		return fmt.Errorf("%d service(s) offline", offline)
	}
	return nil
}

func okLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "degraded"
}
