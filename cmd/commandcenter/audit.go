package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fentz26/commandcenter/internal/audit"
	"github.com/fentz26/commandcenter/internal/models"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit the Notion workspace and inspect past runs",
}

var auditRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Audit the workspace now and record the run",
	RunE:  runAuditRun,
}

var auditHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded audit runs",
	RunE:  runAuditHistory,
}

var auditShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show the full report of a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditShow,
}

var auditDiffCmd = &cobra.Command{
	Use:   "diff [from-id] [to-id]",
	Short: "Show issues added and resolved between two runs (default: the latest two)",
	Args:  cobra.RangeArgs(0, 2),
	RunE:  runAuditDiff,
}

var (
	historyLimit   int
	severityFilter string
)

func init() {
	auditCmd.AddCommand(auditRunCmd, auditHistoryCmd, auditShowCmd, auditDiffCmd)

	auditHistoryCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of runs to list")
	auditRunCmd.Flags().StringVar(&severityFilter, "severity", "", "Only print issues of this severity (error, warning, info)")
	auditShowCmd.Flags().StringVar(&severityFilter, "severity", "", "Only print issues of this severity (error, warning, info)")
}

func runAuditRun(cmd *cobra.Command, args []string) error {
	resp, err := apiDo(slowClient, http.MethodPost, "/audit?trigger=cli", nil)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	var result models.AuditResult
	if err := json.Unmarshal(resp, &result); err != nil {
		return err
	}
	printReport(&result)
	return nil
}

func runAuditHistory(cmd *cobra.Command, args []string) error {
	resp, err := apiGet(fmt.Sprintf("/audit/runs?limit=%d", historyLimit))
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	var runs []models.AuditRun
	if err := json.Unmarshal(resp, &runs); err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No audit runs recorded")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRUN AT\tISSUES\tERRORS\tWARNINGS\tINFO\tTRIGGER")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			truncateID(r.ID), r.RunAt.Local().Format("2006-01-02 15:04"), r.TotalIssues, r.Errors, r.Warnings, r.Info, r.Trigger)
	}
	return w.Flush()
}

func runAuditShow(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/audit/runs/" + url.PathEscape(args[0]))
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	var run models.AuditRun
	if err := json.Unmarshal(resp, &run); err != nil {
		return err
	}
	fmt.Printf("Run:     %s (%s)\n", run.ID, run.Trigger)
	if run.Result == nil {
		fmt.Println("Report not stored")
		return nil
	}
	printReport(run.Result)
	return nil
}

func runAuditDiff(cmd *cobra.Command, args []string) error {
	q := url.Values{}
	if len(args) == 2 {
		q.Set("from", args[0])
		q.Set("to", args[1])
	} else if len(args) == 1 {
		return fmt.Errorf("give both run ids or none")
	}
	path := "/audit/diff"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := apiGet(path)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	var diff struct {
		From   string       `json:"from"`
		To     string       `json:"to"`
		Change audit.Change `json:"change"`
	}
	if err := json.Unmarshal(resp, &diff); err != nil {
		return err
	}

	fmt.Printf("%s -> %s\n", truncateID(diff.From), truncateID(diff.To))
	if diff.Change.Empty() {
		fmt.Println("No change")
		return nil
	}
	for _, k := range diff.Change.Added {
		fmt.Println("+ " + k)
	}
	for _, k := range diff.Change.Resolved {
		fmt.Println("- " + k)
	}
	return nil
}

func printReport(r *models.AuditResult) {
	fmt.Printf("Run at:  %s\n", r.RunAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Issues:  %d (%d errors, %d warnings, %d info)\n", r.TotalIssues, r.Errors, r.Warnings, r.Info)
	fmt.Printf("Records: %d tasks, %d projects, %d areas\n\n",
		r.Summary.Tasks.Total, r.Summary.Projects.Total, r.Summary.Areas.Total)

	issues := r.Issues
	if severityFilter != "" {
		issues = issues[:0:0]
		for _, i := range r.Issues {
			if string(i.Severity) == severityFilter {
				issues = append(issues, i)
			}
		}
	}
	if len(issues) == 0 {
		fmt.Println("No issues")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEVERITY\tDATABASE\tPAGE\tTYPE\tMESSAGE")
	for _, i := range issues {
		name := i.PageName
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", i.Severity, i.Database, name, i.Type, i.Message)
	}
	w.Flush()
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
