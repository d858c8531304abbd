package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fentz26/commandcenter/internal/intake"
	"github.com/fentz26/commandcenter/internal/models"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Submit and manage intake leads",
}

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leads (admin)",
	RunE:  runLeadsList,
}

var leadsSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit an intake form",
	RunE:  runLeadsSubmit,
}

var leadsStatusCmd = &cobra.Command{
	Use:   "status [lead-id] [new|contacted|qualified|closed]",
	Short: "Move a lead through the funnel (admin)",
	Args:  cobra.ExactArgs(2),
	RunE:  runLeadsStatus,
}

var leadsLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in as admin and store the session",
	RunE:  runLeadsLogin,
}

var leadsLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored admin session",
	RunE:  runLeadsLogout,
}

var (
	leadStatus string
	leadForm   intake.Form
	password   string
)

func init() {
	leadsCmd.AddCommand(leadsListCmd, leadsSubmitCmd, leadsStatusCmd, leadsLoginCmd, leadsLogoutCmd)

	leadsListCmd.Flags().StringVar(&leadStatus, "status", "", "Filter by status (new, contacted, qualified, closed)")

	leadsSubmitCmd.Flags().StringVar(&leadForm.Name, "name", "", "Contact name (required)")
	leadsSubmitCmd.Flags().StringVar(&leadForm.Email, "email", "", "Contact email (required)")
	leadsSubmitCmd.Flags().StringVar(&leadForm.Company, "company", "", "Company")
	leadsSubmitCmd.Flags().StringVar(&leadForm.QuestionType, "type", "", "Question type")
	leadsSubmitCmd.Flags().StringVar(&leadForm.Description, "desc", "", "What the lead needs (required)")
	leadsSubmitCmd.MarkFlagRequired("name")
	leadsSubmitCmd.MarkFlagRequired("email")
	leadsSubmitCmd.MarkFlagRequired("desc")

	leadsLoginCmd.Flags().StringVar(&password, "password", "", "Admin password (prompted when empty)")
}

func runLeadsList(cmd *cobra.Command, args []string) error {
	path := "/leads"
	if leadStatus != "" {
		path += "?status=" + url.QueryEscape(leadStatus)
	}
	resp, err := apiGet(path)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	var leads []models.Lead
	if err := json.Unmarshal(resp, &leads); err != nil {
		return err
	}
	if len(leads) == 0 {
		fmt.Println("No leads found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tCATEGORY\tURGENCY\tSTATUS\tCREATED")
	for _, l := range leads {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			truncateID(l.ID), l.Name, l.Email, l.Category, l.Urgency, l.Status, l.CreatedAt.Local().Format("2006-01-02"))
	}
	return w.Flush()
}

func runLeadsSubmit(cmd *cobra.Command, args []string) error {
	resp, err := apiDo(slowClient, http.MethodPost, "/leads", leadForm)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	var sub intake.Submission
	if err := json.Unmarshal(resp, &sub); err != nil {
		return err
	}
	fmt.Printf("Lead %s received (category %s, urgency %d)\n", truncateID(sub.LeadID), sub.Category, sub.Urgency)
	if sub.Summary != "" {
		fmt.Println(sub.Summary)
	}
	return nil
}

func runLeadsStatus(cmd *cobra.Command, args []string) error {
	status := models.LeadStatus(args[1])
	if !status.Valid() {
		return fmt.Errorf("invalid status %q (want new, contacted, qualified or closed)", args[1])
	}
	resp, err := apiPost("/leads/"+url.PathEscape(args[0])+"/status", map[string]string{"status": string(status)})
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}
	fmt.Printf("Lead %s is now %s\n", truncateID(args[0]), status)
	return nil
}

func runLeadsLogin(cmd *cobra.Command, args []string) error {
	if password == "" {
		fmt.Print("Admin password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimSpace(line)
	}

	resp, err := apiPost("/auth/login", map[string]string{"password": password})
	if err != nil {
		return err
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return err
	}

	m, err := authManager()
	if err != nil {
		return err
	}
	if err := m.Save(out.Token); err != nil {
		return err
	}
	fmt.Println("Signed in")
	return nil
}

func runLeadsLogout(cmd *cobra.Command, args []string) error {
	m, err := authManager()
	if err != nil {
		return err
	}
	if m.Token() == "" {
		fmt.Println("Not signed in")
		return nil
	}
	if err := m.Logout(); err != nil {
		return err
	}
	fmt.Println("Signed out")
	return nil
}
