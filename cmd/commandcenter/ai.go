package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fentz26/commandcenter/internal/ai"
	"github.com/fentz26/commandcenter/internal/assistant"
)

var aiCmd = &cobra.Command{
	Use:   "ai",
	Short: "Talk to the configured AI backend",
}

var aiChatCmd = &cobra.Command{
	Use:   "chat [message...]",
	Short: "Send one chat message and stream the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAIChat,
}

var aiBriefingCmd = &cobra.Command{
	Use:   "briefing",
	Short: "Generate a daily briefing from open Notion tasks",
	RunE:  runAIBriefing,
}

var aiBreakdownCmd = &cobra.Command{
	Use:   "breakdown [goal...]",
	Short: "Split a goal into at most five subtasks",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAIBreakdown,
}

var aiReviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Write a weekly review from completed tasks",
	RunE:  runAIReview,
}

var aiModelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available on the local backend",
	RunE:  runAIModels,
}

var (
	aiModel     string
	chatContext string
	reviewDone  []string
	reviewOpen  int
)

func init() {
	aiCmd.AddCommand(aiChatCmd, aiBriefingCmd, aiBreakdownCmd, aiReviewCmd, aiModelsCmd)

	aiCmd.PersistentFlags().StringVar(&aiModel, "model", "", "Model override")
	aiChatCmd.Flags().StringVar(&chatContext, "context", "", "System instructions sent before the message")
	aiReviewCmd.Flags().StringArrayVar(&reviewDone, "done", nil, "A completed task (repeatable)")
	aiReviewCmd.Flags().IntVar(&reviewOpen, "open", 0, "Number of tasks still open")
}

func runAIChat(cmd *cobra.Command, args []string) error {
	body, err := json.Marshal(map[string]string{
		"message": strings.Join(args, " "),
		"model":   aiModel,
		"context": chatContext,
	})
	if err != nil {
		return err
	}

	resp, err := slowClient.Post(apiURL("/ai/chat"), "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var buf bytes.Buffer
		buf.ReadFrom(resp.Body)
		return &apiError{Status: resp.StatusCode, Body: buf.Bytes()}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if jsonOutput {
			fmt.Println(string(line))
			continue
		}
		var chunk ai.StreamChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}
		fmt.Print(chunk.Message.Content)
		if chunk.Done {
			break
		}
	}
	if !jsonOutput {
		fmt.Println()
	}
	return scanner.Err()
}

func runAIBriefing(cmd *cobra.Command, args []string) error {
	resp, err := apiDo(slowClient, http.MethodPost, "/ai/briefing", map[string]string{"model": aiModel})
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	var b assistant.Briefing
	if err := json.Unmarshal(resp, &b); err != nil {
		return err
	}
	fmt.Println(b.Briefing)
	if b.Error != "" {
		fmt.Fprintf(os.Stderr, "warning: %s\n", b.Error)
	}
	return nil
}

func runAIBreakdown(cmd *cobra.Command, args []string) error {
	resp, err := apiDo(slowClient, http.MethodPost, "/ai/breakdown", map[string]string{
		"goal":  strings.Join(args, " "),
		"model": aiModel,
	})
	// The daemon returns fallback subtasks next to an AI error.
	var apiErr *apiError
	if err != nil && !(errors.As(err, &apiErr) && apiErr.Status == http.StatusServiceUnavailable) {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	var out struct {
		Tasks []assistant.Subtask `json:"tasks"`
	}
	if jerr := json.Unmarshal(resp, &out); jerr != nil {
		return jerr
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tTASK\tPRIORITY\tMINUTES")
	for i, t := range out.Tasks {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\n", i+1, t.Task, t.Priority, t.EstimatedMinutes)
	}
	return w.Flush()
}

func runAIReview(cmd *cobra.Command, args []string) error {
	var done strings.Builder
	for _, t := range reviewDone {
		done.WriteString("- " + t + "\n")
	}
	resp, err := apiDo(slowClient, http.MethodPost, "/ai/review", assistant.ReviewInput{
		DoneTasks: done.String(),
		OpenCount: reviewOpen,
		DoneCount: len(reviewDone),
		Model:     aiModel,
	})
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	var out struct {
		Review string `json:"review"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return err
	}
	fmt.Println(out.Review)
	return nil
}

func runAIModels(cmd *cobra.Command, args []string) error {
	resp, err := apiGet("/ai/models")
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	var out struct {
		Models []ai.LocalModel `json:"models"`
	}
	if err := json.Unmarshal(resp, &out); err != nil {
		return err
	}
	if len(out.Models) == 0 {
		fmt.Println("No local models found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSIZE (MB)\tMODIFIED")
	for _, m := range out.Models {
		fmt.Fprintf(w, "%s\t%d\t%s\n", m.Name, m.Size/(1<<20), m.ModifiedAt)
	}
	return w.Flush()
}
