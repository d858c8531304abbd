package main

import (
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/commandcenter/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Browse the latest audit report in the terminal",
	RunE:  runTUI,
}

var noStartDaemon bool

func init() {
	tuiCmd.Flags().BoolVar(&noStartDaemon, "no-start", false, "Do not start the daemon when it is not running")
}

func runTUI(cmd *cobra.Command, args []string) error {
	if !isDaemonRunning() && !noStartDaemon {
		fmt.Println("Command Center daemon not running. Starting background service...")
		if err := startDaemon(); err != nil {
			return fmt.Errorf("failed to start daemon: %w", err)
		}
	}

	app := tui.New(apiAddr)
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

func isDaemonRunning() bool {
	client := http.Client{Timeout: 500 * time.Millisecond}
	resp, err := client.Get(apiURL("/health"))
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return true
}

func startDaemon() error {
	exe, err := os.Executable()
	if err != nil {
		return err
	}

	args := []string{"daemon"}
	if configFile != "" {
		args = append(args, "--config", configFile)
	}
	cmd := exec.Command(exe, args...)
	// Detach so the daemon survives the TUI.
	configureDaemonProc(cmd)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return err
	}

	fmt.Print("   Waiting for daemon...")
	for i := 0; i < 20; i++ {
		if isDaemonRunning() {
			fmt.Println(" Done.")
			return nil
		}
		time.Sleep(250 * time.Millisecond)
		fmt.Print(".")
	}
	fmt.Println(" Timeout!")
	return fmt.Errorf("daemon started but API not reachable at %s", apiAddr)
}
