package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shimmerhq/anyproxy/internal/process"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show proxy server status",
	Long:  `Display the current status of the LLM proxy server.`,
	Run:   runStatus,
}

func runStatus(cmd *cobra.Command, _ []string) {
	procMgr := process.NewManager(baseDir)
	cfg := cfgMgr.Get()

	running := procMgr.IsRunning()
	pid := procMgr.ReadPID()

	color.Blue("Status for %s:", AppName)
	fmt.Printf("  %-15s: %v\n", "Running", running)
	fmt.Printf("  %-15s: %d\n", "PID", pid)

	if cfg != nil {
		backends := 0
		if cfg.HasAnthropicNative() {
			backends++
		}
		if cfg.HasOpenAINative() {
			backends++
		}
		if cfg.HasGenericUpstream() {
			backends++
		}

		fmt.Printf("  %-15s: %s\n", "Host", cfg.Host)
		fmt.Printf("  %-15s: %d\n", "Port", cfg.Port)
		fmt.Printf("  %-15s: %s\n", "Endpoint", fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port))
		fmt.Printf("  %-15s: %s\n", "Mode", cfg.Mode)
		fmt.Printf("  %-15s: %d\n", "Backends configured", backends)
	}

	fmt.Printf("  %-15s: v%s\n", "Version", Version)
}
