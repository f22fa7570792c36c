package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shimmerhq/anyproxy/internal/process"
	"github.com/shimmerhq/anyproxy/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the proxy server",
	Long:  `Start the LLM proxy server in the foreground.`,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logFile, _ := cmd.Flags().GetBool("log-file")
	setupLogging(verbose, logFile)

	if err := ensureConfigured(); err != nil {
		return err
	}

	cfg := cfgMgr.Get()

	color.Green("Starting %s v%s...", AppName, Version)
	logger.Info("Starting server",
		"host", cfg.Host,
		"port", cfg.Port,
		"mode", cfg.Mode,
	)

	for _, warning := range cfg.BaseURLWarnings() {
		logger.Warn(warning)
	}

	procMgr := process.NewManager(baseDir)
	if err := procMgr.WritePID(); err != nil {
		return err
	}
	defer procMgr.CleanupPID()

	srv := server.New(cfgMgr, logger)
	return srv.Start()
}
