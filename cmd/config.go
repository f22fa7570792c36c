package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/shimmerhq/anyproxy/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Manage the LLM proxy configuration.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration interactively",
	Long:  `Prompt for backend URLs/keys and write a YAML overlay file.`,
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Display the configuration the server would load, with secrets redacted.`,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long:  `Run the same validation the server performs at startup, without binding a port.`,
	RunE:  runConfigValidate,
}

var configGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate an example YAML overlay",
	Long:  `Generate an example YAML configuration overlay file covering every supported backend.`,
	RunE:  runConfigGenerate,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configGenerateCmd)

	configGenerateCmd.Flags().BoolP("force", "f", false, "Overwrite existing overlay file")
}

func overlayPath() string {
	return config.DefaultOverlayPath(baseDir)
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	color.Blue("anyproxy configuration setup")
	color.Yellow("Follow the prompts to configure a backend. Leave a field blank to skip it.")

	reader := bufio.NewReader(os.Stdin)
	prompt := func(label string) (string, error) {
		fmt.Print(label)
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", label, err)
		}
		return strings.TrimSpace(line), nil
	}

	mode, err := prompt("Routing mode (transform/passthrough/auto/gateway) [transform]: ")
	if err != nil {
		return err
	}
	if mode == "" {
		mode = string(config.ModeTransform)
	}

	anthropicBase, err := prompt("Anthropic base URL (optional): ")
	if err != nil {
		return err
	}
	anthropicKey, err := prompt("Anthropic API key (optional): ")
	if err != nil {
		return err
	}
	openaiBase, err := prompt("OpenAI base URL (optional): ")
	if err != nil {
		return err
	}
	openaiKey, err := prompt("OpenAI API key (optional): ")
	if err != nil {
		return err
	}
	upstreamBase, err := prompt("Generic upstream base URL (optional): ")
	if err != nil {
		return err
	}
	upstreamKey, err := prompt("Generic upstream API key (optional): ")
	if err != nil {
		return err
	}
	proxyKey, err := prompt("Proxy API key clients must present (optional): ")
	if err != nil {
		return err
	}

	overlay := &config.FileOverlay{
		Host:            config.DefaultHost,
		Port:            config.DefaultPort,
		RoutingMode:     mode,
		AnthropicBase:   anthropicBase,
		AnthropicAPIKey: anthropicKey,
		OpenAIBase:      openaiBase,
		OpenAIAPIKey:    openaiKey,
		UpstreamBase:    upstreamBase,
		UpstreamAPIKey:  upstreamKey,
		ProxyAPIKey:     proxyKey,
	}

	if err := config.SaveFileOverlay(overlayPath(), overlay); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	color.Green("Configuration saved to: %s", overlayPath())
	color.Cyan("Export its values as the matching environment variables, then run: anyproxy serve")

	return nil
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	cfg := cfgMgr.Get().Redacted()

	color.Blue("Effective configuration:")
	fmt.Printf("  %-15s: %s\n", "Host", cfg.Host)
	fmt.Printf("  %-15s: %d\n", "Port", cfg.Port)
	fmt.Printf("  %-15s: %s\n", "Mode", cfg.Mode)
	fmt.Printf("  %-15s: %s / %s\n", "Anthropic", cfg.AnthropicNative.BaseURL, cfg.AnthropicNative.APIKey)
	fmt.Printf("  %-15s: %s / %s\n", "OpenAI", cfg.OpenAINative.BaseURL, cfg.OpenAINative.APIKey)
	fmt.Printf("  %-15s: %s / %s\n", "Upstream", cfg.GenericUpstream.BaseURL, cfg.GenericUpstream.APIKey)
	fmt.Printf("  %-15s: %s\n", "Proxy API key", cfg.ProxyAPIKey)

	if overlay, err := config.LoadFileOverlay(overlayPath()); err == nil {
		for _, key := range []*string{&overlay.AnthropicAPIKey, &overlay.OpenAIAPIKey, &overlay.UpstreamAPIKey, &overlay.ProxyAPIKey} {
			if *key != "" {
				*key = "****"
			}
		}
		encoded, _ := json.MarshalIndent(overlay, "", "  ")
		fmt.Println("\nSaved overlay:")
		fmt.Println(string(encoded))
	}

	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	cfg := cfgMgr.Get()
	if cfg == nil {
		return errors.New("no configuration loaded")
	}

	if err := cfg.Validate(); err != nil {
		color.Red("Configuration validation failed:")
		fmt.Printf("  - %s\n", err)
		return err
	}

	for _, warning := range cfg.BaseURLWarnings() {
		color.Yellow("Warning: %s", warning)
	}

	color.Green("Configuration is valid!")

	return nil
}

func runConfigGenerate(cmd *cobra.Command, _ []string) error {
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	path := overlayPath()

	if _, statErr := os.Stat(path); statErr == nil && !force {
		color.Yellow("Configuration overlay already exists: %s", path)
		color.Cyan("Use --force to overwrite, or 'anyproxy config show' to view it")
		return nil
	}

	if err := config.SaveFileOverlay(path, config.ExampleOverlay()); err != nil {
		return fmt.Errorf("failed to create example configuration: %w", err)
	}

	color.Green("Example configuration created: %s", path)
	color.Cyan("\nNext steps:")
	fmt.Println("1. Edit the overlay file to add your backend URLs/keys")
	fmt.Println("2. Run 'anyproxy config validate' to check it")
	fmt.Println("3. Export it and run 'anyproxy serve'")

	return nil
}
