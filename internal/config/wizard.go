package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .newsrag.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to newsrag! Let's configure your news engine.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Store backend.
	backendPrompt := promptui.Select{
		Label: "Select document store backend",
		Items: []string{
			"local  (in-memory with sqlite persistence)",
			"remote (HTTP document store with local failover)",
		},
	}
	backendIdx, _, err := backendPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("backend selection: %w", err)
	}
	if backendIdx == 1 {
		cfg.Store.Backend = BackendRemote
		urlPrompt := promptui.Prompt{
			Label:   "Remote store base URL",
			Default: "http://localhost:9090",
		}
		remoteURL, err := urlPrompt.Run()
		if err != nil {
			return nil, fmt.Errorf("remote url: %w", err)
		}
		cfg.Store.RemoteURL = remoteURL
	}

	// 2. Database path (local persistence / failover).
	pathPrompt := promptui.Prompt{
		Label:   "SQLite database path",
		Default: cfg.Store.Path,
	}
	if cfg.Store.Path, err = pathPrompt.Run(); err != nil {
		return nil, fmt.Errorf("database path: %w", err)
	}

	// 3. OpenAI model.
	modelPrompt := promptui.Select{
		Label: "Select answer model",
		Items: []string{"gpt-4o-mini", "gpt-4o", "gpt-4"},
	}
	if _, cfg.OpenAI.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model selection: %w", err)
	}

	// 4. Server port.
	portPrompt := promptui.Prompt{
		Label:   "HTTP server port",
		Default: strconv.Itoa(cfg.Server.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	if os.Getenv("OPENAI_API_KEY") == "" {
		fmt.Println("\nNote: Set OPENAI_API_KEY in your environment to enable answer generation. Without it, newsrag runs with deterministic offline embeddings and extractive answers.")
	}

	if err := cfg.Save(DefaultConfigFile); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", DefaultConfigFile)
	return cfg, nil
}
