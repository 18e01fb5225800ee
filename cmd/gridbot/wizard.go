package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gridbot/internal/config"

	"github.com/spf13/cobra"
)

func wizardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wizard",
		Short: "Interactive setup: Discord credentials → backend → roles → save config",
		Long:  "Guides you through the Discord bot token, guild, game backend URL, and role mapping. Writes config to the path used by --config or default.",
		RunE:  runWizard,
	}
}

func runWizard(cmd *cobra.Command, args []string) error {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		cfg = config.Defaults()
	}

	reader := bufio.NewReader(os.Stdin)
	prompt := func(def string) (string, error) {
		if def != "" {
			fmt.Fprintf(os.Stdout, " [%s]: ", def)
		} else {
			fmt.Fprint(os.Stdout, ": ")
		}
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", err
		}
		s := strings.TrimSpace(line)
		if s == "" && def != "" {
			return def, nil
		}
		return s, nil
	}

	// Step 1: Discord credentials
	fmt.Println("\n--- Step 1: Discord bot ---")
	fmt.Fprint(os.Stdout, "Bot token (from the Discord developer portal, or ${DISCORD_TOKEN})")
	tokenDef := cfg.Discord.Token
	if tokenDef == "" {
		tokenDef = "${DISCORD_TOKEN}"
	}
	token, err := prompt(tokenDef)
	if err != nil {
		return err
	}
	cfg.Discord.Token = token

	fmt.Fprint(os.Stdout, "Guild (server) ID the bot operates in")
	guild, err := prompt(cfg.Discord.GuildID)
	if err != nil {
		return err
	}
	cfg.Discord.GuildID = guild

	// Step 2: Game backend
	fmt.Println("\n--- Step 2: Game backend ---")
	fmt.Fprint(os.Stdout, "Base URL of the game engine's REST API")
	baseURL, err := prompt(cfg.Backend.BaseURL)
	if err != nil {
		return err
	}
	if baseURL != "" {
		cfg.Backend.BaseURL = baseURL
	}

	// Step 3: Role mapping
	fmt.Println("\n--- Step 3: Role mapping ---")
	fmt.Fprint(os.Stdout, "Admin role IDs (comma separated, blank for none)")
	admins, err := prompt(strings.Join(cfg.Discord.AdminRoleIDs, ","))
	if err != nil {
		return err
	}
	cfg.Discord.AdminRoleIDs = splitRoleIDs(admins)

	fmt.Fprint(os.Stdout, "Commissioner role IDs (comma separated, blank for none)")
	commissioners, err := prompt(strings.Join(cfg.Discord.CommissionerRoleIDs, ","))
	if err != nil {
		return err
	}
	cfg.Discord.CommissionerRoleIDs = splitRoleIDs(commissioners)

	// Save
	cfgDir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "\nConfig saved to %s\n", cfgPath)
	fmt.Println("Next: run 'gridbot doctor' to verify, then 'gridbot gateway' to start.")
	return nil
}

func splitRoleIDs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
