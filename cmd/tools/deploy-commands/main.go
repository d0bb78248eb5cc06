package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/bwmarrin/discordgo"

	"community-bot/internal/common/config"
	"community-bot/pkg/registry"
)

func main() {
	deployCmd := flag.NewFlagSet("deploy", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	deployPath := deployCmd.String("registry", "", "Path to a command registry JSON file (default: built-in commands)")
	dryRun := deployCmd.Bool("dry-run", false, "Print the commands without calling Discord")
	validatePath := validateCmd.String("registry", "configs/commands.json", "Path to a command registry JSON file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "deploy":
		deployCmd.Parse(os.Args[2:])
		reg, err := load(*deployPath)
		if err != nil {
			fmt.Printf("Error loading registry: %v\n", err)
			os.Exit(1)
		}
		if *dryRun {
			for _, c := range reg.Commands {
				fmt.Printf("/%s  %s (adminOnly=%t)\n", c.Name, c.Description, c.AdminOnly)
			}
			return
		}
		if err := deploy(reg); err != nil {
			fmt.Printf("Error deploying commands: %v\n", err)
			os.Exit(1)
		}

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if _, err := registry.LoadRegistry(*validatePath); err != nil {
			fmt.Printf("Registry invalid: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Registry is valid.")

	default:
		help()
		os.Exit(1)
	}
}

func load(path string) (*registry.CommandRegistry, error) {
	if path == "" {
		return registry.Default(), nil
	}
	return registry.LoadRegistry(path)
}

// deploy replaces every guild command with the registry's set.
func deploy(reg *registry.CommandRegistry) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Discord.ClientID == "" {
		return fmt.Errorf("discord.client_id is required")
	}

	session, err := discordgo.New("Bot " + cfg.Discord.BotToken)
	if err != nil {
		return err
	}

	created, err := session.ApplicationCommandBulkOverwrite(cfg.Discord.ClientID, cfg.Discord.GuildID, reg.ApplicationCommands())
	if err != nil {
		return err
	}
	fmt.Printf("Successfully registered %d application commands in guild %s.\n", len(created), cfg.Discord.GuildID)
	return nil
}

func help() {
	fmt.Println("Usage: deploy-commands <command> [flags]")
	fmt.Println("Commands:")
	fmt.Println("  deploy    Register slash commands in the configured guild")
	fmt.Println("  validate  Check a command registry file")
}
