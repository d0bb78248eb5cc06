// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bwmarrin/discordgo"
)

// Default is the command set the bot ships with.
func Default() *CommandRegistry {
	return &CommandRegistry{
		Version: "1",
		Commands: []Command{
			{Name: CommandInitChannel, Description: "Initializes the verify channel.", AdminOnly: true},
			{Name: CommandVerify, Description: "Verify your subscription with your community code."},
		},
	}
}

// LoadRegistry reads a command registry from a JSON file.
func LoadRegistry(path string) (*CommandRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg CommandRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse command registry %s: %w", path, err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate rejects registries the bot could not route.
func (r *CommandRegistry) Validate() error {
	seen := map[string]bool{}
	for _, c := range r.Commands {
		if c.Name == "" || c.Description == "" {
			return fmt.Errorf("command %q needs a name and a description", c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("command %q registered twice", c.Name)
		}
		if c.Name != CommandInitChannel && c.Name != CommandVerify {
			return fmt.Errorf("command %q has no handler", c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

// ApplicationCommands converts the registry to Discord command definitions.
// Admin-only commands are hidden from members without the Administrator
// permission.
func (r *CommandRegistry) ApplicationCommands() []*discordgo.ApplicationCommand {
	cmds := make([]*discordgo.ApplicationCommand, 0, len(r.Commands))
	for _, c := range r.Commands {
		cmd := &discordgo.ApplicationCommand{
			Name:        c.Name,
			Description: c.Description,
			Type:        discordgo.ChatApplicationCommand,
		}
		if c.AdminOnly {
			perms := int64(discordgo.PermissionAdministrator)
			cmd.DefaultMemberPermissions = &perms
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

// IsAdminOnly reports whether name requires the Administrator permission.
func (r *CommandRegistry) IsAdminOnly(name string) bool {
	for _, c := range r.Commands {
		if c.Name == name {
			return c.AdminOnly
		}
	}
	return false
}

// VerifyButtonRow is the "Verify me" button posted by /initchannel.
func VerifyButtonRow() discordgo.ActionsRow {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{
			Label:    "Verify me",
			Style:    discordgo.PrimaryButton,
			CustomID: VerifyButtonID,
		},
	}}
}

// VerifyModal asks the member for the community code from their account page.
func VerifyModal() *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: SubscriptionKeyModalID,
		Title:    "Provide your community code",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID: SubscriptionKeyInputID,
					Label:    "Community code",
					Style:    discordgo.TextInputShort,
					Required: true,
				},
			}},
		},
	}
}
