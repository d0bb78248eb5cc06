// pkg/registry/schema.go
package registry

// Slash commands, component ids and modal ids the bot answers to.
const (
	CommandInitChannel = "initchannel"
	CommandVerify      = "verify"

	VerifyButtonID         = "verifyButton"
	SubscriptionKeyModalID = "subscriptionKeyModal"
	SubscriptionKeyInputID = "subscriptionKeyInput"
)

type CommandRegistry struct {
	Version  string    `json:"version"`
	Commands []Command `json:"commands"`
}

type Command struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	AdminOnly   bool   `json:"adminOnly"`
}
