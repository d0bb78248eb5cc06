package syncmembership

import (
	"encoding/json"

	"community-bot/internal/common/validation"
)

// Job variables may carry ids as numbers when the process model sets them
// from a FEEL expression.
var inputSchema = validation.NewSchema(`{
	"type": "object",
	"properties": {
		"customerId": {
			"type": ["string", "integer"],
			"pattern": "^[0-9]+$",
			"minimum": 1,
			"description": "Storefront customer id"
		},
		"subscriptionId": {
			"type": ["string", "integer"],
			"description": "Subscription used to find the Discord user when none is active"
		}
	},
	"required": ["customerId"]
}`)

// bodySchema validates the optional JSON body of the HTTP sync endpoint.
var bodySchema = validation.NewSchema(`{
	"type": "object",
	"properties": {
		"subscriptionId": {"type": ["string", "integer"]}
	}
}`)

func GetInputSchema() *validation.Schema {
	return inputSchema
}

func GetBodySchema() *validation.Schema {
	return bodySchema
}

// SubscriptionIDFromBody extracts subscriptionId from a body that already
// passed GetBodySchema.
func SubscriptionIDFromBody(body []byte) (string, error) {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", err
	}
	return idString(payload["subscriptionId"]), nil
}
