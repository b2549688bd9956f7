// Package fergun defines the neutral protocol surface shared by the bot's
// subsystems: snowflake identifiers, message payloads, the Gateway
// collaborator interface, gateway event payloads, and sentinel errors.
package fergun
