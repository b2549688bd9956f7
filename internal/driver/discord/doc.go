// Package discord adapts a discordgo session to the neutral gateway surface.
// It translates platform payloads into domain messages, maps REST failures to
// domain sentinels and fans gateway events out to subscribed handlers.
package discord
