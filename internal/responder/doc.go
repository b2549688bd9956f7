// Package responder implements the reply-or-edit protocol: given a trigger
// message, it either edits the bot response already correlated with that
// trigger or sends a fresh response and registers the correlation. Repeated
// invocation for one trigger yields exactly one live response message.
package responder
