// Package commands dispatches prefix commands parsed from trigger messages
// to registered handlers. It is the downstream callback of the event bridge:
// edited triggers re-enter here so a handler can re-run and the responder
// can edit the previous response in place.
package commands
