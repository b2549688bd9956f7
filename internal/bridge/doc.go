// Package bridge subscribes to gateway message-edited and message-deleted
// streams and mirrors trigger mutations onto cached bot responses: deleted
// triggers cascade deletion of their response, edited triggers undo stale
// response state (attachments, reactions) before the command layer re-runs.
package bridge
