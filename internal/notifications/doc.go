// Package notifications pushes poll-cycle events to ntfy.
//
// The topic comes from config.toml (or NTFY_TOPIC). A bare topic name is
// published to ntfy.sh; a full URL is used as-is. Without a topic the
// service is a no-op, so callers never need to check whether notifications
// are enabled.
package notifications
