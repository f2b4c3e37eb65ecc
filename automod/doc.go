// Moderation of the free-text messages attached to tips.
//
// This package (`github.com/tiptune/tipmod/automod`) ties together keyword rules (`automod/rulestore`), the message filter (`automod/engine`), and persistence of moderation logs (`automod/logstore`). Every tip carrying a message gets exactly one moderation log, and the tip message is approved as-is, sanitized, hidden pending human review, or blocked. Flagged messages land in a review queue, where a human reviewer either restores or permanently clears them.
//
// See `cmd/tipmod` for a daemon built on this package.
package automod
