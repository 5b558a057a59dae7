// Package logging provides structured logging for the bidding agent.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// persistent context attributes. The monitor runs unattended for long
// periods, so every line it writes carries enough context (component,
// task id, sequence number) to reconstruct what the agent decided and why.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/var/log/bidagent", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	feedLog := logger.WithComponent("feed")
//	feedLog.Warn("indexer query failed", "since", 41, "error", err)
//
// An empty directory logs to stderr.
//
// # Runtime Level Changes
//
// The level lives in a shared [slog.LevelVar]. [Logger.SetLevel] on any
// logger derived from the same root changes the level for all of them; the
// CLI uses this to apply logging.level edits picked up by the config watcher.
//
// # Rotation
//
// [NewLoggerWithRotation] rotates bidagent.log into bidagent.log.1,
// bidagent.log.2, ... once it exceeds MaxSizeMB, keeping MaxBackups files.
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewWriterLogger] with a
// bytes.Buffer to assert on emitted JSON lines.
package logging
