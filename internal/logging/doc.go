// Package logging provides structured logging for conclave runs.
//
// The package wraps Go's log/slog to emit JSON log lines with run, stage and
// task context attached. Pipeline layers below the lifecycle controller never
// surface errors directly; they are recovered locally and recorded here, so
// these logs are the primary tool for understanding why a persona or executor
// produced no usable output.
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. Child loggers created
// via With* methods share the underlying writer. [RotatingWriter] serializes
// writes and rotation behind a mutex.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger(logging.Options{Dir: "/path/to/logs", Level: "INFO"})
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	runLogger := logger.WithRun("0192f3c0-...").WithStage("ideation")
//	runLogger.WithTask("contrarian").Warn("model call failed", "error", err.Error())
//
// Output:
//
//	{"time":"...","level":"WARN","msg":"model call failed","run_id":"0192f3c0-...","stage":"ideation","task_id":"contrarian","error":"..."}
//
// # Log Rotation
//
// When Options.MaxSizeMB is non-zero the log file is rotated once it grows
// past that size. Rotated files are named conclave.log.1 (newest) through
// conclave.log.N and are gzip compressed when Options.Compress is set.
//
// # Testing
//
// Use [NopLogger] to discard all output, or [NewLoggerTo] to capture log
// lines in a buffer and assert on them.
package logging
