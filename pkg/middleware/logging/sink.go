package logging

import (
	"io"
	"os"

	"github.com/nimburion/requestid/pkg/observability/logger"
)

// newSink returns log for OutputLogger, otherwise a JSON logger writing to the
// selected standard stream.
func newSink(log logger.Logger, output Output) logger.Logger {
	var stream io.Writer
	switch output {
	case OutputStdout:
		stream = os.Stdout
	case OutputStderr:
		stream = os.Stderr
	default:
		return log
	}
	return streamLogger(log, stream)
}

func streamLogger(fallback logger.Logger, w io.Writer) logger.Logger {
	sink, err := logger.NewZapLogger(logger.Config{
		Level:  logger.InfoLevel,
		Format: logger.JSONFormat,
		Output: w,
	})
	if err != nil {
		fallback.Warn("access log stream unavailable, using logger output", "error", err)
		return fallback
	}
	return sink
}
