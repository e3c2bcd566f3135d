// Package binutil holds the process setup shared by the fdswitch binaries.
package binutil

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fdswitch/fdswitch/engine/fslog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLog sets up the fdswitch log system
func SetupLog(component string, logLevel string, logFile string, logStderr bool) {
	fslog.SetSource(component)
	fslog.Infof("Set log level to %s", logLevel)
	fslog.SetLevel(fslog.ParseLevel(logLevel))

	outputWriters := make([]io.Writer, 0, 2)
	if logFile != "" {
		logFileWriter := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100, // megabytes
			MaxBackups: 10,
			MaxAge:     30, //days
			Compress:   true,
		}
		outputWriters = append(outputWriters, logFileWriter)
	}

	if logStderr || len(outputWriters) == 0 {
		outputWriters = append(outputWriters, os.Stderr)
	}

	if len(outputWriters) == 1 {
		fslog.SetOutput(outputWriters[0])
	} else {
		fslog.SetOutput(io.MultiWriter(outputWriters...))
	}
}

// TerminationSignals returns a channel receiving SIGINT and SIGTERM
func TerminationSignals() <-chan os.Signal {
	fslog.Infof("Setup signals ...")
	signal.Ignore(syscall.SIGPIPE, syscall.SIGHUP)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	return sigChan
}
