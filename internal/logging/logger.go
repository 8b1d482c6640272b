package logging

import (
	"os"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var logger *logrus.Logger
var allocatorLogger *logrus.Logger

// allocationRunSeqHook stamps every allocator log line with the decision
// sequence number it belongs to, so offers and inverse offers emitted across
// one allocation run can be grep'd back together.
type allocationRunSeqHook struct {
	seq *atomic.Int64
}

func (h *allocationRunSeqHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *allocationRunSeqHook) Fire(entry *logrus.Entry) error {
	if _, ok := entry.Data["run"]; !ok {
		entry.Data["run"] = h.seq.Load()
	}
	return nil
}

// allocationRunSeq is advanced by the allocator at the start of each
// allocation run (via BumpLogRunSeq) so Fire can tag in-flight
// decision logs without every call site passing the run number explicitly.
var allocationRunSeq atomic.Int64

// BumpLogRunSeq advances the allocation-run counter the allocator decision
// log stamps onto every line; call it once per allocation run.
func BumpLogRunSeq() int64 {
	return allocationRunSeq.Add(1)
}

func init() {
	logger = logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
		DisableColors: false,
	})
	logger.SetLevel(logrus.InfoLevel)

	allocatorLogger = logrus.New()
	allocatorLogger.SetOutput(os.Stdout)
	allocatorLogger.SetFormatter(&logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "time",
			logrus.FieldKeyMsg:  "event",
		},
	})
	allocatorLogger.SetLevel(logrus.InfoLevel)
	allocatorLogger.AddHook(&allocationRunSeqHook{seq: &allocationRunSeq})
}

// GetLogger returns the general-purpose logger (CLI, config loading).
func GetLogger() *logrus.Logger {
	return logger
}

// GetAllocatorLogger returns the allocator decision log, field-tagged so
// its lines are distinguishable from general output when both are piped to
// the same sink.
func GetAllocatorLogger() *logrus.Logger {
	return allocatorLogger
}

func SetLogLevel(level string) error {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(logLevel)
	return nil
}

func SetAllocatorLogLevel(level string) error {
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	allocatorLogger.SetLevel(logLevel)
	return nil
}

func SetFormatter(formatter logrus.Formatter) {
	logger.SetFormatter(formatter)
}
