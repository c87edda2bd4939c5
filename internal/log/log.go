// Package log adds logging utilities.
package log

import (
	"strings"
	"time"

	"ChatDraw/internal/wire"

	"github.com/sirupsen/logrus"
)

// SetLogger sets the default logger's level and format.
func SetLogger(level string) {
	customFormatter := new(logrus.TextFormatter)
	customFormatter.TimestampFormat = time.RFC3339
	customFormatter.FullTimestamp = true
	logrus.SetFormatter(customFormatter)
	logrus.SetLevel(ParseLevel(level))
}

// ParseLevel maps a level name to a logrus level, defaulting to info.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// MessageFields describes a wire message without dumping its payload.
func MessageFields(msg wire.Message) logrus.Fields {
	fields := logrus.Fields{"type": string(msg.Kind)}
	switch msg.Kind {
	case wire.KindName:
		fields["name"] = msg.Name
	case wire.KindChat:
		fields["len"] = len(msg.Text)
	case wire.KindDraw:
		if msg.Action != nil {
			fields["shape"] = string(msg.Action.Shape)
			fields["points"] = len(msg.Action.Vertices())
		}
	case wire.KindHistory:
		fields["history"] = len(msg.History)
	}
	return fields
}
