package log

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	waLog "go.mau.fi/whatsmeow/util/log"
)

var logger = logrus.New()

func init() {
	logger.Formatter = &logrus.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
		DisableColors:   false,
		ForceColors:     true,
	}
}

// SetLevel parses a logrus level name; unknown names keep the current level.
func SetLevel(level string) {
	if lvl, err := logrus.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
}

// Logger exposes the underlying logger for tests and adapters.
func Logger() *logrus.Logger {
	return logger
}

func Print(c *fiber.Ctx) *logrus.Entry {
	if c == nil {
		return logger.WithFields(logrus.Fields{})
	}

	remoteIP := c.IP()
	if v := c.Locals("remote_ip"); v != nil {
		if ip, ok := v.(string); ok && ip != "" {
			remoteIP = ip
		}
	}
	fields := logrus.Fields{
		"remote_ip": remoteIP,
		"method":    c.Method(),
		"uri":       c.OriginalURL(),
	}
	if id, ok := c.Locals("request_id").(string); ok && id != "" {
		fields["request_id"] = id
	}
	return logger.WithFields(fields)
}

// Session returns an entry scoped to one bot number and operation.
func Session(number string, op string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"number": Mask(number),
		"op":     op,
	})
}

// SysErr logs a background failure that has no request to report to.
func SysErr(op string, err error) {
	logger.WithField("op", op).WithError(err).Error("background operation failed")
}

// Mask hides the last four digits of a number.
func Mask(number string) string {
	if len(number) < 4 {
		return number
	}
	return number[:len(number)-4] + "xxxx"
}

type waLogger struct {
	entry *logrus.Entry
}

// WhatsApp adapts logrus to the whatsmeow logger interface.
func WhatsApp(module string) waLog.Logger {
	return &waLogger{entry: logger.WithField("module", module)}
}

func (l *waLogger) Debugf(msg string, args ...interface{}) { l.entry.Debugf(msg, args...) }
func (l *waLogger) Infof(msg string, args ...interface{})  { l.entry.Infof(msg, args...) }
func (l *waLogger) Warnf(msg string, args ...interface{})  { l.entry.Warnf(msg, args...) }
func (l *waLogger) Errorf(msg string, args ...interface{}) { l.entry.Errorf(msg, args...) }

func (l *waLogger) Sub(module string) waLog.Logger {
	parent, _ := l.entry.Data["module"].(string)
	if parent != "" {
		module = parent + "/" + module
	}
	return &waLogger{entry: logger.WithField("module", module)}
}
