package common

import (
	"os"

	"github.com/sirupsen/logrus"
)

var ServiceName = "dispatcher"

func init() {
	logger := logrus.StandardLogger()
	logger.Out = os.Stdout
	logger.Formatter = &logrus.TextFormatter{}
	logger.AddHook(&DefaultFieldsHook{})
}

// ConfigureLogging switches the standard logger level and formatter, json output is used outside development
func ConfigureLogging(level string, json bool) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logger := logrus.StandardLogger()
	logger.SetLevel(lvl)
	if json {
		logger.Formatter = &logrus.JSONFormatter{}
	} else {
		logger.Formatter = &logrus.TextFormatter{}
	}
	return nil
}

type DefaultFieldsHook struct {
}

func (hook *DefaultFieldsHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (hook *DefaultFieldsHook) Fire(e *logrus.Entry) error {
	if _, found := e.Data["service"]; !found {
		e.Data["service"] = ServiceName
	}
	return nil
}
