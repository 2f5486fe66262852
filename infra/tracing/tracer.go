package tracing

import (
	"io"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

// InitGlobalTracer builds a jaeger tracer from the JAEGER_* environment variables and installs it globally.
// JAEGER_DISABLED=true installs a no-op tracer.
func InitGlobalTracer(serviceName string) (io.Closer, error) {
	cfg, err := jaegercfg.FromEnv()
	if err != nil {
		return nil, err
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = serviceName
	}

	tracer, closer, err := cfg.NewTracer(jaegercfg.Logger(logrusLogger{}))
	if err != nil {
		return nil, err
	}
	opentracing.SetGlobalTracer(tracer)
	return closer, nil
}

type logrusLogger struct{}

func (logrusLogger) Error(msg string) {
	logrus.WithField("component", "jaeger").Error(msg)
}

func (logrusLogger) Infof(msg string, args ...interface{}) {
	logrus.WithField("component", "jaeger").Debugf(msg, args...)
}
