package main

import (
	"context"
	"dispatcher/bizerror"
	"dispatcher/capacity"
	"dispatcher/common"
	"dispatcher/config"
	"dispatcher/dispatch"
	"dispatcher/event"
	"dispatcher/infra/tracing"
	"dispatcher/poller"
	"dispatcher/remote"
	"dispatcher/servehttp"
	"dispatcher/session"
	"dispatcher/view"
	"net/http"

	"github.com/facebookgo/clock"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

func main() {
	logrus.Info("service start")

	conf, err := config.ParseConfigFromEnv()
	if err != nil {
		logrus.Fatalf("parse config failed %v", err)
	}
	if err := common.ConfigureLogging(conf.LogLevel, conf.LogJSON); err != nil {
		logrus.Fatalf("configure logging failed %v", err)
	}

	tracerCloser, err := tracing.InitGlobalTracer(common.ServiceName)
	if err != nil {
		logrus.Fatalf("init tracer failed %v", err)
	}
	defer tracerCloser.Close()

	if conf.SessionsFile != "" {
		n, err := session.LoadTokenFile(conf.SessionsFile, conf.RolePolicy)
		if err != nil {
			logrus.Fatalf("load sessions file failed %v", err)
		}
		logrus.Infof("%d api tokens loaded", n)
	}

	event.RegisterHandler(event.LogHandler)

	clk := clock.New()
	svc := remote.NewClient(remote.ClientConfig{BaseURL: conf.RemoteURL, Token: conf.RemoteToken, RateLimit: conf.RemoteRate, Burst: 5})
	tracker := capacity.NewTracker(clk)
	localView := view.NewView(conf.DeltaTTL, clk)
	coordinator := dispatch.NewCoordinator(svc, tracker, localView, clk)
	orderPoller := poller.NewPoller(svc, localView, tracker, clk, conf.PollInterval)
	roster := poller.NewRosterRefresher(svc, tracker, clk, conf.RosterSchedule)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := roster.Start(ctx); err != nil {
		logrus.Fatalf("start roster refresher failed %v", err)
	}
	orderPoller.Start(ctx)

	engine := gin.Default()
	engine.Use(bizerror.ErrorHandling(), tracing.TracingIngress())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, common.ServiceName)
	})
	servehttp.RegisterDispatchRestAPI(engine, &servehttp.DispatchAPI{
		Coordinator: coordinator,
		View:        localView,
		Poller:      orderPoller,
		Tracker:     tracker,
		SyncLimiter: rate.NewLimiter(rate.Every(conf.PollInterval/5), 1),
	}, session.SimpleAuthFilter())

	servehttp.StartHTTPServer(engine, conf.ListenAddr, orderPoller.Stop, roster.Stop, cancel)
}
