package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"rigelnet"
	"rigelnet/internal/rnconfig"
	"rigelnet/internal/rnlog"
	"rigelnet/internal/rnmetrics"
	"rigelnet/internal/rnwire"
)

// Command-line RigelNet server: binds one UDP socket, accepts up to -size
// clients, and logs every Connected/Disconnected/BadPassphrase event it
// polls off the node until interrupted.
func main() {
	port := flag.Int("port", 19100, "UDP port to bind (>1024)")
	size := flag.Int("size", 8, "number of client slots")
	passphrase := flag.String("passphrase", "", "passphrase clients must present (compared exactly; empty accepts only an empty passphrase)")
	maxPacket := flag.Int("max-packet-size", 4096, "maximum outgoing packet size in bytes")
	timeout := flag.Duration("timeout", 5*time.Second, "connection timeout")
	metricsAddr := flag.String("metrics-addr", "", "address to serve Prometheus /metrics on, empty to disable")
	jsonLogs := flag.Bool("json-logs", false, "emit logs as JSON lines instead of text")
	flag.Parse()

	var logger *rnlog.Logger
	if *jsonLogs {
		logger = rnlog.NewJSON(os.Stdout, logrus.InfoLevel)
	} else {
		logger = rnlog.New(os.Stdout, logrus.InfoLevel)
	}

	cfg := rnconfig.ServerConfig{
		Passphrase:    *passphrase,
		Size:          *size,
		LocalPort:     uint16(*port),
		MaxPacketSize: *maxPacket,
		TimeoutLimit:  *timeout,
	}
	if err := cfg.Validate(); err != nil {
		logger.Errorf("invalid configuration: %v", err)
		os.Exit(1)
	}

	var telemetry *rnmetrics.Collectors
	if *metricsAddr != "" {
		reg := prometheus.NewRegistry()
		telemetry = rnmetrics.New(reg, "server")
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			logger.WithField("addr", *metricsAddr).Info("serving metrics")
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				logger.Errorf("metrics server stopped: %v", err)
			}
		}()
	}

	registry := rigelnet.NewHandlerRegistry()
	registry.Register(echoHandlerID, func(ctx *rigelnet.Context) error {
		msg := ctx.Packet.ExtractString()
		logger.WithFields(map[string]interface{}{
			"sender": ctx.SenderIndex,
			"msg":    msg,
		}).Info("received echo")
		return ctx.Node.ComposeToClient(ctx.SenderIndex, encodeEcho(msg))
	})

	serverOpts := serverOptionsFromConfig(cfg, registry, telemetry)
	server, err := rigelnet.CreateServer(serverOpts)
	if err != nil {
		logger.Errorf("cannot create server: %v", err)
		os.Exit(1)
	}
	if err := server.Start(cfg.LocalPort); err != nil {
		logger.Errorf("cannot start server: %v", err)
		os.Exit(1)
	}
	defer server.Stop()

	logger.WithFields(map[string]interface{}{
		"port": server.LocalPort(),
		"size": server.Size(),
	}).Info("server running")

	tick := time.NewTicker(16 * time.Millisecond)
	defer tick.Stop()
	for range tick.C {
		server.Update(rigelnet.UpdateReceive)
		server.Update(rigelnet.UpdateSend)
		for {
			ev, ok := server.PollEvent()
			if !ok {
				break
			}
			logEvent(logger, ev)
		}
	}
}

func logEvent(logger *rnlog.Logger, ev rigelnet.Event) {
	fields := map[string]interface{}{"client": ev.ClientIndex}
	switch ev.Kind {
	case rigelnet.EventConnected:
		logger.WithFields(fields).Info("client connected")
	case rigelnet.EventDisconnected:
		fields["reason"] = ev.DisconnectReason
		fields["message"] = ev.DisconnectMessage
		logger.WithFields(fields).Warn("client disconnected")
	case rigelnet.EventConnectAttemptFailed:
		fields["reason"] = ev.ConnectAttemptFailReason
		logger.WithFields(fields).Warn("connect attempt failed")
	case rigelnet.EventBadPassphrase:
		fields["received"] = ev.BadPassphraseReceived
		logger.WithFields(fields).Warn("bad passphrase")
	}
}

func serverOptionsFromConfig(cfg rnconfig.ServerConfig, registry *rigelnet.HandlerRegistry, telemetry *rnmetrics.Collectors) rigelnet.ServerOptions {
	opts := rigelnet.ServerOptions{
		Passphrase:    cfg.Passphrase,
		Size:          cfg.Size,
		MaxPacketSize: cfg.MaxPacketSize,
		TimeoutLimit:  cfg.TimeoutLimit,
		Registry:      registry,
	}
	if telemetry != nil {
		opts.Telemetry = telemetry
	}
	return opts
}

const echoHandlerID = 1

func encodeEcho(msg string) []byte {
	p := rnwire.New()
	p.AppendUint32(echoHandlerID)
	p.AppendString(fmt.Sprintf("echo: %s", msg))
	return p.Data()
}
