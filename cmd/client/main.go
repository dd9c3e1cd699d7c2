package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
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

// Command-line RigelNet client: connects to a server, sends whatever lines
// it reads from stdin as echo requests, and logs every reply and lifecycle
// event until interrupted.
func main() {
	host := flag.String("host", "127.0.0.1", "server host/IP")
	port := flag.Int("port", 19100, "server UDP port")
	localPort := flag.Int("local-port", 0, "local UDP port to bind, 0 for any")
	passphrase := flag.String("passphrase", "", "passphrase to present to the server")
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

	cfg := rnconfig.ClientConfig{
		Passphrase:    *passphrase,
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
		telemetry = rnmetrics.New(reg, "client")
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
		fmt.Println(ctx.Packet.ExtractString())
		return nil
	})

	clientOpts := rigelnet.ClientOptions{
		Passphrase:    cfg.Passphrase,
		MaxPacketSize: cfg.MaxPacketSize,
		TimeoutLimit:  cfg.TimeoutLimit,
		Registry:      registry,
	}
	if telemetry != nil {
		clientOpts.Telemetry = telemetry
	}

	client, err := rigelnet.CreateClient(clientOpts)
	if err != nil {
		logger.Errorf("cannot create client: %v", err)
		os.Exit(1)
	}

	serverAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", *host, *port))
	if err != nil {
		logger.Errorf("cannot resolve server address: %v", err)
		os.Exit(1)
	}
	if err := client.Connect(uint16(*localPort), serverAddr); err != nil {
		logger.Errorf("cannot connect: %v", err)
		os.Exit(1)
	}
	defer client.Disconnect(true)

	logger.WithField("server", serverAddr.String()).Info("client connecting")

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	tick := time.NewTicker(16 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := client.Compose(rigelnet.ComposeForAll, encodeEcho(line)); err != nil {
				logger.Errorf("cannot send: %v", err)
			}
		case <-tick.C:
			client.Update(rigelnet.UpdateReceive)
			client.Update(rigelnet.UpdateSend)
			for {
				ev, ok := client.PollEvent()
				if !ok {
					break
				}
				logEvent(logger, ev)
			}
		}
	}
}

func logEvent(logger *rnlog.Logger, ev rigelnet.Event) {
	switch ev.Kind {
	case rigelnet.EventConnected:
		logger.Info("connected to server")
	case rigelnet.EventDisconnected:
		logger.WithFields(map[string]interface{}{
			"reason":  ev.DisconnectReason,
			"message": ev.DisconnectMessage,
		}).Warn("disconnected from server")
	case rigelnet.EventConnectAttemptFailed:
		logger.WithField("reason", ev.ConnectAttemptFailReason).Warn("connect attempt failed")
	case rigelnet.EventBadPassphrase:
		logger.WithField("received", ev.BadPassphraseReceived).Warn("bad passphrase")
	}
}

const echoHandlerID = 1

func encodeEcho(msg string) []byte {
	p := rnwire.New()
	p.AppendUint32(echoHandlerID)
	p.AppendString(msg)
	return p.Data()
}
