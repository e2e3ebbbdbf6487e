package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/arzzra/jingle_phone/pkg/channel"
	"github.com/arzzra/jingle_phone/pkg/description"
	"github.com/arzzra/jingle_phone/pkg/logging"
	"github.com/arzzra/jingle_phone/pkg/phone"
	"github.com/arzzra/jingle_phone/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// endpoint сторона демонстрационного разговора
type endpoint struct {
	name      string
	transport *session.Manager
	channels  *channel.Manager
	client    *phone.MediaSessionClient
	incoming  []*phone.Call
}

func main() {
	if err := run(); err != nil {
		log.Printf("Ошибка: %v", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		video       = flag.Bool("video", false, "Place a video call")
		join        = flag.Bool("join", false, "Place a second call and join it into the first one")
		metricsAddr = flag.String("metrics-addr", "", "Serve Prometheus metrics on this address and wait for a signal")
		debug       = flag.Bool("debug", false, "Enable debug logging")
	)
	flag.Parse()

	level := "info"
	if *debug {
		level = "debug"
	}
	logger, err := logging.NewWithOutput(os.Stderr, level, false)
	if err != nil {
		return fmt.Errorf("создание логгера: %w", err)
	}

	registry := prometheus.NewRegistry()

	alice, err := newEndpoint("alice@example.com/phone", logger, registry, "alice")
	if err != nil {
		return err
	}
	defer alice.client.Close()

	bob, err := newEndpoint("bob@example.com/phone", logger, registry, "bob")
	if err != nil {
		return err
	}
	defer bob.client.Close()

	session.Link(alice.transport, bob.transport)

	call, err := placeCall(alice, bob, *video)
	if err != nil {
		return fmt.Errorf("звонок: %w", err)
	}

	if *join {
		second, err := placeCall(alice, bob, *video)
		if err != nil {
			return fmt.Errorf("второй звонок: %w", err)
		}
		if err := alice.client.SetFocus(second); err != nil {
			return fmt.Errorf("смена фокуса: %w", err)
		}
		if err := alice.client.JoinCalls(call, second); err != nil {
			return fmt.Errorf("объединение звонков: %w", err)
		}
		fmt.Printf("Объединено: %s, фокус у звонка %d\n", call, alice.client.Focus().ID())
	}

	for _, s := range call.Sessions() {
		printNegotiated(alice, s)
	}

	if *metricsAddr != "" {
		serveMetrics(*metricsAddr, registry)
	}

	for _, s := range call.Sessions() {
		if err := call.TerminateSession(s); err != nil {
			log.Printf("Ошибка завершения сессии %s: %v", s.ID(), err)
		}
	}
	fmt.Printf("Сессий осталось: alice=%d bob=%d\n", alice.transport.Sessions(), bob.transport.Sessions())
	return nil
}

func newEndpoint(jid string, logger logging.Logger, registry *prometheus.Registry, name string) (*endpoint, error) {
	channels, err := channel.NewManager(&channel.Config{
		AudioCodecs: channel.DefaultConfig().AudioCodecs,
		VideoCodecs: channel.DefaultConfig().VideoCodecs,
		Logger:      logger.WithFields(logging.String("endpoint", name)),
	})
	if err != nil {
		return nil, fmt.Errorf("канальный менеджер %s: %w", name, err)
	}

	transport := session.NewManager(session.ManagerConfig{
		Logger: logger.WithFields(logging.String("endpoint", name)),
	})

	config := phone.DefaultConfig(jid)
	config.Logger = logger.WithFields(logging.String("endpoint", name))
	config.Metrics = &phone.MetricsConfig{
		Namespace:  "jingle",
		Subsystem:  name,
		Registerer: registry,
	}

	client, err := phone.NewMediaSessionClient(config, transport, channels)
	if err != nil {
		return nil, fmt.Errorf("клиент %s: %w", name, err)
	}
	if err := client.Register(); err != nil {
		return nil, fmt.Errorf("регистрация клиента %s: %w", name, err)
	}

	ep := &endpoint{name: name, transport: transport, channels: channels, client: client}
	client.OnCallCreate(func(c *phone.Call) {
		ep.incoming = append(ep.incoming, c)
	})
	client.OnFocus(func(newFocus, oldFocus *phone.Call) {
		fmt.Printf("[%s] фокус: %s -> %s\n", name, describe(oldFocus), describe(newFocus))
	})
	return ep, nil
}

// placeCall звонит от caller к callee; callee принимает все входящие сессии
func placeCall(caller, callee *endpoint, video bool) (*phone.Call, error) {
	call := caller.client.CreateCall(video, false)
	if _, err := call.InitiateSession(callee.client.LocalJid()); err != nil {
		return nil, err
	}

	pending := callee.incoming
	callee.incoming = nil
	for _, in := range pending {
		for _, s := range in.Sessions() {
			if err := in.AcceptSession(s); err != nil {
				return nil, fmt.Errorf("accept %s: %w", s.ID(), err)
			}
		}
		if err := callee.client.SetFocus(in); err != nil {
			return nil, err
		}
	}

	// исходящий звонок caller тоже попадает в incoming через OnCallCreate
	caller.incoming = nil
	if err := caller.client.SetFocus(call); err != nil {
		return nil, err
	}
	return call, nil
}

func printNegotiated(ep *endpoint, s session.Session) {
	accepted, err := description.FromSession(s.RemoteDescription())
	if err != nil {
		log.Printf("Сессия %s не согласована: %v", s.ID(), err)
		return
	}

	offer, err := accepted.ToSDP(description.SDPParams{
		SessionName: "jingle_call",
		LocalIP:     "127.0.0.1",
		AudioPort:   10000,
		VideoPort:   10002,
	})
	if err != nil {
		log.Printf("Ошибка SDP: %v", err)
		return
	}
	raw, err := offer.Marshal()
	if err != nil {
		log.Printf("Ошибка сериализации SDP: %v", err)
		return
	}
	fmt.Printf("=== Согласованное описание %s ===\n%s", s.ID(), raw)

	pkt, err := ep.channels.Packetize(s.ID(), make([]byte, 160), 160)
	if err != nil {
		log.Printf("Канал %s не готов: %v", s.ID(), err)
		return
	}
	fmt.Printf("Первый RTP пакет: PT=%d SSRC=%d seq=%d ts=%d\n",
		pkt.PayloadType, pkt.SSRC, pkt.SequenceNumber, pkt.Timestamp)
}

func serveMetrics(addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Ошибка HTTP сервера метрик: %v", err)
		}
	}()
	fmt.Printf("Метрики доступны на http://%s/metrics, Ctrl+C для завершения\n", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	_ = server.Close()
}

func describe(call *phone.Call) string {
	if call == nil {
		return "нет"
	}
	return fmt.Sprintf("звонок %d", call.ID())
}
