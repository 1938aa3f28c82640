// The callcenter demo wires the call center to a loopback media engine and
// runs a small scripted call so the moving parts can be observed end to end:
// directory lookups, engine callbacks, bus notifications and Prometheus
// metrics.
package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"callcenter-core/internal/config"
	"callcenter-core/internal/domain"
	"callcenter-core/internal/engine"
	"callcenter-core/internal/eventbus"
	"callcenter-core/internal/repository/memory"
	redisrepo "callcenter-core/internal/repository/redis"
	"callcenter-core/internal/service/call"
	"callcenter-core/internal/transport/httpapi"
	"callcenter-core/internal/transport/ws"
	"callcenter-core/pkg/logger"
	"callcenter-core/pkg/metrics"
)

func main() {
	logger.InitDefault()
	defer logger.Sync()

	cfg := config.LoadConfig()

	registry := prometheus.NewRegistry()
	callMetrics := metrics.NewCallMetrics(registry, cfg.ServiceName)

	selfUserID := uuid.New()
	selfClientID := uuid.NewString()

	directory, seed := buildDirectory(cfg, selfUserID)

	center, err := call.NewCenter(call.Params{
		SelfUserID:   selfUserID,
		SelfClientID: selfClientID,
		Config:       cfg,
		NewEngine: func(handler engine.EventHandler) engine.Engine {
			return engine.NewLoopback(handler)
		},
		Transport: httpapi.NewClient(cfg.BackendURL, os.Getenv("BACKEND_TOKEN")),
		Directory: directory,
		Metrics:   callMetrics,
	})
	if err != nil {
		logger.Fatal("Failed to create call center", zap.Error(err))
	}
	defer center.Close()

	subscriptions := observe(center.Bus())
	defer func() {
		for _, sub := range subscriptions {
			sub.Close()
		}
	}()

	// Inbound signalling normally arrives over the gateway WebSocket; the
	// demo keeps going without one.
	gateway := ws.NewGateway(cfg.GatewayURL, center)
	if err := gateway.Connect(); err != nil {
		logger.Warn("Gateway unavailable, running scripted flow only", zap.Error(err))
	} else {
		defer gateway.Close()
	}

	go serveMetrics(registry)

	if seed != nil {
		runScriptedCall(center, seed)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")
}

// demoSeed is the conversation the scripted flow runs in.
type demoSeed struct {
	conversationID uuid.UUID
	remoteUserID   uuid.UUID
}

// buildDirectory returns the Redis directory when configured, otherwise an
// in-memory directory seeded with a demo conversation.
func buildDirectory(cfg *config.Config, selfUserID uuid.UUID) (call.Directory, *demoSeed) {
	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
		logger.Info("Using Redis directory", zap.String("addr", cfg.RedisAddr))
		return redisrepo.NewDirectoryRepository(client), nil
	}

	directory := memory.NewDirectory()
	seed := &demoSeed{
		conversationID: uuid.New(),
		remoteUserID:   uuid.New(),
	}

	directory.AddUser(domain.User{ID: selfUserID, Name: "Demo Self", Handle: "self"})
	directory.AddUser(domain.User{ID: seed.remoteUserID, Name: "Demo Remote", Handle: "remote"})
	directory.AddConversation(domain.Conversation{
		ID:               seed.conversationID,
		Type:             domain.ConversationTypeOneToOne,
		SecurityLevel:    domain.SecurityLevelSecure,
		ParticipantCount: 2,
		ConnectedUserID:  seed.remoteUserID,
	})

	return directory, seed
}

// observe logs every notification the center publishes.
func observe(bus *eventbus.Bus) []*eventbus.Subscription {
	return []*eventbus.Subscription{
		eventbus.Subscribe(bus, func(event call.StateChanged) {
			logger.Info("Call state changed",
				zap.String("conversation_id", event.ConversationID.String()),
				zap.String("state", event.State.String()))
		}),
		eventbus.Subscribe(bus, func(event call.ParticipantsChanged) {
			logger.Info("Participants changed",
				zap.String("conversation_id", event.ConversationID.String()),
				zap.Int("count", len(event.Participants)))
		}),
		eventbus.Subscribe(bus, func(event call.MissedCall) {
			logger.Info("Missed call",
				zap.String("conversation_id", event.ConversationID.String()),
				zap.String("caller_id", event.CallerID.String()))
		}),
		eventbus.Subscribe(bus, func(event call.NetworkQualityChanged) {
			logger.Info("Network quality changed",
				zap.String("conversation_id", event.ConversationID.String()),
				zap.Int("quality", int(event.Quality)))
		}),
		eventbus.Subscribe(bus, func(event call.MutedChanged) {
			logger.Info("Mute state changed", zap.Bool("muted", event.Muted))
		}),
	}
}

// runScriptedCall starts a call, lets the loopback engine reflect a joined
// member and ends it again.
func runScriptedCall(center *call.Center, seed *demoSeed) {
	if !center.StartCall(seed.conversationID, false) {
		logger.Error("Scripted call was rejected by the engine")
		return
	}

	payload := []byte(`{"convid":"` + seed.conversationID.String() +
		`","members":[{"userid":"` + seed.remoteUserID.String() +
		`","clientid":"demo-client","aestab":1,"vrecv":0}]}`)
	center.Received(domain.CallEvent{
		Payload:         payload,
		LocalTimestamp:  time.Now(),
		ServerTimestamp: time.Now(),
		ConversationID:  seed.conversationID,
		UserID:          seed.remoteUserID,
		ClientID:        "demo-client",
	})

	// Give the loopback's asynchronous callbacks a moment before closing.
	time.Sleep(200 * time.Millisecond)
	center.CloseCall(seed.conversationID)
}

func serveMetrics(registry *prometheus.Registry) {
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		addr = ":9090"
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	logger.Info("Serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics server stopped", zap.Error(err))
	}
}
