// Command arena-client is a headless demo client. It joins a session, walks
// a scripted circle, and logs what the session reports back. Useful for
// smoke-testing a relay without a rendering client.
package main

import (
	"context"
	"errors"
	"log"
	"math"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"chase-arena/netcode/internal/arena"
	"chase-arena/netcode/internal/events"
	"chase-arena/netcode/internal/netclient"
	"chase-arena/netcode/internal/proto"
	"chase-arena/netcode/internal/replication"
)

type config struct {
	ServerURL  string `mapstructure:"server_url"`
	PlayerName string `mapstructure:"player_name"`
	SessionKey string `mapstructure:"session_key"`
	Role       string `mapstructure:"role"`
}

func loadConfig() (config, error) {
	v := viper.New()
	v.SetConfigName("client")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("ARENA")
	v.AutomaticEnv()

	v.SetDefault("server_url", "ws://localhost:8080/ws")
	v.SetDefault("player_name", "demo")
	v.SetDefault("session_key", "lobby")
	v.SetDefault("role", string(proto.RoleEvader))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config{}, err
		}
	}

	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	role, ok := proto.ParseRole(cfg.Role)
	if !ok {
		log.Fatalf("unknown role %q", cfg.Role)
	}

	logger := log.Default()
	dispatcher := events.NewDispatcher(logger)

	terminal := make(chan struct{})
	dispatcher.On(events.KindConnected, func(p events.Payload) {
		c := p.(events.Connected)
		logger.Printf("joined %s as %s", c.SessionKey, c.PlayerID)
	})
	dispatcher.On(events.KindDisconnected, func(p events.Payload) {
		logger.Printf("disconnected: %s", p.(events.Disconnected).Reason)
	})
	dispatcher.On(events.KindPlayerJoined, func(p events.Payload) {
		logger.Printf("player joined: %s", p.(events.PlayerJoined).Player.Name)
	})
	dispatcher.On(events.KindPlayerLeft, func(p events.Payload) {
		logger.Printf("player left: %s", p.(events.PlayerLeft).PlayerID)
	})
	dispatcher.On(events.KindChat, func(p events.Payload) {
		c := p.(events.Chat)
		logger.Printf("[chat] %s: %s", c.PlayerName, c.Message)
	})
	dispatcher.On(events.KindLatencyUpdate, func(p events.Payload) {
		logger.Printf("rtt %v", p.(events.LatencyUpdate).RTT)
	})
	dispatcher.On(events.KindError, func(p events.Payload) {
		e := p.(events.Error)
		logger.Printf("session error: %s", e.Message)
		if e.Terminal {
			close(terminal)
		}
	})

	clientCfg := netclient.DefaultConfig()
	clientCfg.ServerURL = cfg.ServerURL
	clientCfg.Role = role
	manager := netclient.New(clientCfg, netclient.NewWebsocketDialer(), dispatcher, nil, logger)
	defer manager.Close()

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	err = manager.Connect(connectCtx, cfg.PlayerName, cfg.SessionKey)
	cancel()
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}

	controller := arena.NewController(arena.ControllerOptions{
		PlayerID: manager.PlayerID(),
		Role:     role,
		Movement: arena.DefaultConfig(),
		SpawnPoints: replication.DefaultSpawnConfig(),
		// Flat, unobstructed ground for the demo.
		Sweeper:    arena.SweeperFunc(func(desired proto.Vec3) proto.Vec3 { return desired }),
		Sender:     manager,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	defer controller.Close()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	start := time.Now()
	last := start
	for {
		select {
		case <-ctx.Done():
			return
		case <-terminal:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now

			// Walk a slow circle by spinning the camera.
			yaw := now.Sub(start).Seconds() * 0.4
			camera := arena.CameraBasis{
				Forward: proto.Vec3{X: math.Sin(yaw), Z: math.Cos(yaw)},
				Right:   proto.Vec3{X: math.Cos(yaw), Z: -math.Sin(yaw)},
			}
			controller.Tick(dt, arena.Intent{Forward: true}, camera)
		}
	}
}
