package arena

import (
	"context"
	"log"
	"sync"
	"time"

	"chase-arena/netcode/internal/events"
	"chase-arena/netcode/internal/proto"
	"chase-arena/netcode/internal/replication"
	"chase-arena/netcode/logging"
	"chase-arena/netcode/logging/gameplay"
)

// Sender is the outbound slice of the session manager the controller needs.
type Sender interface {
	SendPlayerUpdate(state proto.PlayerState) error
	SendGameEvent(event proto.GameEvent) error
	SendRespawnRequest(targetID string, spawn *proto.Vec3) error
}

// ControllerOptions collects the dependencies for one local-player controller.
type ControllerOptions struct {
	PlayerID string
	Role     proto.Role
	Spawn    proto.Vec3

	Movement    Config
	SpawnPoints replication.SpawnConfig

	Sweeper    Sweeper
	Sender     Sender
	Dispatcher *events.Dispatcher
	Publisher  logging.Publisher
	Logger     *log.Logger
	Clock      func() time.Time
}

// Controller glues the local movement entity to the session. It advances the
// entity each frame, publishes the resulting pose, runs the goal check for the
// local evader, and applies respawn commands arriving off the wire.
//
// Tick runs on the game loop while game events arrive on the session's read
// loop, so the entity and scoreboard sit behind a mutex.
type Controller struct {
	playerID  string
	role      proto.Role
	cfg       Config
	sender    Sender
	publisher logging.Publisher
	logger    *log.Logger
	sub       *events.Subscription

	mu     sync.Mutex
	entity *Entity
	spawns *replication.SpawnAllocator
	scores map[string]int
}

// NewController builds a controller and subscribes it to the dispatcher's
// game-event channel.
func NewController(opts ControllerOptions) *Controller {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Publisher == nil {
		opts.Publisher = logging.NopPublisher()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	cfg := opts.Movement.Normalized()
	c := &Controller{
		playerID:  opts.PlayerID,
		role:      opts.Role,
		cfg:       cfg,
		sender:    opts.Sender,
		publisher: opts.Publisher,
		logger:    opts.Logger,
		entity:    NewEntity(opts.PlayerID, opts.Role, opts.Spawn, cfg, opts.Sweeper, opts.Clock),
		spawns:    replication.NewSpawnAllocator(opts.SpawnPoints),
		scores:    make(map[string]int),
	}
	if opts.Dispatcher != nil {
		c.sub = opts.Dispatcher.On(events.KindGameEvent, c.onGameEvent)
	}
	return c
}

// Close detaches the controller from the dispatcher.
func (c *Controller) Close() {
	c.sub.Close()
}

// Tick advances the local entity by dt seconds and replicates the resulting
// pose. When the local evader reaches the goal it awards points, requests its
// own respawn, and teleports immediately instead of waiting for the round
// trip. Send failures are logged, never returned; a frame must not fail
// because the session is down.
func (c *Controller) Tick(dt float64, intent Intent, camera CameraBasis) proto.PlayerState {
	c.mu.Lock()
	c.entity.Step(dt, intent, camera)
	scored := c.entity.AtGoal()
	var spawn proto.Vec3
	if scored {
		spawn = c.spawns.Next()
		c.entity.BeginRespawn(spawn)
		c.scores[c.playerID] += c.cfg.GoalPoints
	}
	state := c.entity.Snapshot()
	c.mu.Unlock()

	if scored {
		if err := c.sender.SendGameEvent(proto.ScoredEvent{PlayerID: c.playerID, Points: c.cfg.GoalPoints}); err != nil {
			c.logger.Printf("scored event not sent: %v", err)
		}
		if err := c.sender.SendRespawnRequest(c.playerID, &spawn); err != nil {
			c.logger.Printf("respawn request not sent: %v", err)
		}
		gameplay.PlayerScored(context.Background(), c.publisher, c.actorRef(), gameplay.ScorePayload{Points: c.cfg.GoalPoints})
		gameplay.PlayerRespawned(context.Background(), c.publisher, c.actorRef(), gameplay.RespawnPayload{X: spawn.X, Y: spawn.Y, Z: spawn.Z})
	}

	if err := c.sender.SendPlayerUpdate(state); err != nil {
		c.logger.Printf("pose update not sent: %v", err)
	}
	return state
}

// Score reports the local player's points.
func (c *Controller) Score() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scores[c.playerID]
}

// Scores snapshots the scoreboard.
func (c *Controller) Scores() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	scores := make(map[string]int, len(c.scores))
	for id, points := range c.scores {
		scores[id] = points
	}
	return scores
}

// Phase reports the local entity's respawn phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entity.Phase()
}

// Position reports the local entity's position.
func (c *Controller) Position() proto.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entity.Position()
}

func (c *Controller) onGameEvent(payload events.Payload) {
	ge, ok := payload.(events.GameEvent)
	if !ok {
		return
	}
	switch ev := ge.Event.(type) {
	case proto.RespawnEvent:
		c.applyRespawn(ev)
	case proto.HitEvent:
		c.applyHit(ev)
	case proto.ScoredEvent:
		c.mu.Lock()
		c.scores[ev.PlayerID] += ev.Points
		c.mu.Unlock()
	}
}

// applyRespawn teleports the local entity when a respawn command addresses
// it. Everyone else's respawns are effects-only and ignored here. Our own
// requests come back off the wire too; those were already applied
// optimistically and reapplying would restart the respawn window.
func (c *Controller) applyRespawn(ev proto.RespawnEvent) {
	if ev.PlayerID != c.playerID || ev.RequestedBy == c.playerID {
		return
	}
	c.mu.Lock()
	var spawn proto.Vec3
	if ev.SpawnPosition != nil {
		spawn = *ev.SpawnPosition
	} else {
		spawn = c.spawns.Next()
	}
	c.entity.BeginRespawn(spawn)
	c.mu.Unlock()

	gameplay.PlayerRespawned(context.Background(), c.publisher, c.actorRef(), gameplay.RespawnPayload{X: spawn.X, Y: spawn.Y, Z: spawn.Z})
}

// applyHit respawns the local entity when it is hit while vulnerable. The
// invulnerability window suppresses the trigger entirely.
func (c *Controller) applyHit(ev proto.HitEvent) {
	if ev.PlayerID != c.playerID {
		return
	}
	c.mu.Lock()
	if !c.entity.Vulnerable() {
		c.mu.Unlock()
		return
	}
	spawn := c.spawns.Next()
	c.entity.BeginRespawn(spawn)
	c.mu.Unlock()

	if err := c.sender.SendRespawnRequest(c.playerID, &spawn); err != nil {
		c.logger.Printf("respawn request not sent: %v", err)
	}
	gameplay.PlayerRespawned(context.Background(), c.publisher, c.actorRef(), gameplay.RespawnPayload{X: spawn.X, Y: spawn.Y, Z: spawn.Z})
}

func (c *Controller) actorRef() logging.EntityRef {
	return logging.EntityRef{ID: c.playerID, Kind: logging.EntityKindPlayer}
}
