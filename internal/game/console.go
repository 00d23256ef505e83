package game

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Console is a stdin/stdout-backed Sink for running the bridge without a
// real game host. Lines typed on stdin become in-game chat; web chat,
// notices and whispers print to stdout.
//
// Console commands:
//
//	/join <name>        a player comes online
//	/leave <name>       a player goes offline
//	<name>: <text>      that player says <text>
//	<text>              the "Server" says <text>
type Console struct {
	in  io.Reader
	out io.Writer

	tasks chan func()
	done  chan struct{}

	mu      sync.RWMutex
	running bool
	events  Events

	// players is only touched from the task loop.
	players map[string]uuid.UUID
}

// NewConsole creates a console sink reading from in and writing to out.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{
		in:      in,
		out:     out,
		tasks:   make(chan func(), 256),
		done:    make(chan struct{}),
		players: make(map[string]uuid.UUID),
	}
}

// SetEvents wires the bridge in. Must be called before Start.
func (c *Console) SetEvents(ev Events) {
	c.mu.Lock()
	c.events = ev
	c.mu.Unlock()
}

// Start runs the single-threaded game loop and the stdin reader.
func (c *Console) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	go c.run(ctx)
	go c.readInput(ctx)
}

// Stop shuts the game loop down. Pending tasks are discarded.
func (c *Console) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	close(c.done)
}

func (c *Console) run(ctx context.Context) {
	for {
		select {
		case task := <-c.tasks:
			task()
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *Console) readInput(ctx context.Context) {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}
		c.Execute(func() { c.handleLine(line) })
	}
}

// handleLine runs on the game loop.
func (c *Console) handleLine(line string) {
	ev := c.currentEvents()

	switch {
	case strings.HasPrefix(line, "/join "):
		name := strings.TrimSpace(strings.TrimPrefix(line, "/join "))
		if name == "" {
			return
		}
		if _, online := c.players[name]; online {
			fmt.Fprintf(c.out, "%s is already online\n", name)
			return
		}
		c.players[name] = uuid.New()
		if ev != nil {
			ev.PlayerJoined(name)
		}

	case strings.HasPrefix(line, "/leave "):
		name := strings.TrimSpace(strings.TrimPrefix(line, "/leave "))
		if _, online := c.players[name]; !online {
			fmt.Fprintf(c.out, "%s is not online\n", name)
			return
		}
		delete(c.players, name)
		if ev != nil {
			ev.PlayerLeft(name)
		}

	default:
		sender := "Server"
		text := line
		if name, rest, found := strings.Cut(line, ": "); found {
			if _, online := c.players[name]; online {
				sender = name
				text = rest
			}
		}
		if ev != nil {
			ev.GameChat(sender, text)
		}
	}
}

func (c *Console) currentEvents() Events {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.events
}

// Execute implements Sink. Tasks are dropped with a log line if the loop is
// saturated; the bridge never blocks on the game.
func (c *Console) Execute(fn func()) {
	select {
	case c.tasks <- fn:
	default:
		log.Printf("game: console task queue full, dropping task")
	}
}

// DeliverChat implements Sink.
func (c *Console) DeliverChat(sender, text string) {
	fmt.Fprintf(c.out, "[WEB] %s: %s\n", sender, text)
}

// DeliverNotice implements Sink.
func (c *Console) DeliverNotice(text string) {
	fmt.Fprintf(c.out, "[WEB] %s\n", text)
}

// LookupPlayer implements Sink.
func (c *Console) LookupPlayer(name string) (uuid.UUID, bool) {
	id, ok := c.players[name]
	return id, ok
}

// Whisper implements Sink.
func (c *Console) Whisper(playerID uuid.UUID, text string) {
	for name, id := range c.players {
		if id == playerID {
			fmt.Fprintf(c.out, "[whisper -> %s] %s\n", name, text)
			return
		}
	}
}

// PlayerNames implements Sink.
func (c *Console) PlayerNames() []string {
	names := make([]string, 0, len(c.players))
	for name := range c.players {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
