package engine

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownPlayer   = errors.New("unknown player")
	ErrNoOpponent      = errors.New("opponent has not joined")
	ErrGameOver        = errors.New("game is over")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrCellAlreadyShot = errors.New("cell already shot")
)

// MaxPlayers is the number of seats in a match
const MaxPlayers = 2

// LastShot is the most recent shot together with the player who fired it
type LastShot struct {
	Shot
	Nick string `json:"nick"`
}

// Game is a two-player match: players in join order, turn owner, last shot
// and winner. It is not safe for concurrent use.
type Game struct {
	rules    Rules
	players  []*Player
	turn     string
	lastShot *LastShot
	winner   string
}

// NewGame creates an empty match governed by rules
func NewGame(rules Rules) *Game {
	return &Game{
		rules:   rules,
		players: make([]*Player, 0, MaxPlayers),
	}
}

// Rules returns the rule set the match was created with
func (g *Game) Rules() Rules {
	return g.rules
}

// AddPlayer seats p. It is a no-op returning false when both seats are taken.
// Seating the second player hands the first turn to the first player.
func (g *Game) AddPlayer(p *Player) bool {
	if len(g.players) >= MaxPlayers {
		return false
	}
	g.players = append(g.players, p)
	if len(g.players) == MaxPlayers {
		g.turn = g.players[0].Nick
	}
	return true
}

// PlayerCount returns the number of seated players
func (g *Game) PlayerCount() int {
	return len(g.players)
}

// Ready reports whether both seats are taken
func (g *Game) Ready() bool {
	return len(g.players) == MaxPlayers
}

// Nicks returns the players' nicks in join order
func (g *Game) Nicks() []string {
	nicks := make([]string, len(g.players))
	for i, p := range g.players {
		nicks[i] = p.Nick
	}
	return nicks
}

// Player looks up a seated player by nick
func (g *Game) Player(nick string) *Player {
	for _, p := range g.players {
		if p.Nick == nick {
			return p
		}
	}
	return nil
}

// Opponent returns the player seated against nick, or nil
func (g *Game) Opponent(nick string) *Player {
	if g.Player(nick) == nil {
		return nil
	}
	for _, p := range g.players {
		if p.Nick != nick {
			return p
		}
	}
	return nil
}

// Turn returns the nick allowed to shoot next, empty until the match is ready
func (g *Game) Turn() string {
	return g.turn
}

// Winner returns the winning nick, empty while the match is undecided
func (g *Game) Winner() string {
	return g.winner
}

// LastShot returns a copy of the most recent shot, or nil
func (g *Game) LastShot() *LastShot {
	if g.lastShot == nil {
		return nil
	}
	ls := *g.lastShot
	return &ls
}

// RebindConnection points nick at a new connection. It returns false when
// nobody with that nick is seated.
func (g *Game) RebindConnection(nick, connID string) bool {
	p := g.Player(nick)
	if p == nil {
		return false
	}
	p.ConnID = connID
	return true
}

// Play fires a shot from nick at coordinate c on the opponent's board.
// Hits and sinkings keep the turn with the shooter; misses pass it on.
// Once a winner exists the match state is left untouched.
func (g *Game) Play(nick string, c Coordinate) (Shot, error) {
	shooter := g.Player(nick)
	if shooter == nil {
		return Shot{}, fmt.Errorf("%w: %q", ErrUnknownPlayer, nick)
	}
	opponent := g.Opponent(nick)
	if opponent == nil {
		return Shot{}, ErrNoOpponent
	}
	if g.winner != "" {
		return Shot{}, ErrGameOver
	}

	if g.rules.StrictTurns {
		if g.turn != nick {
			return Shot{}, fmt.Errorf("%w: %s holds the turn", ErrNotYourTurn, g.turn)
		}
		if shooter.hasFired(c) {
			return Shot{}, fmt.Errorf("%w: (%d,%d)", ErrCellAlreadyShot, c.X, c.Y)
		}
	}

	shot := opponent.receiveShot(c)
	shooter.recordShot(shot)

	if opponent.lostAll() {
		g.winner = nick
	}

	if shot.Result == Miss {
		g.turn = opponent.Nick
	} else {
		g.turn = nick
	}

	g.lastShot = &LastShot{Shot: shot, Nick: nick}
	return shot, nil
}

// EndTurn hands the turn to the player other than nick regardless of the
// last result, clears the last shot, and returns fresh views for both
// players in join order.
func (g *Game) EndTurn(nick string) ([]*View, error) {
	if g.Player(nick) == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlayer, nick)
	}
	opponent := g.Opponent(nick)
	if opponent == nil {
		return nil, ErrNoOpponent
	}

	g.turn = opponent.Nick
	g.lastShot = nil
	return g.Views(), nil
}

// Views returns the personalized view of every seated player in join order
func (g *Game) Views() []*View {
	views := make([]*View, 0, len(g.players))
	for _, p := range g.players {
		views = append(views, g.ViewFor(p.Nick))
	}
	return views
}
