// Package engine provides the core match logic for Naval Duel.
//
// The engine package implements:
//   - Fleet definitions and validation (five fixed ship types)
//   - Shot resolution with MISS, HIT and DESTROY classification
//   - Turn ownership with the "shoot again on hit" rule
//   - Win detection against the constant set of required ship types
//   - Personalized per-player views that never leak undamaged enemy ships
//
// Core Types:
//
// Game is a single two-player match. Player holds one side's fleet and shot
// logs. Rules carries the tunables loaded from a rule-set file (board size,
// reconnect grace period, strict turn validation).
//
// Usage:
//
//	g := engine.NewGame(engine.DefaultRules())
//	g.AddPlayer(engine.NewPlayer("alice", connA, aliceFleet))
//	g.AddPlayer(engine.NewPlayer("bob", connB, bobFleet))
//
//	shot, err := g.Play("alice", engine.Coordinate{X: 3, Y: 4})
//	if err != nil {
//		return err
//	}
//	view := g.ViewFor("alice")
//
// Concurrency:
//
// Game is not safe for concurrent use. Callers serialize access per match;
// the session package does this with a per-room lock.
//
// Game Rules:
//
// The first player to join opens fire once the second player arrives. A hit
// or a destroyed ship keeps the turn with the shooter, a miss passes it to
// the opponent, and a player may explicitly hand the turn over. The match is
// won when every required ship type of the opponent has been destroyed; the
// winner is never cleared once set.
package engine
