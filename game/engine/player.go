package engine

// Player is one side of a match. The nick is fixed for the match; the
// connection id changes whenever the player reconnects.
type Player struct {
	Nick   string
	ConnID string

	fleet      Fleet
	shots      []Shot
	enemyShots []Shot
}

// NewPlayer creates a player owning a copy of fleet with all damage cleared
func NewPlayer(nick, connID string, fleet Fleet) *Player {
	return &Player{
		Nick:       nick,
		ConnID:     connID,
		fleet:      freshFleet(fleet),
		shots:      []Shot{},
		enemyShots: []Shot{},
	}
}

// Fleet returns a copy of the player's ships including damage
func (p *Player) Fleet() Fleet {
	return p.fleet.Clone()
}

// Shots returns a copy of the shots this player has fired
func (p *Player) Shots() []Shot {
	return append([]Shot{}, p.shots...)
}

// EnemyShots returns a copy of the shots fired at this player
func (p *Player) EnemyShots() []Shot {
	return append([]Shot{}, p.enemyShots...)
}

// DestroyedShips returns the player's sunk ships
func (p *Player) DestroyedShips() []Ship {
	return p.fleet.Destroyed()
}

// hasFired reports whether the player already shot at c
func (p *Player) hasFired(c Coordinate) bool {
	for _, s := range p.shots {
		if s.Coords == c {
			return true
		}
	}
	return false
}

// lostAll reports whether every required ship type is among the sunk ships
func (p *Player) lostAll() bool {
	sunk := make(map[ShipType]bool, FleetSize)
	for _, s := range p.fleet {
		if s.Destroyed() {
			sunk[s.Type] = true
		}
	}
	for _, t := range RequiredShipTypes {
		if !sunk[t] {
			return false
		}
	}
	return true
}

// receiveShot resolves an incoming shot against the fleet and logs it
func (p *Player) receiveShot(c Coordinate) Shot {
	before := len(p.fleet.Destroyed())

	matched := false
	for i := range p.fleet {
		if p.fleet[i].markHit(c) {
			matched = true
		}
	}

	result := Miss
	switch {
	case len(p.fleet.Destroyed()) > before:
		result = Destroy
	case matched:
		result = Hit
	}

	shot := Shot{Coords: c, Result: result}
	p.enemyShots = append(p.enemyShots, shot)
	return shot
}

// recordShot appends to the player's outgoing log
func (p *Player) recordShot(s Shot) {
	p.shots = append(p.shots, s)
}
