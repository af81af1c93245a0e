package engine

// ShipView is a ship as sent to clients, with its derived destroyed flag
type ShipView struct {
	Type      ShipType         `json:"type"`
	Coords    []ShipCoordinate `json:"coords"`
	Destroyed bool             `json:"destroyed"`
}

// OpponentView is everything a player may know about the other side
type OpponentView struct {
	Nick           string     `json:"nick"`
	DestroyedShips []ShipView `json:"destroyedShips"`
}

// View is the match as seen by one player. It carries the player's own
// fleet and logs but only the opponent's sunk ships, never the positions of
// undamaged enemy ships. Views are deep copies and safe to use after the
// match has moved on.
type View struct {
	Nick       string        `json:"nick"`
	Ships      []ShipView    `json:"ships"`
	Shots      []Shot        `json:"shots"`
	EnemyShots []Shot        `json:"enemyShots"`
	LostShips  []ShipView    `json:"lostShips"`
	Opponent   *OpponentView `json:"opponent"`
	Turn       string        `json:"turn"`
	Winner     string        `json:"winner"`
	LastShot   *LastShot     `json:"lastShot"`
}

// ViewFor builds the personalized view for nick, or returns nil when nick
// is not seated.
func (g *Game) ViewFor(nick string) *View {
	p := g.Player(nick)
	if p == nil {
		return nil
	}

	v := &View{
		Nick:       p.Nick,
		Ships:      shipViews(p.fleet),
		Shots:      p.Shots(),
		EnemyShots: p.EnemyShots(),
		LostShips:  shipViews(p.DestroyedShips()),
		Turn:       g.turn,
		Winner:     g.winner,
		LastShot:   g.LastShot(),
	}

	if opp := g.Opponent(nick); opp != nil {
		v.Opponent = &OpponentView{
			Nick:           opp.Nick,
			DestroyedShips: shipViews(opp.DestroyedShips()),
		}
	}

	return v
}

func shipViews(ships []Ship) []ShipView {
	out := make([]ShipView, 0, len(ships))
	for _, s := range ships {
		coords := make([]ShipCoordinate, len(s.Coords))
		copy(coords, s.Coords)
		out = append(out, ShipView{Type: s.Type, Coords: coords, Destroyed: s.Destroyed()})
	}
	return out
}
