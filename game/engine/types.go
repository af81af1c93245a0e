package engine

// ShipType identifies one of the five fixed ship kinds
type ShipType string

const (
	Carrier    ShipType = "Carrier"
	Battleship ShipType = "Battleship"
	Cruiser    ShipType = "Cruiser"
	Submarine  ShipType = "Submarine"
	Destroyer  ShipType = "Destroyer"

	// Validation constants
	FleetSize           = 5
	DefaultBoardSize    = 10
	MinBoardSize        = 5
	MaxBoardSize        = 26
	DefaultGraceSeconds = 15
	MaxGraceSeconds     = 600
)

// RequiredShipTypes is the fixed set of ship kinds every fleet carries.
// Win detection checks against this set, never against the fleet in play.
var RequiredShipTypes = [FleetSize]ShipType{Carrier, Battleship, Cruiser, Submarine, Destroyer}

var shipSizes = map[ShipType]int{
	Carrier:    5,
	Battleship: 4,
	Cruiser:    3,
	Submarine:  3,
	Destroyer:  2,
}

// Size returns the number of cells the ship type occupies, or 0 for unknown types
func (t ShipType) Size() int {
	return shipSizes[t]
}

// IsValid reports whether t is one of the required ship types
func (t ShipType) IsValid() bool {
	_, ok := shipSizes[t]
	return ok
}

// ShotResult classifies a resolved shot
type ShotResult string

const (
	Miss    ShotResult = "MISS"
	Hit     ShotResult = "HIT"
	Destroy ShotResult = "DESTROY"
)

// Coordinate is a board cell, zero-based
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// InBounds reports whether c lies on a square board of the given size
func (c Coordinate) InBounds(size int) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < size && c.Y < size
}

// ShipCoordinate is a cell occupied by a ship together with its damage flag
type ShipCoordinate struct {
	X   int  `json:"x"`
	Y   int  `json:"y"`
	Hit bool `json:"hit"`
}

// Coordinate drops the damage flag
func (c ShipCoordinate) Coordinate() Coordinate {
	return Coordinate{X: c.X, Y: c.Y}
}

// Ship is a typed run of cells. Whether it is destroyed is derived from the
// hit flags of its cells and never stored.
type Ship struct {
	Type   ShipType         `json:"type"`
	Coords []ShipCoordinate `json:"coords"`
}

// Destroyed reports whether every cell of the ship has been hit
func (s Ship) Destroyed() bool {
	if len(s.Coords) == 0 {
		return false
	}
	for _, c := range s.Coords {
		if !c.Hit {
			return false
		}
	}
	return true
}

// markHit flags the cell at c as hit and reports whether the ship occupies it
func (s *Ship) markHit(c Coordinate) bool {
	matched := false
	for i := range s.Coords {
		if s.Coords[i].X == c.X && s.Coords[i].Y == c.Y {
			s.Coords[i].Hit = true
			matched = true
		}
	}
	return matched
}

// clone returns a deep copy of the ship
func (s Ship) clone() Ship {
	coords := make([]ShipCoordinate, len(s.Coords))
	copy(coords, s.Coords)
	return Ship{Type: s.Type, Coords: coords}
}

// Fleet is the set of ships one player brings into a match
type Fleet []Ship

// Clone returns a deep copy of the fleet
func (f Fleet) Clone() Fleet {
	if f == nil {
		return nil
	}
	out := make(Fleet, len(f))
	for i, s := range f {
		out[i] = s.clone()
	}
	return out
}

// Destroyed returns copies of the ships that have been sunk, in fleet order
func (f Fleet) Destroyed() []Ship {
	out := []Ship{}
	for _, s := range f {
		if s.Destroyed() {
			out = append(out, s.clone())
		}
	}
	return out
}

// Shot is a fired coordinate and how it resolved
type Shot struct {
	Coords Coordinate `json:"coords"`
	Result ShotResult `json:"result"`
}
