package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidFleet is returned when a fleet does not match the fixed ship set
var ErrInvalidFleet = errors.New("invalid fleet")

// ValidateFleet checks that a fleet holds exactly one ship of each required
// type, that each ship has the cell count of its type, that every cell lies
// on the board, and that no two ships share a cell.
func ValidateFleet(fleet Fleet, boardSize int) error {
	if len(fleet) != FleetSize {
		return fmt.Errorf("%w: expected %d ships, got %d", ErrInvalidFleet, FleetSize, len(fleet))
	}

	seenTypes := make(map[ShipType]bool, FleetSize)
	occupied := make(map[Coordinate]ShipType)

	for i, ship := range fleet {
		if !ship.Type.IsValid() {
			return fmt.Errorf("%w: ship %d has unknown type %q", ErrInvalidFleet, i+1, ship.Type)
		}
		if seenTypes[ship.Type] {
			return fmt.Errorf("%w: duplicate %s", ErrInvalidFleet, ship.Type)
		}
		seenTypes[ship.Type] = true

		if len(ship.Coords) != ship.Type.Size() {
			return fmt.Errorf("%w: %s must occupy %d cells, got %d",
				ErrInvalidFleet, ship.Type, ship.Type.Size(), len(ship.Coords))
		}

		for _, sc := range ship.Coords {
			c := sc.Coordinate()
			if !c.InBounds(boardSize) {
				return fmt.Errorf("%w: %s cell (%d,%d) is outside the %dx%d board",
					ErrInvalidFleet, ship.Type, c.X, c.Y, boardSize, boardSize)
			}
			if other, taken := occupied[c]; taken {
				return fmt.Errorf("%w: %s overlaps %s at (%d,%d)",
					ErrInvalidFleet, ship.Type, other, c.X, c.Y)
			}
			occupied[c] = ship.Type
		}
	}

	return nil
}

// freshFleet copies a fleet and clears any hit flags sent by the client
func freshFleet(f Fleet) Fleet {
	out := f.Clone()
	for i := range out {
		for j := range out[i].Coords {
			out[i].Coords[j].Hit = false
		}
	}
	return out
}

// RowFleet lays the required ships out horizontally on every other row,
// starting at the top-left corner. It needs a board of at least 9x9.
func RowFleet() Fleet {
	fleet := make(Fleet, 0, FleetSize)
	for i, t := range RequiredShipTypes {
		coords := make([]ShipCoordinate, t.Size())
		for x := range coords {
			coords[x] = ShipCoordinate{X: x, Y: i * 2}
		}
		fleet = append(fleet, Ship{Type: t, Coords: coords})
	}
	return fleet
}
