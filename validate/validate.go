// Command validate checks fleet JSON files, the layouts a ship placement
// generator hands to createRoom and joinRoom. For each file it checks:
//   - JSON structure (an array of ships, or {"fleet": [...]})
//   - Exactly one ship of each required type with the right cell count
//   - Every cell on the board and no two ships sharing a cell
//
// With -example it prints a valid fleet for the board instead.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/naval-duel/game/config"
	"github.com/wricardo/naval-duel/game/engine"
)

var errInvalidFleets = errors.New("invalid fleet files")

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Messages contains informational lines; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File     string
	Valid    bool
	Messages []string
}

// fleetFile accepts both a bare ship array and the createRoom payload shape
type fleetFile struct {
	Fleet engine.Fleet `json:"fleet"`
}

func decodeFleet(data []byte) (engine.Fleet, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var fleet engine.Fleet
		err := json.Unmarshal(data, &fleet)
		return fleet, err
	}
	var wrapped fleetFile
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Fleet == nil {
		return nil, fmt.Errorf("missing \"fleet\" field")
	}
	return wrapped.Fleet, nil
}

// validateFleetFile loads and validates a single fleet file for a board
func validateFleetFile(filePath string, boardSize int) ValidationResult {
	result := ValidationResult{
		File:     filepath.Base(filePath),
		Valid:    true,
		Messages: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.Valid = false
		result.Messages = append(result.Messages, fmt.Sprintf("Failed to read file: %v", err))
		return result
	}

	fleet, err := decodeFleet(data)
	if err != nil {
		result.Valid = false
		result.Messages = append(result.Messages, fmt.Sprintf("Invalid JSON: %v", err))
		return result
	}

	if err := engine.ValidateFleet(fleet, boardSize); err != nil {
		result.Valid = false
		result.Messages = append(result.Messages, err.Error())
		return result
	}

	cells := 0
	for _, ship := range fleet {
		cells += len(ship.Coords)
		first := ship.Coords[0]
		result.Messages = append(result.Messages,
			fmt.Sprintf("✓ %s at (%d,%d) %s", ship.Type, first.X, first.Y, orientation(ship)))
	}
	result.Messages = append(result.Messages, fmt.Sprintf("✓ Board: %dx%d, %d cells occupied", boardSize, boardSize, cells))
	return result
}

func orientation(ship engine.Ship) string {
	if len(ship.Coords) < 2 {
		return ""
	}
	if ship.Coords[0].Y == ship.Coords[1].Y {
		return "horizontal"
	}
	return "vertical"
}

// boardSizeFor resolves the board from --rules when given, else --board
func boardSizeFor(cmd *cli.Command) (int, error) {
	name := cmd.String("rules")
	if name == "" {
		return int(cmd.Int("board")), nil
	}
	manager, err := config.NewManager(cmd.String("config-dir"))
	if err != nil {
		return 0, err
	}
	rules, err := manager.LoadConfig(name)
	if err != nil {
		return 0, err
	}
	return rules.BoardSize, nil
}

// report prints one result block and returns whether the file was valid
func report(w io.Writer, result ValidationResult) bool {
	fmt.Fprintf(w, "\n%s %s\n", strings.Repeat("=", 20), result.File)
	if result.Valid {
		fmt.Fprintln(w, "✅ VALID")
		for _, info := range result.Messages {
			fmt.Fprintln(w, "  "+info)
		}
		return true
	}
	fmt.Fprintln(w, "❌ INVALID")
	for _, msg := range result.Messages {
		fmt.Fprintln(w, "  ❌ "+msg)
	}
	return false
}

func run(ctx context.Context, cmd *cli.Command) error {
	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}

	boardSize, err := boardSizeFor(cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("example") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(fleetFile{Fleet: engine.RowFleet()})
	}

	files := cmd.Args().Slice()
	if len(files) == 0 {
		files, err = filepath.Glob(filepath.Join(cmd.String("dir"), "*.json"))
		if err != nil {
			return fmt.Errorf("error finding fleet files: %w", err)
		}
	}
	if len(files) == 0 {
		return fmt.Errorf("no fleet files found")
	}

	allValid := true
	for _, file := range files {
		if !report(out, validateFleetFile(file, boardSize)) {
			allValid = false
		}
	}

	fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", 40))
	if !allValid {
		fmt.Fprintln(out, "❌ Some fleets have errors")
		return errInvalidFleets
	}
	fmt.Fprintln(out, "✅ All fleets are valid!")
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "validate fleet layout files",
		ArgsUsage: "[fleet.json ...]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "board", Value: engine.DefaultBoardSize, Usage: "board size to validate against"},
			&cli.StringFlag{Name: "rules", Usage: "take the board size from this rule set"},
			&cli.StringFlag{Name: "config-dir", Value: "../configs", Usage: "directory containing rule sets"},
			&cli.StringFlag{Name: "dir", Value: "../configs/fleets", Usage: "directory scanned when no files are given"},
			&cli.BoolFlag{Name: "example", Usage: "print a valid fleet and exit"},
		},
		Action: run,
	}
}

// main validates the given fleet files, or every *.json in --dir, and exits
// non-zero if any are invalid.
func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
