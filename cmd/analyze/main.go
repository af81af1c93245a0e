// Command analyze prints quick, human-readable statistics about archived
// matches. It summarizes each match, then ranks players by wins and
// accuracy across the whole archive.
package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/wricardo/naval-duel/game/service"
	"github.com/wricardo/naval-duel/game/session"
)

// defaultMatchesDir matches the server's --matches-dir default
const defaultMatchesDir = "matches"

// PlayerTotals aggregates one nick across every archived match
type PlayerTotals struct {
	Nick       string
	Matches    int
	Wins       int
	ShotsFired int
	Hits       int
	ShipsSunk  int
}

// Accuracy returns hits per shot fired, or 0 when nothing was fired
func (p PlayerTotals) Accuracy() float64 {
	if p.ShotsFired == 0 {
		return 0
	}
	return float64(p.Hits) / float64(p.ShotsFired)
}

// Summary is the result of analyzing an archive
type Summary struct {
	Matches         []*service.MatchRecord
	Players         []*PlayerTotals
	Skipped         int
	AverageDuration time.Duration
	// AverageShotsToWin counts only the winner's shots
	AverageShotsToWin float64
}

func main() {
	dir := defaultMatchesDir
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	summary, err := analyzeArchive(dir)
	if err != nil {
		fmt.Printf("Error reading archive: %v\n", err)
		os.Exit(1)
	}
	printSummary(os.Stdout, summary)
}

// analyzeArchive loads every readable record in dir and aggregates it
func analyzeArchive(dir string) (*Summary, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	archive, err := session.NewFileArchive(dir)
	if err != nil {
		return nil, err
	}

	ids, err := archive.ListAll()
	if err != nil {
		return nil, err
	}

	var records []*service.MatchRecord
	skipped := 0
	for _, id := range ids {
		record, err := archive.Load(id)
		if err != nil {
			skipped++
			continue
		}
		records = append(records, record)
	}

	summary := summarize(records)
	summary.Skipped = skipped
	return summary, nil
}

// summarize aggregates records, oldest match first
func summarize(records []*service.MatchRecord) *Summary {
	sort.Slice(records, func(i, j int) bool {
		return records[i].FinishedAt.Before(records[j].FinishedAt)
	})

	summary := &Summary{Matches: records}
	totals := make(map[string]*PlayerTotals)
	var duration time.Duration
	winnerShots := 0

	for _, m := range records {
		duration += m.Duration()
		for _, p := range m.Players {
			t, ok := totals[p.Nick]
			if !ok {
				t = &PlayerTotals{Nick: p.Nick}
				totals[p.Nick] = t
			}
			t.Matches++
			t.ShotsFired += p.ShotsFired
			t.Hits += p.Hits
			t.ShipsSunk += p.ShipsSunk
			if p.Nick == m.Winner {
				t.Wins++
				winnerShots += p.ShotsFired
			}
		}
	}

	for _, t := range totals {
		summary.Players = append(summary.Players, t)
	}
	sort.Slice(summary.Players, func(i, j int) bool {
		a, b := summary.Players[i], summary.Players[j]
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.Accuracy() != b.Accuracy() {
			return a.Accuracy() > b.Accuracy()
		}
		return a.Nick < b.Nick
	})

	if n := len(records); n > 0 {
		summary.AverageDuration = duration / time.Duration(n)
		summary.AverageShotsToWin = float64(winnerShots) / float64(n)
	}
	return summary
}

func printSummary(w io.Writer, s *Summary) {
	if len(s.Matches) == 0 {
		fmt.Fprintln(w, "No archived matches found")
		if s.Skipped > 0 {
			fmt.Fprintf(w, "⚠️  %d unreadable records skipped\n", s.Skipped)
		}
		return
	}

	for _, m := range s.Matches {
		fmt.Fprintf(w, "\n=== %s (%s) ===\n", m.Name, m.ID)
		fmt.Fprintf(w, "Rules: %s\n", m.Rules)
		fmt.Fprintf(w, "Finished: %s after %s\n", m.FinishedAt.Format(time.RFC3339), m.Duration().Round(time.Second))
		for _, p := range m.Players {
			marker := " "
			if p.Nick == m.Winner {
				marker = "🏆"
			}
			fmt.Fprintf(w, "%s %-12s %3d shots %3d hits (%3.0f%%) sank %d\n",
				marker, p.Nick, p.ShotsFired, p.Hits, p.Accuracy()*100, p.ShipsSunk)
		}
	}

	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 40))
	fmt.Fprintf(w, "Matches: %d\n", len(s.Matches))
	fmt.Fprintf(w, "Average duration: %s\n", s.AverageDuration.Round(time.Second))
	fmt.Fprintf(w, "Average shots to win: %.1f\n", s.AverageShotsToWin)
	if s.Skipped > 0 {
		fmt.Fprintf(w, "⚠️  %d unreadable records skipped\n", s.Skipped)
	}

	fmt.Fprintln(w, "\nPlayers:")
	for i, p := range s.Players {
		fmt.Fprintf(w, "%2d. %-12s %d/%d wins, %.0f%% accuracy\n",
			i+1, p.Nick, p.Wins, p.Matches, p.Accuracy()*100)
	}
}
