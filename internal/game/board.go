// internal/game/board.go
package game

import (
	"fmt"

	"github.com/eltmon/codies/internal/words"
)

// Team is a zero-based team index.
type Team int

// Next returns the team that plays after t in a round-robin of numTeams teams.
func (t Team) Next(numTeams int) Team {
	return (t + 1) % Team(numTeams)
}

// Tile is one board cell. Word and ownership are fixed at generation time;
// Revealed flips false -> true exactly once.
type Tile struct {
	Word    string
	Team    Team
	Neutral bool
	Bomb    bool

	Revealed bool
}

// Board is a rows x cols grid of tiles plus the per-team count of unrevealed
// team-owned tiles.
type Board struct {
	Rows, Cols int
	WordsLeft  []int

	tiles []*Tile // row-major, len rows*cols
}

// layoutKey selects a tile distribution by board size and team count.
type layoutKey struct {
	tiles int
	teams int
}

// boardLayout describes how many tiles of each kind a board contains. The
// teams slice is ordered by advantage; the starting team takes the first
// (largest) entry.
type boardLayout struct {
	bomb    int
	neutral int
	teams   []int
}

var layouts = map[layoutKey]boardLayout{
	{tiles: 25, teams: 2}: {bomb: 1, neutral: 7, teams: []int{9, 8}},
}

// newBoard generates a randomized board. The word pool must contain at least
// rows*cols distinct words; checking and fallback are the caller's concern.
func newBoard(rows, cols int, pool words.List, startingTeam Team, numTeams int, rnd Rand) *Board {
	layout, ok := layouts[layoutKey{tiles: rows * cols, teams: numTeams}]
	if !ok {
		panic(fmt.Sprintf("game: no layout for %dx%d board with %d teams", rows, cols, numTeams))
	}
	if startingTeam < 0 || int(startingTeam) >= numTeams {
		panic("game: starting team out of range")
	}

	// Rotate the team counts so the starting team receives the extra tile.
	counts := make([]int, numTeams)
	for i := range counts {
		counts[i] = layout.teams[(i+numTeams-int(startingTeam))%numTeams]
	}

	n := rows * cols
	chosen := sampleWords(pool, n, rnd)

	tiles := make([]*Tile, 0, n)
	for i := 0; i < layout.bomb; i++ {
		tiles = append(tiles, &Tile{Word: chosen[len(tiles)], Bomb: true})
	}
	for i := 0; i < layout.neutral; i++ {
		tiles = append(tiles, &Tile{Word: chosen[len(tiles)], Neutral: true})
	}
	for team, count := range counts {
		for i := 0; i < count; i++ {
			tiles = append(tiles, &Tile{Word: chosen[len(tiles)], Team: Team(team)})
		}
	}

	rnd.Shuffle(len(tiles), func(i, j int) {
		tiles[i], tiles[j] = tiles[j], tiles[i]
	})

	return &Board{
		Rows:      rows,
		Cols:      cols,
		WordsLeft: counts,
		tiles:     tiles,
	}
}

// sampleWords draws n distinct words from the pool, uniformly at random.
// Duplicate words within the pool count once.
func sampleWords(pool words.List, n int, rnd Rand) []string {
	seen := make(map[string]struct{}, pool.Len())
	distinct := make([]string, 0, pool.Len())
	for i := 0; i < pool.Len(); i++ {
		w := pool.Get(i)
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		distinct = append(distinct, w)
	}

	if len(distinct) < n {
		panic("game: word pool too small")
	}

	rnd.Shuffle(len(distinct), func(i, j int) {
		distinct[i], distinct[j] = distinct[j], distinct[i]
	})
	return distinct[:n]
}

// Get returns the tile at (row, col), or nil if out of bounds.
func (b *Board) Get(row, col int) *Tile {
	if row < 0 || col < 0 || row >= b.Rows || col >= b.Cols {
		return nil
	}
	return b.tiles[row*b.Cols+col]
}
