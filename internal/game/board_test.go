// internal/game/board_test.go
package game

import (
	"math/rand"
	"testing"

	"github.com/eltmon/codies/internal/words"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seededRand returns a deterministic Rand for tests.
func seededRand(seed int64) Rand {
	return rand.New(rand.NewSource(seed))
}

func TestLayouts(t *testing.T) {
	for key, layout := range layouts {
		assert.Equal(t, key.teams, len(layout.teams))

		sum := layout.bomb + layout.neutral
		for _, n := range layout.teams {
			sum += n
		}
		assert.Equal(t, key.tiles, sum)

		// Counts must be ordered largest-first so rotation hands the
		// extra tile to the starting team.
		for i := 1; i < len(layout.teams); i++ {
			assert.GreaterOrEqual(t, layout.teams[i-1], layout.teams[i])
		}
	}
}

func TestNewBoardComposition(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		for start := Team(0); start < 2; start++ {
			b := newBoard(5, 5, words.Base, start, 2, seededRand(seed))

			var bombs, neutral int
			counts := make([]int, 2)
			seen := make(map[string]bool)

			for row := 0; row < b.Rows; row++ {
				for col := 0; col < b.Cols; col++ {
					tile := b.Get(row, col)
					require.NotNil(t, tile)
					assert.False(t, tile.Revealed)
					assert.False(t, seen[tile.Word], "duplicate word %q", tile.Word)
					seen[tile.Word] = true

					switch {
					case tile.Bomb:
						bombs++
					case tile.Neutral:
						neutral++
					default:
						counts[tile.Team]++
					}
				}
			}

			assert.Equal(t, 1, bombs)
			assert.Equal(t, 7, neutral)
			assert.Equal(t, counts, b.WordsLeft)

			// The starting team gets the extra tile.
			assert.Equal(t, 9, counts[start])
			assert.Equal(t, 8, counts[start.Next(2)])
		}
	}
}

func TestBoardGetBounds(t *testing.T) {
	b := newBoard(5, 5, words.Base, 0, 2, seededRand(1))

	assert.Nil(t, b.Get(-1, 0))
	assert.Nil(t, b.Get(0, -1))
	assert.Nil(t, b.Get(5, 0))
	assert.Nil(t, b.Get(0, 5))
	assert.NotNil(t, b.Get(4, 4))
}

func TestSampleWordsDistinct(t *testing.T) {
	// A pool with duplicates must still produce distinct picks.
	dup := words.NewList([]string{"a", "b", "c", "a", "b", "d"})
	picked := sampleWords(dup, 4, seededRand(7))

	require.Len(t, picked, 4)
	seen := make(map[string]bool)
	for _, w := range picked {
		assert.False(t, seen[w])
		seen[w] = true
	}
}

func TestTeamNext(t *testing.T) {
	assert.Equal(t, Team(1), Team(0).Next(2))
	assert.Equal(t, Team(0), Team(1).Next(2))
	assert.Equal(t, Team(0), Team(2).Next(3))
}
