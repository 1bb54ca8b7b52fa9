// Package persist reads and writes the profile's stats and leaderboard
// records. Load failures of any kind fall back to defaults and are logged;
// they never propagate to the player.
package persist

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"minegem/internal/profile"
)

const (
	statsFileName       = "game_stats.json"
	leaderboardFileName = "leaderboard.txt"
)

// Store persists the profile under a single data directory.
type Store struct {
	dir    string
	logger *log.Logger
}

// New creates a store rooted at dir, creating it if needed.
func New(dir string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.New(os.Stdout, "[persist] ", log.LstdFlags)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("persist: create data dir: %w", err)
	}
	return &Store{dir: dir, logger: logger}, nil
}

// StatsPath returns the stats record location.
func (s *Store) StatsPath() string { return filepath.Join(s.dir, statsFileName) }

// LeaderboardPath returns the leaderboard record location.
func (s *Store) LeaderboardPath() string { return filepath.Join(s.dir, leaderboardFileName) }

// LoadStats reads the persisted stats record. A missing or malformed file
// yields the documented defaults, never an error.
func (s *Store) LoadStats() profile.Stats {
	stats := profile.DefaultStats()

	data, err := os.ReadFile(s.StatsPath())
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Printf("load stats: %v; using defaults", err)
		}
		return stats
	}
	// Unmarshal over the defaults so keys missing from an older record keep
	// their default values.
	if err := json.Unmarshal(data, &stats); err != nil {
		s.logger.Printf("parse stats: %v; using defaults", err)
		return profile.DefaultStats()
	}
	return stats
}

// SaveStats writes the stats record atomically via a temp file rename.
func (s *Store) SaveStats(stats profile.Stats) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("persist: marshal stats: %w", err)
	}
	return s.writeFile(s.StatsPath(), append(data, '\n'))
}

// LoadLeaderboard reads the newline-delimited leaderboard record. Lines that
// fail to parse as a decimal are skipped; a missing or unreadable file yields
// an empty leaderboard.
func (s *Store) LoadLeaderboard() *profile.Leaderboard {
	f, err := os.Open(s.LeaderboardPath())
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Printf("load leaderboard: %v; starting empty", err)
		}
		return profile.NewLeaderboard(nil)
	}
	defer f.Close()

	var entries []decimal.Decimal
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := decimal.NewFromString(line)
		if err != nil {
			s.logger.Printf("leaderboard: skipping bad line %q", line)
			continue
		}
		entries = append(entries, v)
	}
	if err := scanner.Err(); err != nil {
		s.logger.Printf("load leaderboard: %v", err)
	}
	return profile.NewLeaderboard(entries)
}

// SaveLeaderboard writes the leaderboard sorted descending, one fixed-point
// value per line.
func (s *Store) SaveLeaderboard(board *profile.Leaderboard) error {
	var b strings.Builder
	for _, v := range board.Sorted() {
		b.WriteString(v.StringFixed(2))
		b.WriteByte('\n')
	}
	return s.writeFile(s.LeaderboardPath(), []byte(b.String()))
}

func (s *Store) writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("persist: write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("persist: replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
