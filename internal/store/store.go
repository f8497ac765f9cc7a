// Package store provides crash-safe persistence for market and position
// records using JSON files.
//
// Each record is stored in its own file — mkt_<marketID>.json for markets,
// pos_<marketID>_<owner>.json for positions. Writes use atomic file
// replacement (write to .tmp, then rename) so a crash mid-save never leaves
// a partially-written record.
//
// Every file carries an encoding envelope recording the fixed-point layout
// version and fractional digit count. Loading a record written with a
// different layout fails loudly instead of silently reinterpreting raw
// integers at the wrong scale.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"lmsr-amm/internal/market"
	"lmsr-amm/pkg/fixed"
)

// envelope wraps every persisted record with its encoding metadata.
type envelope struct {
	Version    int             `json:"version"`
	FracDigits int             `json:"frac_digits"`
	Record     json.RawMessage `json:"record"`
}

// Store persists markets and positions as JSON files in a directory.
// All operations are mutex-protected to prevent concurrent file corruption.
type Store struct {
	dir string
	mu  sync.Mutex
}

// Open creates a store backed by the given directory.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Close is a no-op for file-based storage.
func (s *Store) Close() error {
	return nil
}

// SaveMarket atomically persists a market record.
func (s *Store) SaveMarket(m *market.Market) error {
	return s.save(marketFile(m.ID), m)
}

// LoadMarket restores a market by ID. Returns nil, nil if no record exists.
func (s *Store) LoadMarket(id string) (*market.Market, error) {
	var m market.Market
	ok, err := s.load(marketFile(id), &m)
	if err != nil || !ok {
		return nil, err
	}
	return &m, nil
}

// ListMarkets loads every persisted market record.
func (s *Store) ListMarkets() ([]*market.Market, error) {
	s.mu.Lock()
	paths, err := filepath.Glob(filepath.Join(s.dir, "mkt_*.json"))
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("list markets: %w", err)
	}
	markets := make([]*market.Market, 0, len(paths))
	for _, p := range paths {
		var m market.Market
		ok, err := s.load(filepath.Base(p), &m)
		if err != nil {
			return nil, err
		}
		if ok {
			markets = append(markets, &m)
		}
	}
	return markets, nil
}

// SavePosition atomically persists a position record.
func (s *Store) SavePosition(p *market.Position) error {
	return s.save(positionFile(p.MarketID, p.Owner), p)
}

// LoadPosition restores a trader's position in a market.
// Returns nil, nil if the trader has never traded this market.
func (s *Store) LoadPosition(marketID, owner string) (*market.Position, error) {
	var p market.Position
	ok, err := s.load(positionFile(marketID, owner), &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

// ListPositions loads every position recorded for one market.
func (s *Store) ListPositions(marketID string) ([]*market.Position, error) {
	s.mu.Lock()
	paths, err := filepath.Glob(filepath.Join(s.dir, "pos_"+marketID+"_*.json"))
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	positions := make([]*market.Position, 0, len(paths))
	for _, p := range paths {
		var pos market.Position
		ok, err := s.load(filepath.Base(p), &pos)
		if err != nil {
			return nil, err
		}
		if ok {
			positions = append(positions, &pos)
		}
	}
	return positions, nil
}

func (s *Store) save(name string, record any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	data, err := json.Marshal(envelope{
		Version:    fixed.EncodingVersion,
		FracDigits: fixed.FracDigits,
		Record:     raw,
	})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return os.Rename(tmp, path)
}

func (s *Store) load(name string, record any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read record: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return false, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Version != fixed.EncodingVersion || env.FracDigits != fixed.FracDigits {
		return false, fmt.Errorf("record %s encoded as v%d/%d digits, want v%d/%d digits",
			name, env.Version, env.FracDigits, fixed.EncodingVersion, fixed.FracDigits)
	}
	if err := json.Unmarshal(env.Record, record); err != nil {
		return false, fmt.Errorf("unmarshal record: %w", err)
	}
	return true, nil
}

func marketFile(id string) string {
	return "mkt_" + id + ".json"
}

func positionFile(marketID, owner string) string {
	return "pos_" + marketID + "_" + owner + ".json"
}
