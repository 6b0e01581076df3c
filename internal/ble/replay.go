package ble

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ReplaySource delivers advertisements recorded as text, one per line:
//
//	name,rssi,hexpayload
//
// Blank lines and lines starting with '#' are skipped. The address of a
// replayed advertisement is "replay:<line>".
//
// Each record is delivered once over the life of the source. A scan that
// ends early leaves the rest for the next call.
type ReplaySource struct {
	records []Advertisement

	mu   sync.Mutex
	next int
}

func NewReplaySource(path string) (*ReplaySource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	defer f.Close()

	records, err := ParseReplay(f)
	if err != nil {
		return nil, fmt.Errorf("parse replay file %s: %w", path, err)
	}
	return &ReplaySource{records: records}, nil
}

func NewReplaySourceFrom(records []Advertisement) *ReplaySource {
	return &ReplaySource{records: records}
}

// Scan delivers the records not yet delivered and returns ErrEndOfStream once
// none are left. It returns nil when ctx ends first.
func (s *ReplaySource) Scan(ctx context.Context, fn func(Advertisement)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.next < len(s.records) {
		if ctx.Err() != nil {
			return nil
		}
		r := s.records[s.next]
		r.Payload = append([]byte(nil), r.Payload...)
		r.SeenAt = time.Now()
		fn(r)
		s.next++
	}
	return ErrEndOfStream
}

func ParseReplay(r io.Reader) ([]Advertisement, error) {
	var out []Advertisement
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		parts := strings.Split(text, ",")
		if len(parts) != 3 {
			return nil, fmt.Errorf("line %d: want name,rssi,hexpayload, got %d fields", line, len(parts))
		}
		rssi, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid rssi %q: %w", line, parts[1], err)
		}
		payload, err := hex.DecodeString(strings.TrimSpace(parts[2]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid payload: %w", line, err)
		}

		out = append(out, Advertisement{
			Address:   fmt.Sprintf("replay:%d", line),
			LocalName: parts[0],
			RSSI:      rssi,
			Payload:   payload,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read replay: %w", err)
	}
	return out, nil
}
