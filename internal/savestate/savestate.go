// Package savestate serializes a running system.System to a single
// byte blob and back, per spec.md §6's save/load contract. The wire
// format is a gob-encoded system.Snapshot prefixed by an xxhash64
// checksum of the encoded payload, so a truncated or foreign file is
// rejected before any component state is touched.
package savestate

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/cespare/xxhash"

	"github.com/dmg-core/sharpboy/internal/system"
)

// Save encodes sys's current state and writes it to w as an 8-byte
// little-endian xxhash64 checksum followed by the gob payload it covers.
func Save(w io.Writer, sys *system.System) error {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(sys.ExportState()); err != nil {
		return fmt.Errorf("savestate: encode: %w", err)
	}

	sum := xxhash.Sum64(payload.Bytes())
	var header [8]byte
	binary.LittleEndian.PutUint64(header[:], sum)

	if _, err := w.Write(header[:]); err != nil {
		return fmt.Errorf("savestate: write checksum: %w", err)
	}
	if _, err := w.Write(payload.Bytes()); err != nil {
		return fmt.Errorf("savestate: write payload: %w", err)
	}
	return nil
}

// Load reads a blob previously produced by Save and applies it to sys.
// A checksum mismatch is a load-time error (spec.md §7) and leaves sys
// untouched.
func Load(r io.Reader, sys *system.System) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("savestate: read: %w", err)
	}
	if len(data) < 8 {
		return fmt.Errorf("savestate: truncated file (%d bytes)", len(data))
	}

	want := binary.LittleEndian.Uint64(data[:8])
	payload := data[8:]

	if got := xxhash.Sum64(payload); got != want {
		return fmt.Errorf("savestate: checksum mismatch (corrupt or foreign file)")
	}

	var snap system.Snapshot
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&snap); err != nil {
		return fmt.Errorf("savestate: decode: %w", err)
	}

	sys.ImportState(snap)
	return nil
}
