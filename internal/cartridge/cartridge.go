// Package cartridge parses Game Boy ROM images, dispatches reads and
// writes to the correct memory-bank-controller variant, and persists
// battery-backed external RAM to a ".sav" sidecar file.
package cartridge

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Cartridge owns the ROM image, the selected MBC, and (for battery
// cartridges) the path its external RAM should be flushed to on Close.
type Cartridge struct {
	Header
	mbc      mbc
	savePath string
}

func errUnsupportedKind(h Header) error {
	return fmt.Errorf("cartridge: unsupported MBC for type byte 0x%02X", h.TypeByte)
}

// New builds a Cartridge directly from a raw ROM image, with no battery
// save loaded. Useful for tests and for the boot-ROM-only "no cartridge"
// state.
func New(rom []byte) (*Cartridge, error) {
	h, err := ParseHeader(rom)
	if err != nil {
		return nil, err
	}
	m, err := newMBC(h, rom)
	if err != nil {
		return nil, err
	}
	return &Cartridge{Header: h, mbc: m}, nil
}

// LoadFile reads a ROM image from disk. A ".zip" archive containing
// exactly one image is also accepted, so test-suites and homebrew ROMs
// distributed compressed can be loaded directly. If the cartridge is
// battery-backed, a sibling "<basename>.sav" file is read into external
// RAM verbatim; a missing save file is not an error (spec.md §7).
func LoadFile(path string) (*Cartridge, error) {
	raw, err := readROMBytes(path)
	if err != nil {
		return nil, err
	}

	cart, err := New(raw)
	if err != nil {
		return nil, err
	}

	if cart.HasBattery {
		cart.savePath = savePathFor(path)
		if err := cart.loadSave(); err != nil {
			return nil, err
		}
	}

	return cart, nil
}

func readROMBytes(path string) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return readROMFromZip(path)
	}
	return os.ReadFile(path)
}

func readROMFromZip(path string) ([]byte, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("cartridge: opening zip archive: %w", err)
	}
	defer r.Close()

	var candidate *zip.File
	for _, f := range r.File {
		ext := strings.ToLower(filepath.Ext(f.Name))
		if ext == ".gb" || ext == ".gbc" {
			candidate = f
			break
		}
	}
	if candidate == nil && len(r.File) == 1 {
		candidate = r.File[0]
	}
	if candidate == nil {
		return nil, fmt.Errorf("cartridge: zip archive %s does not contain a single ROM image", path)
	}

	rc, err := candidate.Open()
	if err != nil {
		return nil, fmt.Errorf("cartridge: reading %s from archive: %w", candidate.Name, err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func savePathFor(romPath string) string {
	ext := filepath.Ext(romPath)
	return strings.TrimSuffix(romPath, ext) + ".sav"
}

func (c *Cartridge) loadSave() error {
	data, err := os.ReadFile(c.savePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cartridge: reading save file: %w", err)
	}
	ram := c.mbc.ExternalRAM()
	copy(ram, data)
	return nil
}

// FlushSave writes external RAM back to the ".sav" sidecar. It is a
// no-op for cartridges without a battery.
func (c *Cartridge) FlushSave() error {
	if c.savePath == "" {
		return nil
	}
	ram := c.mbc.ExternalRAM()
	if ram == nil {
		return nil
	}
	if err := os.WriteFile(c.savePath, ram, 0o644); err != nil {
		return fmt.Errorf("cartridge: writing save file: %w", err)
	}
	return nil
}

// Close flushes the battery save (if any). Safe to call on any cartridge.
func (c *Cartridge) Close() error {
	return c.FlushSave()
}

// Read dispatches a ROM/external-RAM read (0x0000-0x7FFF, 0xA000-0xBFFF)
// to the selected MBC.
func (c *Cartridge) Read(address uint16) uint8 {
	return c.mbc.Read(address)
}

// Write dispatches an MBC control-register or external-RAM write.
func (c *Cartridge) Write(address uint16, value uint8) {
	c.mbc.Write(address, value)
}

// ExternalRAM exposes the live external-RAM buffer, e.g. for save-state
// snapshotting.
func (c *Cartridge) ExternalRAM() []uint8 {
	return c.mbc.ExternalRAM()
}

// Tick advances any variant-owned clock (currently only the MBC3 RTC)
// by cycles dots.
func (c *Cartridge) Tick(cycles int) {
	c.mbc.Tick(cycles)
}
