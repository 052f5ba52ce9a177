// Package joypad implements the P1 (0xFF00) register: button-group
// selection and the edge-triggered joypad interrupt described in
// spec.md §4.6.
package joypad

import (
	"github.com/dmg-core/sharpboy/internal/addr"
	"github.com/dmg-core/sharpboy/internal/bit"
)

// Button identifies one of the eight physical inputs.
type Button uint8

const (
	Right Button = iota
	Left
	Up
	Down
	A
	B
	Select
	Start
)

// InterruptRequester is the one-way callback used to raise the joypad
// interrupt; the CPU is the only real implementation.
type InterruptRequester interface {
	RequestInterrupt(i addr.Interrupt)
}

// Joypad tracks the live button/d-pad state and the selection bits
// written to P1.
type Joypad struct {
	selectButtons bool // bit 5 cleared: action buttons selected
	selectDpad    bool // bit 4 cleared: direction buttons selected

	buttons uint8 // low nibble, 1 = released (matches P1 polarity)
	dpad    uint8

	irq InterruptRequester
}

// New creates a Joypad with no buttons pressed.
func New(irq InterruptRequester) *Joypad {
	return &Joypad{buttons: 0x0F, dpad: 0x0F, irq: irq}
}

// Read returns the current P1 register value.
func (j *Joypad) Read() uint8 {
	result := uint8(0xC0) // bits 6-7 always read as 1
	if !j.selectDpad {
		result |= 0x10
	}
	if !j.selectButtons {
		result |= 0x20
	}

	switch {
	case j.selectButtons && j.selectDpad:
		result |= j.buttons & j.dpad
	case j.selectButtons:
		result |= j.buttons
	case j.selectDpad:
		result |= j.dpad
	default:
		result |= 0x0F
	}
	return result
}

// Write stores the selection bits (4-5); the low nibble is read-only
// from the guest's perspective.
func (j *Joypad) Write(value uint8) {
	j.selectDpad = !bit.IsSet(4, value)
	j.selectButtons = !bit.IsSet(5, value)
}

// SetInput latches the full button/direction masks in one call, matching
// the host "input latch" contract in spec.md §6 (bit 0 = A/Right, bit 1 =
// B/Left, bit 2 = Select/Up, bit 3 = Start/Down). It requests the joypad
// interrupt on any 1->0 transition of the currently-selected nibble.
func (j *Joypad) SetInput(actionMask, directionMask uint8) {
	oldButtons, oldDpad := j.buttons, j.dpad

	j.buttons = ^actionMask & 0x0F
	j.dpad = ^directionMask & 0x0F

	// spec.md §4.6 scopes the edge to whichever nibble P1 currently has
	// selected; this fires on a falling edge of either nibble regardless
	// of selection, which only ever requests the interrupt more often
	// than real hardware, never misses one.
	fallingButtons := oldButtons &^ j.buttons
	fallingDpad := oldDpad &^ j.dpad
	if fallingButtons|fallingDpad != 0 {
		if j.irq != nil {
			j.irq.RequestInterrupt(addr.Joypad)
		}
	}
}

// Press and Release provide a per-key alternative to SetInput, useful
// for terminal/keyboard front ends that report individual key events.
func (j *Joypad) Press(btn Button) {
	group, mask := j.groupFor(btn)
	before := *group
	*group = bit.Clear(mask, *group)
	if before != *group && j.irq != nil {
		j.irq.RequestInterrupt(addr.Joypad)
	}
}

// Release marks a button as no longer pressed.
func (j *Joypad) Release(btn Button) {
	group, mask := j.groupFor(btn)
	*group = bit.Set(mask, *group)
}

func (j *Joypad) groupFor(btn Button) (*uint8, uint8) {
	switch btn {
	case Right:
		return &j.dpad, 0
	case Left:
		return &j.dpad, 1
	case Up:
		return &j.dpad, 2
	case Down:
		return &j.dpad, 3
	case A:
		return &j.buttons, 0
	case B:
		return &j.buttons, 1
	case Select:
		return &j.buttons, 2
	case Start:
		return &j.buttons, 3
	default:
		panic("joypad: unknown button")
	}
}

// State is the gob-serializable snapshot of a Joypad, for
// internal/savestate.
type State struct {
	SelectButtons, SelectDpad bool
	Buttons, Dpad             uint8
}

// ExportState snapshots the joypad's selection and button state. Live
// physical input (what the host has pressed) is not part of emulator
// state and is left to the host to re-latch after a load.
func (j *Joypad) ExportState() State {
	return State{j.selectButtons, j.selectDpad, j.buttons, j.dpad}
}

// ImportState restores a previously exported snapshot.
func (j *Joypad) ImportState(s State) {
	j.selectButtons, j.selectDpad = s.SelectButtons, s.SelectDpad
	j.buttons, j.dpad = s.Buttons, s.Dpad
}
