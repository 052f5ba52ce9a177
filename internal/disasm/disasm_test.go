package disasm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmg-core/sharpboy/internal/addr"
	"github.com/dmg-core/sharpboy/internal/cpu"
	"github.com/dmg-core/sharpboy/internal/disasm"
)

type fakeBus struct {
	mem [0x10000]byte
}

func (b *fakeBus) Read(address uint16) byte          { return b.mem[address] }
func (b *fakeBus) Write(address uint16, value byte)  { b.mem[address] = value }
func (b *fakeBus) Tick(cycles int)                   {}
func (b *fakeBus) InterruptFlags() byte              { return 0 }
func (b *fakeBus) InterruptEnable() byte             { return 0 }
func (b *fakeBus) ClearInterruptFlag(i addr.Interrupt) {}

func TestInstructionLengthMatchesCPUPCAdvance(t *testing.T) {
	// Only non-branching opcodes: for these, disasm's declared length
	// must equal how far the CPU actually moves PC.
	cases := []struct {
		name string
		code []byte
		want string
	}{
		{"NOP", []byte{0x00}, "NOP"},
		{"LD BC,nn", []byte{0x01, 0x34, 0x12}, "LD BC,0x1234"},
		{"LD B,n", []byte{0x06, 0x42}, "LD B,0x42"},
		{"LD A,A", []byte{0x7F}, "LD A,A"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bus := &fakeBus{}
			copy(bus.mem[:], tc.code)

			line := disasm.DisassembleAt(0, bus)
			assert.Equal(t, tc.want, line.Text)

			length := disasm.InstructionLength(0, bus)
			require.Equal(t, len(tc.code), length, "disassembled length must match the encoded instruction")

			c := cpu.New(bus)
			c.SetPC(0)
			startPC := c.PC()
			c.Step()
			assert.Equal(t, startPC+uint16(length), c.PC(), "cpu PC advance must match disasm's declared instruction length")
		})
	}
}

func TestBranchingInstructionsDecodeTheirEncodedLength(t *testing.T) {
	// JR/CALL/JP alter PC on execution, so only the disasm-declared
	// length (not the post-Step PC) is checked here.
	cases := []struct {
		name string
		code []byte
		want string
		len  int
	}{
		{"JR n", []byte{0x18, 0xFE}, "JR 0x0000", 2},
		{"CALL nn", []byte{0xCD, 0x00, 0x10}, "CALL 0x1000", 3},
		{"HALT", []byte{0x76}, "HALT", 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bus := &fakeBus{}
			copy(bus.mem[:], tc.code)

			line := disasm.DisassembleAt(0, bus)
			assert.Equal(t, tc.want, line.Text)
			assert.Equal(t, tc.len, disasm.InstructionLength(0, bus))
		})
	}
}

func TestCBOpcodesDecodeToTwoBytes(t *testing.T) {
	bus := &fakeBus{}
	bus.mem[0] = 0xCB
	bus.mem[1] = 0x00 // RLC B

	line := disasm.DisassembleAt(0, bus)
	assert.Equal(t, "RLC B", line.Text)
	assert.Equal(t, 2, disasm.InstructionLength(0, bus))
}

func TestBitResSetMnemonicsAreStructurallyConsistent(t *testing.T) {
	bus := &fakeBus{}
	bus.mem[0] = 0xCB
	bus.mem[1] = 0x7C // BIT 7,H

	line := disasm.DisassembleAt(0, bus)
	assert.Equal(t, "BIT 7,H", line.Text)
}
