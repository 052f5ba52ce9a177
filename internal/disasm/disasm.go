// Package disasm turns a byte stream into human-readable Sharp-LR35902
// assembly. It carries its own mnemonic tables independent of the
// internal/cpu opcode dispatcher (spec.md §9's "single source of truth"
// concern is instead satisfied by disasm_test.go cross-checking each
// opcode's operand length and byte count against internal/cpu's actual
// PC advancement), so a corrupted or incomplete disassembly table can
// never affect emulation correctness.
package disasm

import "fmt"

// Reader is the minimal bus access disassembly needs: a random-access
// byte read with no side effects on the emulated state.
type Reader interface {
	Read(address uint16) byte
}

// operandKind describes how many bytes (beyond the opcode, and the 0xCB
// prefix byte where relevant) follow an instruction and how to render
// them.
type operandKind uint8

const (
	operandNone operandKind = iota
	operandImm8
	operandImm16
	operandRel8 // signed displacement, rendered as an absolute target address
)

// Line is one disassembled instruction.
type Line struct {
	Address uint16
	Bytes   []byte
	Text    string
}

// DisassembleAt decodes the instruction at pc without mutating any
// emulator state (Reader is a plain memory-mapped read, which is
// side-effect-free for every address disassembly is meaningful at).
func DisassembleAt(pc uint16, r Reader) Line {
	opcode := r.Read(pc)

	if opcode == 0xCB {
		cb := r.Read(pc + 1)
		return Line{
			Address: pc,
			Bytes:   []byte{opcode, cb},
			Text:    mnemonicCB[cb],
		}
	}

	template := mnemonicPrimary[opcode]
	kind := operandKindPrimary[opcode]

	switch kind {
	case operandNone:
		return Line{Address: pc, Bytes: []byte{opcode}, Text: template}
	case operandImm8:
		n := r.Read(pc + 1)
		return Line{
			Address: pc,
			Bytes:   []byte{opcode, n},
			Text:    fmt.Sprintf(template, n),
		}
	case operandImm16:
		lo, hi := r.Read(pc+1), r.Read(pc+2)
		nn := uint16(hi)<<8 | uint16(lo)
		return Line{
			Address: pc,
			Bytes:   []byte{opcode, lo, hi},
			Text:    fmt.Sprintf(template, nn),
		}
	case operandRel8:
		offset := int8(r.Read(pc + 1))
		target := uint16(int32(pc) + 2 + int32(offset))
		return Line{
			Address: pc,
			Bytes:   []byte{opcode, byte(offset)},
			Text:    fmt.Sprintf(template, target),
		}
	default:
		return Line{Address: pc, Bytes: []byte{opcode}, Text: "???"}
	}
}

// InstructionLength returns the total encoded length in bytes of the
// instruction at pc (opcode plus operand, plus the CB prefix byte).
func InstructionLength(pc uint16, r Reader) int {
	opcode := r.Read(pc)
	if opcode == 0xCB {
		return 2
	}
	switch operandKindPrimary[opcode] {
	case operandImm8, operandRel8:
		return 2
	case operandImm16:
		return 3
	default:
		return 1
	}
}
