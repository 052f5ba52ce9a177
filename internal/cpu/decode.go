package cpu

import "github.com/dmg-core/sharpboy/internal/bit"

// illegalOpcode panics with the offending byte; spec.md §4.1 treats the
// eleven undefined Sharp-LR35902 opcodes as a hard error rather than a
// silent NOP, since a real cartridge executing one indicates a bug
// worth surfacing immediately rather than emulating undefined behavior.
func illegalOpcode(opcode uint8) {
	panic(illegalOpcodeError{opcode})
}

type illegalOpcodeError struct{ opcode uint8 }

func (e illegalOpcodeError) Error() string {
	return "cpu: illegal opcode 0x" + hexByte(e.opcode)
}

func hexByte(b uint8) string {
	const digits = "0123456789ABCDEF"
	return string([]byte{digits[b>>4], digits[b&0x0F]})
}

// execute runs one fully-fetched opcode and returns its dot cost.
// Regular blocks (LD r,r' and ALU A,r8) are decoded structurally;
// everything else is an explicit case, matching how irregular the
// rest of the encoding actually is.
func (c *CPU) execute(opcode uint8) int {
	switch {
	case opcode == 0x76:
		c.executeHalt()
		return 4
	case opcode >= 0x40 && opcode <= 0x7F:
		dst := reg8((opcode >> 3) & 0x07)
		src := reg8(opcode & 0x07)
		c.setReg8(dst, c.getReg8(src))
		if dst == regHLInd || src == regHLInd {
			return 8
		}
		return 4
	case opcode >= 0x80 && opcode <= 0xBF:
		return c.executeALUBlock(opcode)
	}

	switch opcode {
	case 0x00:
		return 4
	case 0x01:
		c.setBC(c.readImmediate16())
		return 12
	case 0x02:
		c.bus.Write(c.getBC(), c.a)
		return 8
	case 0x03:
		c.setBC(c.getBC() + 1)
		return 8
	case 0x04:
		c.b = c.inc8(c.b)
		return 4
	case 0x05:
		c.b = c.dec8(c.b)
		return 4
	case 0x06:
		c.b = c.readImmediate8()
		return 8
	case 0x07:
		c.rlca()
		return 4
	case 0x08:
		address := c.readImmediate16()
		c.bus.Write(address, bit.Low(c.sp))
		c.bus.Write(address+1, bit.High(c.sp))
		return 20
	case 0x09:
		c.addHL(c.getBC())
		return 8
	case 0x0A:
		c.a = c.bus.Read(c.getBC())
		return 8
	case 0x0B:
		c.setBC(c.getBC() - 1)
		return 8
	case 0x0C:
		c.c = c.inc8(c.c)
		return 4
	case 0x0D:
		c.c = c.dec8(c.c)
		return 4
	case 0x0E:
		c.c = c.readImmediate8()
		return 8
	case 0x0F:
		c.rrca()
		return 4

	case 0x10:
		c.readImmediate8() // padding byte, always 0x00 on real hardware
		return 4
	case 0x11:
		c.setDE(c.readImmediate16())
		return 12
	case 0x12:
		c.bus.Write(c.getDE(), c.a)
		return 8
	case 0x13:
		c.setDE(c.getDE() + 1)
		return 8
	case 0x14:
		c.d = c.inc8(c.d)
		return 4
	case 0x15:
		c.d = c.dec8(c.d)
		return 4
	case 0x16:
		c.d = c.readImmediate8()
		return 8
	case 0x17:
		c.rla()
		return 4
	case 0x18:
		c.jumpRelative(c.readImmediateSigned())
		return 12
	case 0x19:
		c.addHL(c.getDE())
		return 8
	case 0x1A:
		c.a = c.bus.Read(c.getDE())
		return 8
	case 0x1B:
		c.setDE(c.getDE() - 1)
		return 8
	case 0x1C:
		c.e = c.inc8(c.e)
		return 4
	case 0x1D:
		c.e = c.dec8(c.e)
		return 4
	case 0x1E:
		c.e = c.readImmediate8()
		return 8
	case 0x1F:
		c.rra()
		return 4

	case 0x20:
		return c.jumpRelativeIf(!c.isSet(flagZero))
	case 0x21:
		c.setHL(c.readImmediate16())
		return 12
	case 0x22:
		c.bus.Write(c.getHL(), c.a)
		c.setHL(c.getHL() + 1)
		return 8
	case 0x23:
		c.setHL(c.getHL() + 1)
		return 8
	case 0x24:
		c.h = c.inc8(c.h)
		return 4
	case 0x25:
		c.h = c.dec8(c.h)
		return 4
	case 0x26:
		c.h = c.readImmediate8()
		return 8
	case 0x27:
		c.daa()
		return 4
	case 0x28:
		return c.jumpRelativeIf(c.isSet(flagZero))
	case 0x29:
		c.addHL(c.getHL())
		return 8
	case 0x2A:
		c.a = c.bus.Read(c.getHL())
		c.setHL(c.getHL() + 1)
		return 8
	case 0x2B:
		c.setHL(c.getHL() - 1)
		return 8
	case 0x2C:
		c.l = c.inc8(c.l)
		return 4
	case 0x2D:
		c.l = c.dec8(c.l)
		return 4
	case 0x2E:
		c.l = c.readImmediate8()
		return 8
	case 0x2F:
		c.a = ^c.a
		c.setFlag(flagSub)
		c.setFlag(flagHalfCarry)
		return 4

	case 0x30:
		return c.jumpRelativeIf(!c.isSet(flagCarry))
	case 0x31:
		c.sp = c.readImmediate16()
		return 12
	case 0x32:
		c.bus.Write(c.getHL(), c.a)
		c.setHL(c.getHL() - 1)
		return 8
	case 0x33:
		c.sp++
		return 8
	case 0x34:
		c.bus.Write(c.getHL(), c.inc8(c.bus.Read(c.getHL())))
		return 12
	case 0x35:
		c.bus.Write(c.getHL(), c.dec8(c.bus.Read(c.getHL())))
		return 12
	case 0x36:
		c.bus.Write(c.getHL(), c.readImmediate8())
		return 12
	case 0x37:
		c.clearFlag(flagSub)
		c.clearFlag(flagHalfCarry)
		c.setFlag(flagCarry)
		return 4
	case 0x38:
		return c.jumpRelativeIf(c.isSet(flagCarry))
	case 0x39:
		c.addHL(c.sp)
		return 8
	case 0x3A:
		c.a = c.bus.Read(c.getHL())
		c.setHL(c.getHL() - 1)
		return 8
	case 0x3B:
		c.sp--
		return 8
	case 0x3C:
		c.a = c.inc8(c.a)
		return 4
	case 0x3D:
		c.a = c.dec8(c.a)
		return 4
	case 0x3E:
		c.a = c.readImmediate8()
		return 8
	case 0x3F:
		c.clearFlag(flagSub)
		c.clearFlag(flagHalfCarry)
		c.setFlagTo(flagCarry, !c.isSet(flagCarry))
		return 4

	case 0xC0:
		return c.returnIf(!c.isSet(flagZero))
	case 0xC1:
		c.setBC(c.popStack())
		return 12
	case 0xC2:
		return c.jumpIf(!c.isSet(flagZero))
	case 0xC3:
		c.pc = c.readImmediate16()
		return 16
	case 0xC4:
		return c.callIf(!c.isSet(flagZero))
	case 0xC5:
		c.pushStack(c.getBC())
		return 16
	case 0xC6:
		c.addA(c.readImmediate8())
		return 8
	case 0xC7:
		c.restart(0x00)
		return 16
	case 0xC8:
		return c.returnIf(c.isSet(flagZero))
	case 0xC9:
		c.pc = c.popStack()
		return 16
	case 0xCA:
		return c.jumpIf(c.isSet(flagZero))
	case 0xCB:
		return c.executeCB(c.readImmediate8())
	case 0xCC:
		return c.callIf(c.isSet(flagZero))
	case 0xCD:
		address := c.readImmediate16()
		c.pushStack(c.pc)
		c.pc = address
		return 24
	case 0xCE:
		c.adcA(c.readImmediate8())
		return 8
	case 0xCF:
		c.restart(0x08)
		return 16

	case 0xD0:
		return c.returnIf(!c.isSet(flagCarry))
	case 0xD1:
		c.setDE(c.popStack())
		return 12
	case 0xD2:
		return c.jumpIf(!c.isSet(flagCarry))
	case 0xD3:
		illegalOpcode(opcode)
	case 0xD4:
		return c.callIf(!c.isSet(flagCarry))
	case 0xD5:
		c.pushStack(c.getDE())
		return 16
	case 0xD6:
		c.subA(c.readImmediate8())
		return 8
	case 0xD7:
		c.restart(0x10)
		return 16
	case 0xD8:
		return c.returnIf(c.isSet(flagCarry))
	case 0xD9:
		c.pc = c.popStack()
		c.eiPending = true
		return 16
	case 0xDA:
		return c.jumpIf(c.isSet(flagCarry))
	case 0xDB:
		illegalOpcode(opcode)
	case 0xDC:
		return c.callIf(c.isSet(flagCarry))
	case 0xDD:
		illegalOpcode(opcode)
	case 0xDE:
		c.sbcA(c.readImmediate8())
		return 8
	case 0xDF:
		c.restart(0x18)
		return 16

	case 0xE0:
		c.bus.Write(0xFF00+uint16(c.readImmediate8()), c.a)
		return 12
	case 0xE1:
		c.setHL(c.popStack())
		return 12
	case 0xE2:
		c.bus.Write(0xFF00+uint16(c.c), c.a)
		return 8
	case 0xE3:
		illegalOpcode(opcode)
	case 0xE4:
		illegalOpcode(opcode)
	case 0xE5:
		c.pushStack(c.getHL())
		return 16
	case 0xE6:
		c.andA(c.readImmediate8())
		return 8
	case 0xE7:
		c.restart(0x20)
		return 16
	case 0xE8:
		c.sp = c.addSPSigned(c.readImmediateSigned())
		return 16
	case 0xE9:
		c.pc = c.getHL()
		return 4
	case 0xEA:
		c.bus.Write(c.readImmediate16(), c.a)
		return 16
	case 0xEB:
		illegalOpcode(opcode)
	case 0xEC:
		illegalOpcode(opcode)
	case 0xED:
		illegalOpcode(opcode)
	case 0xEE:
		c.xorA(c.readImmediate8())
		return 8
	case 0xEF:
		c.restart(0x28)
		return 16

	case 0xF0:
		c.a = c.bus.Read(0xFF00 + uint16(c.readImmediate8()))
		return 12
	case 0xF1:
		c.setAF(c.popStack())
		return 12
	case 0xF2:
		c.a = c.bus.Read(0xFF00 + uint16(c.c))
		return 8
	case 0xF3:
		c.ime = false
		c.eiPending = false
		return 4
	case 0xF4:
		illegalOpcode(opcode)
	case 0xF5:
		c.pushStack(c.getAF())
		return 16
	case 0xF6:
		c.orA(c.readImmediate8())
		return 8
	case 0xF7:
		c.restart(0x30)
		return 16
	case 0xF8:
		c.setHL(c.addSPSigned(c.readImmediateSigned()))
		return 12
	case 0xF9:
		c.sp = c.getHL()
		return 8
	case 0xFA:
		c.a = c.bus.Read(c.readImmediate16())
		return 16
	case 0xFB:
		c.eiPending = true
		return 4
	case 0xFC:
		illegalOpcode(opcode)
	case 0xFD:
		illegalOpcode(opcode)
	case 0xFE:
		c.cpA(c.readImmediate8())
		return 8
	case 0xFF:
		c.restart(0x38)
		return 16
	}

	panic("cpu: unreachable opcode dispatch")
}

// executeHalt implements the HALT opcode, including the hardware halt
// bug: if IME is off and an interrupt is already pending, real
// hardware fails to actually stop the CPU and instead corrupts the
// following opcode fetch (it re-reads its own byte, executing it
// twice) rather than sleeping.
func (c *CPU) executeHalt() {
	pending := c.bus.InterruptEnable()&c.bus.InterruptFlags()&0x1F != 0
	if !c.ime && pending {
		c.haltBug = true
		return
	}
	c.halted = true
}

func (c *CPU) executeALUBlock(opcode uint8) int {
	op := (opcode >> 3) & 0x07
	src := reg8(opcode & 0x07)
	value := c.getReg8(src)

	switch op {
	case 0:
		c.addA(value)
	case 1:
		c.adcA(value)
	case 2:
		c.subA(value)
	case 3:
		c.sbcA(value)
	case 4:
		c.andA(value)
	case 5:
		c.xorA(value)
	case 6:
		c.orA(value)
	case 7:
		c.cpA(value)
	}

	if src == regHLInd {
		return 8
	}
	return 4
}

func (c *CPU) jumpRelativeIf(condition bool) int {
	offset := c.readImmediateSigned()
	if condition {
		c.jumpRelative(offset)
		return 12
	}
	return 8
}

func (c *CPU) jumpIf(condition bool) int {
	address := c.readImmediate16()
	if condition {
		c.pc = address
		return 16
	}
	return 12
}

func (c *CPU) callIf(condition bool) int {
	address := c.readImmediate16()
	if condition {
		c.pushStack(c.pc)
		c.pc = address
		return 24
	}
	return 12
}

func (c *CPU) returnIf(condition bool) int {
	if condition {
		c.pc = c.popStack()
		return 20
	}
	return 8
}

func (c *CPU) restart(vector uint16) {
	c.pushStack(c.pc)
	c.pc = vector
}

// executeCB dispatches the CB-prefixed table. Its four quadrants are
// fully regular: bits 3-5 select the sub-operation, bits 0-2 the
// register operand (000-101=B..L, 110=(HL), 111=A).
func (c *CPU) executeCB(opcode uint8) int {
	src := reg8(opcode & 0x07)
	value := c.getReg8(src)
	readWriteCycles := 8
	if src == regHLInd {
		readWriteCycles = 16
	}

	switch {
	case opcode < 0x40:
		group := (opcode >> 3) & 0x07
		var result uint8
		switch group {
		case 0:
			result = c.rlc(value)
		case 1:
			result = c.rrc(value)
		case 2:
			result = c.rl(value)
		case 3:
			result = c.rr(value)
		case 4:
			result = c.sla(value)
		case 5:
			result = c.sra(value)
		case 6:
			result = c.swap(value)
		case 7:
			result = c.srl(value)
		}
		c.setReg8(src, result)
		return readWriteCycles

	case opcode < 0x80:
		bitIndex := (opcode >> 3) & 0x07
		c.bitTest(bitIndex, value)
		if src == regHLInd {
			return 12
		}
		return 8

	case opcode < 0xC0:
		bitIndex := (opcode >> 3) & 0x07
		c.setReg8(src, resBit(bitIndex, value))
		return readWriteCycles

	default:
		bitIndex := (opcode >> 3) & 0x07
		c.setReg8(src, setBit(bitIndex, value))
		return readWriteCycles
	}
}
