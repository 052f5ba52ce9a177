package cartridge

// mbc is the tagged-variant interface every memory bank controller
// implements. A dispatch table keyed by cartridge.Kind (see NewMBC)
// keeps the address decode in cartridge.go readable, per spec.md §9's
// "tagged variant, not a class hierarchy" guidance.
type mbc interface {
	Read(addr uint16) uint8
	Write(addr uint16, value uint8)
	// ExternalRAM returns the live external-RAM backing slice, for
	// battery-save persistence. nil if the variant has none.
	ExternalRAM() []uint8
	// Tick advances any variant-owned clock by cycles dots. A no-op for
	// every variant but MBC3, whose RTC needs to stay in step with the
	// emulated machine rather than the host's wall clock.
	Tick(cycles int)
}

// dotsPerSecond is the DMG system clock rate; mbc3 divides its dot
// accumulator by this to derive RTC seconds (SPEC_FULL.md's Non-goal
// keeps RTC accuracy to "a monotonic counter", not wall-clock time).
const dotsPerSecond = 4194304

// romOnly is used for cartridge type 0x00 (and the ROM+RAM variants,
// which never expose banking registers but may still carry RAM).
type romOnly struct {
	rom []uint8
	ram []uint8
}

func newROMOnly(rom []uint8, ramBytes int) *romOnly {
	return &romOnly{rom: rom, ram: make([]uint8, ramBytes)}
}

func (m *romOnly) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x7FFF:
		return m.rom[addr]
	case addr >= 0xA000 && addr <= 0xBFFF && len(m.ram) > 0:
		return m.ram[int(addr-0xA000)%len(m.ram)]
	default:
		return 0xFF
	}
}

func (m *romOnly) Write(addr uint16, value uint8) {
	if addr >= 0xA000 && addr <= 0xBFFF && len(m.ram) > 0 {
		m.ram[int(addr-0xA000)%len(m.ram)] = value
	}
}

func (m *romOnly) ExternalRAM() []uint8 { return m.ram }
func (m *romOnly) Tick(cycles int)      {}

// mbc1 implements the primary/secondary register pair and mode bit
// described in spec.md §4.4. romBank is the 5-bit primary register;
// secondary is the 2-bit register that is either the upper ROM bits or
// the RAM bank depending on bankingMode.
type mbc1 struct {
	rom          []uint8
	ram          []uint8
	romBank      uint8 // 5 bits
	secondary    uint8 // 2 bits
	bankingMode  uint8 // 0 = ROM banking, 1 = RAM banking
	ramEnabled   bool
	largeROM     bool // >= 1 MiB (64 banks): mode bit affects the 0x0000-0x3FFF window
}

func newMBC1(rom []uint8, ramBytes int) *mbc1 {
	return &mbc1{
		rom:      rom,
		ram:      make([]uint8, ramBytes),
		romBank:  1,
		largeROM: len(rom) >= 1024*1024,
	}
}

func (m *mbc1) lowBankSelect() uint8 {
	if m.largeROM && m.bankingMode == 1 {
		return m.secondary << 5
	}
	return 0
}

func (m *mbc1) highBankSelect() uint8 {
	bank := m.secondary<<5 | m.romBank
	return bank
}

func (m *mbc1) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		bank := int(m.lowBankSelect())
		return m.rom[(bank*0x4000+int(addr))%len(m.rom)]
	case addr >= 0x4000 && addr <= 0x7FFF:
		bank := int(m.highBankSelect())
		return m.rom[(bank*0x4000+int(addr-0x4000))%len(m.rom)]
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		ramBank := 0
		if m.bankingMode == 1 {
			ramBank = int(m.secondary)
		}
		return m.ram[(ramBank*0x2000+int(addr-0xA000))%len(m.ram)]
	default:
		return 0xFF
	}
}

func (m *mbc1) Write(addr uint16, value uint8) {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case addr >= 0x2000 && addr <= 0x3FFF:
		bank := value & 0x1F
		if bank == 0 {
			bank = 1 // bank 0 can never be selected into the high window
		}
		m.romBank = bank
	case addr >= 0x4000 && addr <= 0x5FFF:
		m.secondary = value & 0x03
	case addr >= 0x6000 && addr <= 0x7FFF:
		m.bankingMode = value & 0x01
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return
		}
		ramBank := 0
		if m.bankingMode == 1 {
			ramBank = int(m.secondary)
		}
		m.ram[(ramBank*0x2000+int(addr-0xA000))%len(m.ram)] = value
	}
}

func (m *mbc1) ExternalRAM() []uint8 { return m.ram }
func (m *mbc1) Tick(cycles int)      {}

// mbc2 has 512x4-bit built-in RAM and a single 4-bit ROM-bank register;
// the RAM-enable/ROM-bank distinction is which address bit 8 reads.
type mbc2 struct {
	rom        []uint8
	ram        []uint8 // nibble-addressed, one nibble per byte for simplicity
	romBank    uint8
	ramEnabled bool
}

func newMBC2(rom []uint8) *mbc2 {
	return &mbc2{rom: rom, ram: make([]uint8, 512), romBank: 1}
}

func (m *mbc2) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return m.rom[addr]
	case addr >= 0x4000 && addr <= 0x7FFF:
		bank := int(m.romBank)
		return m.rom[(bank*0x4000+int(addr-0x4000))%len(m.rom)]
	case addr >= 0xA000 && addr <= 0xA1FF:
		if !m.ramEnabled {
			return 0xFF
		}
		return m.ram[addr-0xA000] | 0xF0
	default:
		return 0xFF
	}
}

func (m *mbc2) Write(addr uint16, value uint8) {
	switch {
	case addr <= 0x3FFF:
		if addr&0x0100 == 0 {
			m.ramEnabled = value&0x0F == 0x0A
		} else {
			bank := value & 0x0F
			if bank == 0 {
				bank = 1
			}
			m.romBank = bank
		}
	case addr >= 0xA000 && addr <= 0xA1FF:
		if m.ramEnabled {
			m.ram[addr-0xA000] = value & 0x0F
		}
	}
}

func (m *mbc2) ExternalRAM() []uint8 { return m.ram }
func (m *mbc2) Tick(cycles int)      {}

// mbc3 adds a 7-bit ROM-bank register and, for RTC-bearing cartridges,
// five latchable clock registers selected by RAM-bank values 0x08-0x0C.
type mbc3 struct {
	rom          []uint8
	ram          []uint8
	romBank      uint8
	ramBank      uint8 // 0-3 selects RAM, 0x08-0x0C selects an RTC register
	ramEnabled   bool
	hasRTC       bool
	rtc          [5]uint8 // seconds, minutes, hours, day-low, day-high/flags
	rtcLatched   [5]uint8
	latchStage   uint8 // tracks the 0x00-then-0x01 latch write sequence
	dotAccum     int   // dots accumulated toward the next RTC second
	totalSeconds uint64
}

func newMBC3(rom []uint8, ramBytes int, hasRTC bool) *mbc3 {
	return &mbc3{
		rom:     rom,
		ram:     make([]uint8, ramBytes),
		romBank: 1,
		hasRTC:  hasRTC,
	}
}

// Tick advances the RTC by cycles dots. The counter is a monotonic
// count of elapsed emulated seconds, not wall-clock time (SPEC_FULL.md
// Non-goals) — it halts while bit 6 of the day-high register is set,
// matching the real MBC3's RTC-halt control bit.
func (m *mbc3) Tick(cycles int) {
	if !m.hasRTC || m.rtc[4]&0x40 != 0 {
		return
	}
	m.dotAccum += cycles
	for m.dotAccum >= dotsPerSecond {
		m.dotAccum -= dotsPerSecond
		m.totalSeconds++
	}
	m.rtc[0] = uint8(m.totalSeconds % 60)
	m.rtc[1] = uint8((m.totalSeconds / 60) % 60)
	m.rtc[2] = uint8((m.totalSeconds / 3600) % 24)
	days := m.totalSeconds / 86400
	m.rtc[3] = uint8(days & 0xFF)
	m.rtc[4] = m.rtc[4]&0xC0 | uint8((days>>8)&0x01)
}

func (m *mbc3) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return m.rom[addr]
	case addr >= 0x4000 && addr <= 0x7FFF:
		bank := int(m.romBank)
		return m.rom[(bank*0x4000+int(addr-0x4000))%len(m.rom)]
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		if m.ramBank <= 0x03 {
			if len(m.ram) == 0 {
				return 0xFF
			}
			return m.ram[(int(m.ramBank)*0x2000+int(addr-0xA000))%len(m.ram)]
		}
		if m.hasRTC && m.ramBank >= 0x08 && m.ramBank <= 0x0C {
			return m.rtcLatched[m.ramBank-0x08]
		}
		return 0xFF
	default:
		return 0xFF
	}
}

func (m *mbc3) Write(addr uint16, value uint8) {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case addr >= 0x2000 && addr <= 0x3FFF:
		bank := value & 0x7F
		if bank == 0 {
			bank = 1 // bank 0 can never be selected into the high window
		}
		m.romBank = bank
	case addr >= 0x4000 && addr <= 0x5FFF:
		m.ramBank = value
	case addr >= 0x6000 && addr <= 0x7FFF:
		if value == 0x00 {
			m.latchStage = 1
		} else if value == 0x01 && m.latchStage == 1 {
			m.rtcLatched = m.rtc
			m.latchStage = 0
		} else {
			m.latchStage = 0
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return
		}
		if m.ramBank <= 0x03 {
			if len(m.ram) > 0 {
				m.ram[(int(m.ramBank)*0x2000+int(addr-0xA000))%len(m.ram)] = value
			}
		} else if m.hasRTC && m.ramBank >= 0x08 && m.ramBank <= 0x0C {
			m.rtc[m.ramBank-0x08] = value
		}
	}
}

func (m *mbc3) ExternalRAM() []uint8 { return m.ram }

// mbc5 has a full 9-bit ROM bank register (bank 0 selectable, unlike
// MBC1/3) and a 4-bit RAM bank register; it never aliases bank 0.
type mbc5 struct {
	rom        []uint8
	ram        []uint8
	romBank    uint16 // 9 bits
	ramBank    uint8  // 4 bits
	ramEnabled bool
}

func newMBC5(rom []uint8, ramBytes int) *mbc5 {
	return &mbc5{rom: rom, ram: make([]uint8, ramBytes), romBank: 1}
}

func (m *mbc5) Read(addr uint16) uint8 {
	switch {
	case addr <= 0x3FFF:
		return m.rom[addr]
	case addr >= 0x4000 && addr <= 0x7FFF:
		bank := int(m.romBank)
		return m.rom[(bank*0x4000+int(addr-0x4000))%len(m.rom)]
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return 0xFF
		}
		return m.ram[(int(m.ramBank)*0x2000+int(addr-0xA000))%len(m.ram)]
	default:
		return 0xFF
	}
}

func (m *mbc5) Write(addr uint16, value uint8) {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = value&0x0F == 0x0A
	case addr >= 0x2000 && addr <= 0x2FFF:
		m.romBank = m.romBank&0x100 | uint16(value)
	case addr >= 0x3000 && addr <= 0x3FFF:
		m.romBank = m.romBank&0xFF | uint16(value&0x01)<<8
	case addr >= 0x4000 && addr <= 0x5FFF:
		m.ramBank = value & 0x0F
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || len(m.ram) == 0 {
			return
		}
		m.ram[(int(m.ramBank)*0x2000+int(addr-0xA000))%len(m.ram)] = value
	}
}

func (m *mbc5) ExternalRAM() []uint8 { return m.ram }
func (m *mbc5) Tick(cycles int)      {}

// newMBC builds the correct mbc implementation for a parsed header.
func newMBC(h Header, rom []uint8) (mbc, error) {
	switch h.Kind {
	case KindROMOnly:
		return newROMOnly(rom, h.RAMBytes), nil
	case KindMBC1:
		return newMBC1(rom, h.RAMBytes), nil
	case KindMBC2:
		return newMBC2(rom), nil
	case KindMBC3:
		return newMBC3(rom, h.RAMBytes, h.HasRTC), nil
	case KindMBC5:
		return newMBC5(rom, h.RAMBytes), nil
	default:
		return nil, errUnsupportedKind(h)
	}
}
