package cartridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeROM(banks int) []byte {
	rom := make([]byte, banks*0x4000)
	for bank := 0; bank < banks; bank++ {
		for i := 0; i < 0x4000; i++ {
			rom[bank*0x4000+i] = byte(bank)
		}
	}
	return rom
}

func TestMBC1BankSwitch(t *testing.T) {
	rom := makeROM(8)
	m := newMBC1(rom, 0)

	require.Equal(t, byte(0), m.Read(0x0000), "bank 0 window always reads bank 0")

	m.Write(0x2100, 0x02) // select bank 2 (matches scenario 3 in spec.md §8)
	assert.Equal(t, byte(2), m.Read(0x4000))

	m.Write(0x2100, 0x00) // writing 0 is aliased to bank 1
	assert.Equal(t, byte(1), m.Read(0x4000))
}

func TestMBC1NeverSelectsBankZeroInHighWindow(t *testing.T) {
	rom := makeROM(4)
	m := newMBC1(rom, 0)
	for i := 0; i < 32; i++ {
		m.Write(0x2000, byte(i))
		bank := m.highBankSelect() & 0x1F
		assert.NotEqual(t, uint8(0), bank, "5-bit primary register must never select bank 0")
	}
}

func TestMBC1RAMEnableLatch(t *testing.T) {
	rom := makeROM(2)
	m := newMBC1(rom, 0x2000)

	assert.Equal(t, byte(0xFF), m.Read(0xA000), "RAM disabled by default")

	m.Write(0x0000, 0x0A)
	m.Write(0xA000, 0x42)
	assert.Equal(t, byte(0x42), m.Read(0xA000))

	m.Write(0x0000, 0x00)
	assert.Equal(t, byte(0xFF), m.Read(0xA000), "disabling RAM hides prior writes")
}

func TestMBC3RTCLatchSequence(t *testing.T) {
	rom := makeROM(2)
	m := newMBC3(rom, 0x2000, true)
	m.Write(0x0000, 0x0A)
	m.Write(0x4000, 0x08) // select RTC seconds register
	m.rtc[0] = 30

	// latch requires 0x00 then 0x01
	m.Write(0x6000, 0x00)
	m.Write(0x6000, 0x01)
	assert.Equal(t, byte(30), m.Read(0xA000))
}

func TestMBC3RTCAdvancesWithTicks(t *testing.T) {
	rom := makeROM(2)
	m := newMBC3(rom, 0x2000, true)

	m.Tick(dotsPerSecond - 1)
	assert.Equal(t, byte(0), m.rtc[0], "RTC must not tick over before a full emulated second elapses")

	m.Tick(1)
	assert.Equal(t, byte(1), m.rtc[0])

	m.Tick(59 * dotsPerSecond)
	assert.Equal(t, byte(0), m.rtc[0], "seconds wrap at 60")
	assert.Equal(t, byte(1), m.rtc[1], "carries into minutes")
}

func TestMBC3RTCHaltStopsAdvancing(t *testing.T) {
	rom := makeROM(2)
	m := newMBC3(rom, 0x2000, true)
	m.rtc[4] = 0x40 // halt bit set

	m.Tick(10 * dotsPerSecond)
	assert.Equal(t, byte(0), m.rtc[0], "halt bit freezes the RTC")
}

func TestMBC5AllowsBankZero(t *testing.T) {
	rom := makeROM(4)
	m := newMBC5(rom, 0)
	m.Write(0x2000, 0x00)
	assert.Equal(t, byte(0), m.Read(0x4000), "MBC5 allows bank 0 in the high window")
}

func TestParseHeaderRejectsShortImage(t *testing.T) {
	_, err := ParseHeader(make([]byte, 0x10))
	require.Error(t, err)
}

func TestParseHeaderMBC1RAMBattery(t *testing.T) {
	rom := makeROM(2)
	rom[typeOffset] = 0x03 // MBC1+RAM+BATTERY
	rom[romSizeOffset] = 0x00
	rom[ramSizeOffset] = 0x02 // 8 KiB
	copy(rom[titleOffset:], []byte("TEST"))

	h, err := ParseHeader(rom)
	require.NoError(t, err)
	assert.Equal(t, "TEST", h.Title)
	assert.Equal(t, KindMBC1, h.Kind)
	assert.True(t, h.HasBattery)
	assert.Equal(t, 8*1024, h.RAMBytes)
}
