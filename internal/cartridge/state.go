package cartridge

// BankState is the mutable banking/RTC register state of whichever MBC
// variant is active, exported for internal/savestate snapshots. Only
// the register fields are captured here: ROM is immutable and external
// RAM is captured separately via ExternalRAM so a snapshot doesn't
// duplicate potentially megabyte-sized cartridge images.
type BankState struct {
	Kind Kind
	MBC1 MBC1State
	MBC2 MBC2State
	MBC3 MBC3State
	MBC5 MBC5State
}

type MBC1State struct {
	ROMBank     uint8
	Secondary   uint8
	BankingMode uint8
	RAMEnabled  bool
}

type MBC2State struct {
	ROMBank    uint8
	RAMEnabled bool
}

type MBC3State struct {
	ROMBank      uint8
	RAMBank      uint8
	RAMEnabled   bool
	RTC          [5]uint8
	RTCLatched   [5]uint8
	LatchStage   uint8
	DotAccum     int
	TotalSeconds uint64
}

type MBC5State struct {
	ROMBank    uint16
	RAMBank    uint8
	RAMEnabled bool
}

// ExportBankState snapshots the active MBC's register state.
func (c *Cartridge) ExportBankState() BankState {
	s := BankState{Kind: c.Header.Kind}
	switch m := c.mbc.(type) {
	case *mbc1:
		s.MBC1 = MBC1State{m.romBank, m.secondary, m.bankingMode, m.ramEnabled}
	case *mbc2:
		s.MBC2 = MBC2State{m.romBank, m.ramEnabled}
	case *mbc3:
		s.MBC3 = MBC3State{m.romBank, m.ramBank, m.ramEnabled, m.rtc, m.rtcLatched, m.latchStage, m.dotAccum, m.totalSeconds}
	case *mbc5:
		s.MBC5 = MBC5State{m.romBank, m.ramBank, m.ramEnabled}
	}
	return s
}

// ImportBankState restores a previously exported MBC register state.
// The cartridge must already be loaded with a ROM of the same Kind;
// mismatched kinds are silently ignored (the caller is expected to have
// verified the snapshot matches the running cartridge before calling).
func (c *Cartridge) ImportBankState(s BankState) {
	if s.Kind != c.Header.Kind {
		return
	}
	switch m := c.mbc.(type) {
	case *mbc1:
		m.romBank, m.secondary, m.bankingMode, m.ramEnabled = s.MBC1.ROMBank, s.MBC1.Secondary, s.MBC1.BankingMode, s.MBC1.RAMEnabled
	case *mbc2:
		m.romBank, m.ramEnabled = s.MBC2.ROMBank, s.MBC2.RAMEnabled
	case *mbc3:
		m.romBank, m.ramBank, m.ramEnabled = s.MBC3.ROMBank, s.MBC3.RAMBank, s.MBC3.RAMEnabled
		m.rtc, m.rtcLatched, m.latchStage = s.MBC3.RTC, s.MBC3.RTCLatched, s.MBC3.LatchStage
		m.dotAccum, m.totalSeconds = s.MBC3.DotAccum, s.MBC3.TotalSeconds
	case *mbc5:
		m.romBank, m.ramBank, m.ramEnabled = s.MBC5.ROMBank, s.MBC5.RAMBank, s.MBC5.RAMEnabled
	}
}
