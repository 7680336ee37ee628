package radio

import (
	"fmt"
)

// Define the format for the command to send to the receiver
type command []uint8

// Response sizes, status byte included.
const (
	revisionSize   = 9
	propertySize   = 4
	tuneStatusSize = 8
	rsqStatusSize  = 8
	agcStatusSize  = 3
)

type powerUpArgs struct {
	function byte
	patch    bool
}

// [POWER_UP, XOSCEN|PATCH|FUNC, OPMODE]
func (a powerUpArgs) encode() command {
	arg1 := byte(powerUpXOSC) | a.function
	if a.patch {
		arg1 |= powerUpPatch
	}
	return command{CMD_POWER_UP, arg1, opModeAnalog}
}

type propertyArgs struct {
	property uint16
	value    uint16
}

// [SET_PROPERTY, 0, PROPH, PROPL, VALH, VALL]
func (a propertyArgs) encode() command {
	return command{
		CMD_SET_PROPERTY,
		0,
		uint8(a.property >> 8),
		uint8(a.property & 0xFF),
		uint8(a.value >> 8),
		uint8(a.value & 0xFF),
	}
}

// [GET_PROPERTY, 0, PROPH, PROPL]
func (a propertyArgs) encodeGet() command {
	return command{
		CMD_GET_PROPERTY,
		0,
		uint8(a.property >> 8),
		uint8(a.property & 0xFF),
	}
}

type tuneFreqArgs struct {
	mode      Mode
	frequency uint16
	antCap    uint16
}

// FM:  [FM_TUNE_FREQ, 0, FREQH, FREQL, ANTCAP]
// AM:  [AM_TUNE_FREQ, 0, FREQH, FREQL, ANTCAPH, ANTCAPL]
// SSB: [SSB_TUNE_FREQ, USBLSB<<6, FREQH, FREQL, ANTCAPH, ANTCAPL]
func (a tuneFreqArgs) encode() command {
	switch a.mode {
	case FM:
		return command{
			CMD_FM_TUNE_FREQ,
			0,
			uint8(a.frequency >> 8),
			uint8(a.frequency & 0xFF),
			uint8(a.antCap),
		}
	case AM:
		return command{
			CMD_AM_TUNE_FREQ,
			0,
			uint8(a.frequency >> 8),
			uint8(a.frequency & 0xFF),
			uint8(a.antCap >> 8),
			uint8(a.antCap & 0xFF),
		}
	default:
		sideband := byte(0x40)
		if a.mode == USB {
			sideband = 0x80
		}
		return command{
			CMD_SSB_TUNE_FREQ,
			sideband,
			uint8(a.frequency >> 8),
			uint8(a.frequency & 0xFF),
			uint8(a.antCap >> 8),
			uint8(a.antCap & 0xFF),
		}
	}
}

// Opcodes of the commands that exist in several modes, indexed by Mode.
var (
	seekStartOpcode   = [...]uint8{FM: CMD_FM_SEEK_START, AM: CMD_AM_SEEK_START}
	tuneStatusOpcode  = [...]uint8{FM: CMD_FM_TUNE_STATUS, AM: CMD_AM_TUNE_STATUS, LSB: CMD_SSB_TUNE_STATUS, USB: CMD_SSB_TUNE_STATUS}
	rsqStatusOpcode   = [...]uint8{FM: CMD_FM_RSQ_STATUS, AM: CMD_AM_RSQ_STATUS, LSB: CMD_SSB_RSQ_STATUS, USB: CMD_SSB_RSQ_STATUS}
	agcStatusOpcode   = [...]uint8{FM: CMD_FM_AGC_STATUS, AM: CMD_AM_AGC_STATUS, LSB: CMD_SSB_AGC_STATUS, USB: CMD_SSB_AGC_STATUS}
	agcOverrideOpcode = [...]uint8{FM: CMD_FM_AGC_OVERRIDE, AM: CMD_AM_AGC_OVERRIDE, LSB: CMD_SSB_AGC_OVERRIDE, USB: CMD_SSB_AGC_OVERRIDE}
)

type seekStartArgs struct {
	mode Mode
	up   bool
}

// [SEEK_START, SEEKUP<<3|WRAP<<2]
func (a seekStartArgs) encode() command {
	arg := byte(0x04)
	if a.up {
		arg = 0x0C
	}
	return command{seekStartOpcode[a.mode], arg}
}

type tuneStatusArgs struct {
	mode   Mode
	cancel bool
}

// [TUNE_STATUS, CANCEL<<1]
func (a tuneStatusArgs) encode() command {
	arg := byte(0)
	if a.cancel {
		arg = 0x02
	}
	return command{tuneStatusOpcode[a.mode], arg}
}

type agcOverrideArgs struct {
	mode  Mode
	agcOn bool
	gain  uint8
}

// [AGC_OVERRIDE, AGCDIS, GAIN]
func (a agcOverrideArgs) encode() command {
	disable := byte(1)
	if a.agcOn {
		disable = 0
	}
	return command{agcOverrideOpcode[a.mode], disable, a.gain}
}

// TuneStatus is the response of the TUNE_STATUS commands.
type TuneStatus struct {
	Status    Status
	Resp1     byte
	Frequency uint16
	RSSI      byte
	SNR       byte

	// AntCapOrMultipath is the antenna capacitance on AM and SSB
	// and the multipath indicator on FM.
	AntCapOrMultipath uint16
}

// The chip sends 16 bit fields high byte first.
func decodeTuneStatus(b []byte) TuneStatus {
	return TuneStatus{
		Status:            Status(b[0]),
		Resp1:             b[1],
		Frequency:         uint16(b[2])<<8 | uint16(b[3]),
		RSSI:              b[4],
		SNR:               b[5],
		AntCapOrMultipath: uint16(b[6])<<8 | uint16(b[7]),
	}
}

// RsqStatus is the response of the RSQ_STATUS commands.
type RsqStatus struct {
	Status Status
	Resp1  byte
	Resp2  byte
	Resp3  byte
	RSSI   byte
	SNR    byte

	// Multipath and FrequencyOffset are only reported on FM.
	Multipath       byte
	FrequencyOffset int8
}

func decodeRsqStatus(b []byte) RsqStatus {
	return RsqStatus{
		Status:          Status(b[0]),
		Resp1:           b[1],
		Resp2:           b[2],
		Resp3:           b[3],
		RSSI:            b[4],
		SNR:             b[5],
		Multipath:       b[6],
		FrequencyOffset: int8(b[7]),
	}
}

// Pilot reports the FM stereo pilot, only meaningful on FM.
func (r RsqStatus) Pilot() bool {
	return r.Resp3&0x80 != 0
}

// Revision is the response of GET_REV.
type Revision struct {
	Status       Status
	PartNumber   byte
	Firmware     [2]byte
	PatchID      uint16
	Component    [2]byte
	ChipRevision byte
}

func decodeRevision(b []byte) Revision {
	return Revision{
		Status:       Status(b[0]),
		PartNumber:   b[1],
		Firmware:     [2]byte{b[2], b[3]},
		PatchID:      uint16(b[4])<<8 | uint16(b[5]),
		Component:    [2]byte{b[6], b[7]},
		ChipRevision: b[8],
	}
}

// AgcStatus is the response of the AGC_STATUS commands.
type AgcStatus struct {
	Status Status
	Resp1  byte
	Resp2  byte
}

func decodeAgcStatus(b []byte) AgcStatus {
	return AgcStatus{Status: Status(b[0]), Resp1: b[1], Resp2: b[2]}
}

// Disabled reports whether the AGC is overridden.
func (a AgcStatus) Disabled() bool {
	return a.Resp1&0x01 != 0
}

// Gain returns the AGC gain or attenuation index.
func (a AgcStatus) Gain() byte {
	return a.Resp2
}

// Send command to the radio chip and read back the status byte.
//
// CTS is not polled, the chip is given its fixed command time instead.
func (s *Si4732Driver) commandOut(cmd command) (Status, error) {
	if s.debugMode {
		s.debugLog("*** Command: %s\n", s.sliceToString(cmd))
	}
	if _, err := s.conn.Write(cmd); err != nil {
		return 0, fmt.Errorf("command 0x%02x: %w", cmd[0], err)
	}

	if cmd[0] == CMD_POWER_UP {
		s.clock.Sleep(powerUpDelay)
	} else {
		s.clock.Sleep(commandDelay)
	}

	status, err := s.conn.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("command 0x%02x status: %w", cmd[0], err)
	}
	if s.debugMode {
		s.debugLog("status: %x (%d)\n", status, status)
	}
	return Status(status), nil
}

// Send command to the radio chip and read a response of size bytes.
// The status byte of the response is the one returned.
func (s *Si4732Driver) commandIn(cmd command, size int) (Status, []byte, error) {
	if _, err := s.commandOut(cmd); err != nil {
		return 0, nil, err
	}

	values, err := s.buffRead(size)
	if err != nil {
		return 0, nil, fmt.Errorf("command 0x%02x response: %w", cmd[0], err)
	}
	return Status(values[0]), values, nil
}

func (s *Si4732Driver) buffRead(size int) ([]byte, error) {
	values := make([]byte, size)
	nValues, err := s.conn.Read(values)
	if err != nil {
		return nil, err
	}

	if nValues != size {
		return nil, fmt.Errorf("failed to read %d bytes from the line, read %d -> %s", size, nValues, s.sliceToString(values))
	}

	if s.debugMode {
		s.debugLog("read %d bytes: %s", size, s.sliceToString(values))
	}
	return values, nil
}

func (s *Si4732Driver) sliceToString(val []byte) string {
	res := ""
	for idx := range val {
		res += fmt.Sprintf("[%d]=0x%x(%d) ", idx, val[idx], val[idx])
	}
	return res
}

// SetProperty sets a chip property and waits for the chip to apply it.
func (s *Si4732Driver) SetProperty(property uint16, value uint16) (Status, error) {
	if s.debugMode {
		s.debugLog("Set Prop 0x%x = 0x%x (%d)\n", property, value, value)
	}

	status, err := s.commandOut(propertyArgs{property: property, value: value}.encode())
	if err != nil {
		return status, err
	}
	s.clock.Sleep(propertyDelay)
	return status, nil
}

// GetProperty retrieves the value of a chip property.
func (s *Si4732Driver) GetProperty(property uint16) (uint16, error) {
	_, values, err := s.commandIn(propertyArgs{property: property}.encodeGet(), propertySize)
	if err != nil {
		return 0, err
	}
	return uint16(values[2])<<8 | uint16(values[3]), nil
}

// GetRev gets the part number, firmware, patch and chip revision.
func (s *Si4732Driver) GetRev() (Revision, error) {
	_, values, err := s.commandIn(command{CMD_GET_REV}, revisionSize)
	if err != nil {
		return Revision{}, err
	}

	rev := decodeRevision(values)
	if s.debugMode {
		s.debugLog("Part # Si47%d-%c%c\n", rev.PartNumber, rev.Firmware[0], rev.Firmware[1])
		s.debugLog("Patch %x\n", rev.PatchID)
		s.debugLog("Chip rev %c\n", rev.ChipRevision)
	}
	return rev, nil
}

// GetIntStatus reads the interrupt status bits.
func (s *Si4732Driver) GetIntStatus() (Status, error) {
	return s.commandOut(command{CMD_GET_INT_STATUS})
}
