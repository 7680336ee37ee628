// Package radio implements the driver for the Silicon Labs Si4732
// AM/FM/SW/LW receiver with SSB support. The chip is controlled over
// I2C with the Si47xx command protocol: every command is a short frame
// starting with an opcode, followed by a status byte read and, for some
// commands, a fixed size response record.
//
// The main implementation is under the Si4732Driver and it requires
// some additional configuration via the Si4732Config structure. The
// receiver state lives in a RadioConfig owned by the caller; the driver
// keeps a reference to it and updates it as the single source of truth
// for the current tuning.
//
// SSB reception needs a firmware patch to be loaded into the chip after
// every power up. The patch can come from memory (PatchImage) or from
// an external I2C EEPROM (PatchStore).
//
// To read about the specifications of the receiver, read the following documents:
// https://www.skyworksinc.com/-/media/Skyworks/SL/documents/public/data-sheets/Si4730-31-34-35-D60.pdf
// https://www.skyworksinc.com/-/media/Skyworks/SL/documents/public/application-notes/AN332.pdf
package radio

import (
	"errors"
	"fmt"
	"time"

	"gobot.io/x/gobot"
	"gobot.io/x/gobot/drivers/gpio"
	"gobot.io/x/gobot/drivers/i2c"
)

const (
	low  = 0x0
	high = 0x1
)

// Misc constants.
//
//goland:noinspection GoUnusedConst,GoUnnecessarilyExportedIdentifiers,GoSnakeCaseUsage
const (
	// Address is the device address when SEN is low.
	Address = 0x11

	// AlternativeAddress if SEN is high.
	AlternativeAddress = 0x63

	// DEFAULT_RESET_PIN is the header pin wired to RST on the reference board.
	DEFAULT_RESET_PIN = "29"

	// MAX_VOLUME is the highest RX_VOLUME value.
	MAX_VOLUME = 63
)

// Different command identifiers that the receiver supports.
// The same numeric opcode is shared between AM and SSB because the SSB
// firmware patch reuses the AM command set.
//
//goland:noinspection GoUnusedConst,GoUnnecessarilyExportedIdentifiers,GoSnakeCaseUsage
const (
	// CMD_POWER_UP powers up the device and selects the function (FM or AM/SSB).
	CMD_POWER_UP = 0x01

	// CMD_GET_REV returns revision information on the device.
	CMD_GET_REV = 0x10

	// CMD_POWER_DOWN powers down the device.
	CMD_POWER_DOWN = 0x11

	// CMD_SET_PROPERTY sets the value of a property.
	CMD_SET_PROPERTY = 0x12

	// CMD_GET_PROPERTY retrieves a property's value.
	CMD_GET_PROPERTY = 0x13

	// CMD_GET_INT_STATUS reads interrupt status bits.
	CMD_GET_INT_STATUS = 0x14

	// CMD_PATCH_ARGS starts a group of patch frames.
	CMD_PATCH_ARGS = 0x15

	// CMD_PATCH_DATA continues a group of patch frames.
	CMD_PATCH_DATA = 0x16

	// CMD_FM_TUNE_FREQ selects the FM tuning frequency.
	CMD_FM_TUNE_FREQ = 0x20

	// CMD_FM_SEEK_START begins searching for a valid FM frequency.
	CMD_FM_SEEK_START = 0x21

	// CMD_FM_TUNE_STATUS queries the status of the previous FM_TUNE_FREQ or FM_SEEK_START.
	CMD_FM_TUNE_STATUS = 0x22

	// CMD_FM_RSQ_STATUS queries the received signal quality of the current FM channel.
	CMD_FM_RSQ_STATUS = 0x23

	// CMD_FM_RDS_STATUS returns RDS information for the current channel.
	CMD_FM_RDS_STATUS = 0x24

	// CMD_FM_AGC_STATUS queries the current FM AGC settings.
	CMD_FM_AGC_STATUS = 0x27

	// CMD_FM_AGC_OVERRIDE overrides the FM AGC by forcing a fixed gain.
	CMD_FM_AGC_OVERRIDE = 0x28

	// CMD_AM_TUNE_FREQ tunes to a given AM frequency.
	CMD_AM_TUNE_FREQ = 0x40

	// CMD_AM_SEEK_START begins searching for a valid AM frequency.
	CMD_AM_SEEK_START = 0x41

	// CMD_AM_TUNE_STATUS queries the status of the previous AM_TUNE_FREQ or AM_SEEK_START.
	CMD_AM_TUNE_STATUS = 0x42

	// CMD_AM_RSQ_STATUS queries the received signal quality of the current AM channel.
	CMD_AM_RSQ_STATUS = 0x43

	// CMD_AM_AGC_STATUS queries the current AM AGC settings.
	CMD_AM_AGC_STATUS = 0x47

	// CMD_AM_AGC_OVERRIDE overrides the AM AGC by forcing a fixed attenuation.
	CMD_AM_AGC_OVERRIDE = 0x48

	// CMD_SSB_TUNE_FREQ selects the SSB tuning frequency.
	CMD_SSB_TUNE_FREQ = 0x40

	// CMD_SSB_TUNE_STATUS queries the status of the previous SSB_TUNE_FREQ.
	CMD_SSB_TUNE_STATUS = 0x42

	// CMD_SSB_RSQ_STATUS queries the received signal quality of the current SSB channel.
	CMD_SSB_RSQ_STATUS = 0x43

	// CMD_SSB_AGC_STATUS queries the current SSB AGC settings.
	CMD_SSB_AGC_STATUS = 0x47

	// CMD_SSB_AGC_OVERRIDE overrides the SSB AGC by forcing a fixed attenuation.
	CMD_SSB_AGC_OVERRIDE = 0x48
)

// This section holds the properties of the receiver that the driver uses.
//
//goland:noinspection GoUnusedConst,GoUnnecessarilyExportedIdentifiers,GoSnakeCaseUsage
const (
	// PROP_SSB_BFO sets the beat frequency offset in Hz, -16383 to 16383.
	PROP_SSB_BFO = 0x0100

	// PROP_SSB_MODE selects the SSB audio bandwidth, sideband cutoff filter and AFC.
	PROP_SSB_MODE = 0x0101

	// PROP_FM_DEEMPHASIS sets the FM de-emphasis time constant.
	// 1 is 50 μS, 2 is 75 μS.
	PROP_FM_DEEMPHASIS = 0x1100

	// PROP_FM_CHANNEL_FILTER selects the FM channel filter bandwidth.
	// 0 is automatic.
	PROP_FM_CHANNEL_FILTER = 0x1102

	// PROP_FM_SEEK_BAND_BOTTOM sets the lower seek boundary of the FM band in 10 kHz units.
	PROP_FM_SEEK_BAND_BOTTOM = 0x1400

	// PROP_FM_SEEK_BAND_TOP sets the upper seek boundary of the FM band in 10 kHz units.
	PROP_FM_SEEK_BAND_TOP = 0x1401

	// PROP_FM_SEEK_FREQ_SPACING sets the FM seek spacing in 10 kHz units.
	PROP_FM_SEEK_FREQ_SPACING = 0x1402

	// PROP_FM_BLEND_RSSI_STEREO_THRESHOLD sets the RSSI above which the audio is full stereo.
	PROP_FM_BLEND_RSSI_STEREO_THRESHOLD = 0x1800

	// PROP_FM_BLEND_RSSI_MONO_THRESHOLD sets the RSSI below which the audio is full mono.
	PROP_FM_BLEND_RSSI_MONO_THRESHOLD = 0x1801

	// PROP_FM_BLEND_SNR_STEREO_THRESHOLD sets the SNR above which the audio is full stereo.
	PROP_FM_BLEND_SNR_STEREO_THRESHOLD = 0x1804

	// PROP_FM_BLEND_SNR_MONO_THRESHOLD sets the SNR below which the audio is full mono.
	PROP_FM_BLEND_SNR_MONO_THRESHOLD = 0x1805

	// PROP_AM_CHANNEL_FILTER selects the AM channel filter bandwidth.
	PROP_AM_CHANNEL_FILTER = 0x3102

	// PROP_AM_SEEK_BAND_BOTTOM sets the lower seek boundary of the AM band in kHz.
	PROP_AM_SEEK_BAND_BOTTOM = 0x3400

	// PROP_AM_SEEK_BAND_TOP sets the upper seek boundary of the AM band in kHz.
	PROP_AM_SEEK_BAND_TOP = 0x3401

	// PROP_AM_SEEK_FREQ_SPACING sets the AM seek spacing in kHz.
	PROP_AM_SEEK_FREQ_SPACING = 0x3402

	// PROP_RX_VOLUME sets the output volume, 0 to 63.
	PROP_RX_VOLUME = 0x4000

	// PROP_RX_HARD_MUTE mutes the left and right audio outputs.
	PROP_RX_HARD_MUTE = 0x4001
)

// Power up arguments.
const (
	funcFM       = 0x00
	funcAM       = 0x01
	powerUpXOSC  = 0x10
	powerUpPatch = 0x20
	opModeAnalog = 0x05
)

// Hardware timings.
const (
	powerUpDelay  = 110 * time.Millisecond // tCTS after POWER_UP
	commandDelay  = 300 * time.Microsecond // tCTS for every other command
	propertyDelay = 10 * time.Millisecond  // tCOMP after SET_PROPERTY
	resetDelay    = 10 * time.Millisecond
)

var (
	// ErrNoRadioConfig is returned when a tuning operation is attempted
	// before a RadioConfig was bound with SetRadio.
	ErrNoRadioConfig = errors.New("no radio configuration bound, call SetRadio first")

	// ErrNoPatch is returned when SSB is selected without a patch source.
	ErrNoPatch = errors.New("no SSB patch source configured")
)

// Si4732Driver holds the implementation to talk to the
// Si4732 receiver.
//
//goland:noinspection GoUnnecessarilyExportedIdentifiers
type Si4732Driver struct {
	resetPin string

	i2cAddr      int
	conn         i2c.Connection
	i2cConnector i2c.Connector
	i2c.Config

	clock Clock

	debugMode bool
	debugLog  func(format string, v ...interface{})
	log       func(format string, v ...interface{})

	name string

	startRadio   *RadioConfig
	rx           *RadioConfig
	mode         Mode
	patched      bool
	volume       uint8
	mute         bool
	labels       [labelCount]string
	seeking      bool
	intervalTime uint16

	patch        *PatchImage
	patchStore   PatchStore
	patchAddress uint16
}

// Name of our device.
func (s *Si4732Driver) Name() string {
	return s.name
}

// SetName set the name of our device.
func (s *Si4732Driver) SetName(name string) {
	s.name = name
}

// Start opens the connection, resets the chip and applies the
// radio configuration given in Si4732Config, if any.
func (s *Si4732Driver) Start() error {
	bus := s.GetBusOrDefault(s.i2cConnector.GetDefaultBus())
	address := s.GetAddressOrDefault(s.i2cAddr)

	var err error
	s.conn, err = s.i2cConnector.GetConnection(address, bus)
	if err != nil {
		return err
	}

	if err = s.reset(); err != nil {
		return err
	}

	if s.startRadio == nil {
		return nil
	}

	return s.SetRadio(s.startRadio)
}

// Halt stops the device in a graceful way.
func (s *Si4732Driver) Halt() error {
	if s.conn == nil {
		return nil
	}
	_, err := s.PowerDown()
	return err
}

// Connection retrieves the i2c connection to the device.
func (s *Si4732Driver) Connection() gobot.Connection {
	return s.i2cConnector.(gobot.Connection)
}

// Mode returns the active reception mode.
func (s *Si4732Driver) Mode() Mode {
	return s.mode
}

// Radio returns the bound radio configuration.
func (s *Si4732Driver) Radio() *RadioConfig {
	return s.rx
}

// Volume returns the current output volume.
func (s *Si4732Driver) Volume() uint8 {
	return s.volume
}

// Muted reports whether the audio output is hard muted.
func (s *Si4732Driver) Muted() bool {
	return s.mute
}

// Resets the chip by pulling the reset line low.
func (s *Si4732Driver) reset() (err error) {
	dw, ok := s.i2cConnector.(gpio.DigitalWriter)
	if !ok {
		return fmt.Errorf("i2c connector does not have a digital writer capability")
	}

	if err = dw.DigitalWrite(s.resetPin, low); err != nil {
		return err
	}
	s.clock.Sleep(resetDelay)

	if err = dw.DigitalWrite(s.resetPin, high); err != nil {
		return err
	}
	s.clock.Sleep(resetDelay)

	s.patched = false
	return nil
}

// PowerUp sends the power up command for the given function with the
// crystal oscillator enabled and analog audio outputs.
func (s *Si4732Driver) PowerUp(function byte) (Status, error) {
	return s.commandOut(powerUpArgs{function: function}.encode())
}

// PowerDown turns off the device.
func (s *Si4732Driver) PowerDown() (Status, error) {
	s.patched = false
	return s.commandOut(command{CMD_POWER_DOWN})
}

// SetRadio binds rc to the driver and applies all of it to the chip.
//
// FM and AM always power cycle the chip with their own power up
// function. LSB and USB share the patched AM function: coming from FM,
// AM or a cold chip the patch is loaded, switching between the
// sidebands only retunes.
func (s *Si4732Driver) SetRadio(rc *RadioConfig) error {
	if rc == nil {
		return ErrNoRadioConfig
	}
	s.rx = rc
	pastSSB := s.mode.IsSSB() && s.patched

	if rc.Mode > USB {
		s.log("radio mode %d unknown, defaulting to %s\n", rc.Mode, FM)
		rc.Mode = FM
	}
	s.mode = rc.Mode
	s.setLabel(LabelMode, s.mode.String())

	if s.debugMode {
		s.debugLog("Set radio %s %d\n", s.mode, rc.Frequency)
	}

	switch s.mode {
	case FM:
		if err := s.powerCycle(funcFM); err != nil {
			return err
		}
		if err := s.setSeekBand(PROP_FM_SEEK_BAND_TOP, PROP_FM_SEEK_BAND_BOTTOM, PROP_FM_SEEK_FREQ_SPACING); err != nil {
			return err
		}
		// 50us
		if _, err := s.SetProperty(PROP_FM_DEEMPHASIS, 1); err != nil {
			return err
		}
		if err := s.SetStereo(rc.Stereo); err != nil {
			return err
		}
		if _, err := s.SetFreqAntCap(rc.Frequency, rc.FmAmAntCap); err != nil {
			return err
		}
		if _, err := s.SetFilter(rc.FmAmFilter); err != nil {
			return err
		}

	case AM:
		if err := s.powerCycle(funcAM); err != nil {
			return err
		}
		if err := s.setSeekBand(PROP_AM_SEEK_BAND_TOP, PROP_AM_SEEK_BAND_BOTTOM, PROP_AM_SEEK_FREQ_SPACING); err != nil {
			return err
		}
		s.setLabel(LabelStereo, "")
		if _, err := s.SetFreqAntCap(rc.Frequency, rc.FmAmAntCap); err != nil {
			return err
		}
		if _, err := s.SetFilter(rc.FmAmFilter); err != nil {
			return err
		}

	default:
		if !pastSSB {
			s.patched = false
			if _, err := s.PowerDown(); err != nil {
				return err
			}
			if err := s.loadConfiguredPatch(); err != nil {
				return err
			}
			s.patched = true
		}
		s.setLabel(LabelStereo, "")
		if _, err := s.SetFreqAntCap(rc.Frequency, rc.SsbAntCap); err != nil {
			return err
		}
		if _, err := s.SetBfoFreq(int(rc.BfoOffset)); err != nil {
			return err
		}
		if _, err := s.SetFilter(rc.SsbFilter); err != nil {
			return err
		}
	}

	if _, err := s.SetAgcGain(rc.AgcOn, rc.AgcGain); err != nil {
		return err
	}
	if _, err := s.SetVolume(s.volume); err != nil {
		return err
	}
	if _, err := s.SetMute(s.mute); err != nil {
		return err
	}

	s.seeking = false
	return nil
}

func (s *Si4732Driver) powerCycle(function byte) error {
	if _, err := s.PowerDown(); err != nil {
		return err
	}
	_, err := s.PowerUp(function)
	return err
}

func (s *Si4732Driver) setSeekBand(top, bottom, spacing uint16) error {
	if _, err := s.SetProperty(top, s.rx.MaxFrequency); err != nil {
		return err
	}
	if _, err := s.SetProperty(bottom, s.rx.MinFrequency); err != nil {
		return err
	}
	_, err := s.SetProperty(spacing, uint16(s.rx.StepFrequency))
	return err
}

func (s *Si4732Driver) loadConfiguredPatch() error {
	switch {
	case s.patch != nil:
		return s.LoadPatch(*s.patch)
	case s.patchStore != nil:
		return s.LoadPatchFromStore(s.patchStore, s.patchAddress)
	default:
		return ErrNoPatch
	}
}

// Si4732Config holds the additional configuration needed for Si4732Driver.
type Si4732Config struct {
	// Radio is applied with SetRadio when the device starts. It stays
	// owned by the caller.
	Radio *RadioConfig

	ResetPin string
	Volume   uint8
	Mute     bool

	// Patch or PatchStore provide the SSB firmware patch. Patch wins
	// when both are set.
	Patch        *PatchImage
	PatchStore   PatchStore
	PatchAddress uint16

	Clock     Clock
	DebugMode bool
	DebugLog  func(format string, v ...interface{})
	Log       func(format string, v ...interface{})
}

// Validate ensures that our Si4732Driver configuration is valid.
//noinspection GoUnnecessarilyExportedIdentifiers
func (c *Si4732Config) Validate() error {
	if c.Log == nil {
		panic("logging function cannot be nil. Use something like log.Printf or an empty function instead")
	}
	if c.DebugMode && c.DebugLog == nil {
		panic("cannot use debugging mode without configuring a DebugLog function, e.g. log.Printf")
	}

	if c.ResetPin == "" {
		c.ResetPin = DEFAULT_RESET_PIN
	}

	if c.Clock == nil {
		c.Clock = NewSystemClock()
	}

	if c.Volume > MAX_VOLUME {
		c.Log("Volume %d > %d. Adjusting to maximum of %d.\n", c.Volume, MAX_VOLUME, MAX_VOLUME)
		c.Volume = MAX_VOLUME
	}

	if c.Radio == nil {
		return nil
	}

	if c.Radio.Mode > USB {
		c.Log("Radio mode %d unknown, defaulting to %s\n", c.Radio.Mode, FM)
		c.Radio.Mode = FM
	}

	if c.Radio.MinFrequency > c.Radio.MaxFrequency {
		return fmt.Errorf("seek band bottom %d is above the top %d", c.Radio.MinFrequency, c.Radio.MaxFrequency)
	}

	if c.Radio.Mode.IsSSB() && c.Patch == nil && c.PatchStore == nil {
		return ErrNoPatch
	}

	return nil
}

// NewSi4732Driver creates a new GoBot driver for our receiver.
func NewSi4732Driver(connector i2c.Connector, cfg Si4732Config, options ...func(i2c.Config)) (*Si4732Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res := &Si4732Driver{
		name:         gobot.DefaultName("Si4732Driver"),
		i2cConnector: connector,
		Config:       i2c.NewConfig(),
		i2cAddr:      Address,

		resetPin:     cfg.ResetPin,
		clock:        cfg.Clock,
		startRadio:   cfg.Radio,
		volume:       cfg.Volume,
		mute:         cfg.Mute,
		patch:        cfg.Patch,
		patchStore:   cfg.PatchStore,
		patchAddress: cfg.PatchAddress,
		debugMode:    cfg.DebugMode,
		log:          cfg.Log,
		debugLog:     cfg.DebugLog,
	}

	for _, option := range options {
		option(res)
	}

	return res, nil
}
