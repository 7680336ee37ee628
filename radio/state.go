package radio

import (
	"strings"
	"time"
)

// Mode is the reception mode of the receiver.
type Mode uint8

// Reception modes. LSB and USB together are SSB.
const (
	FM Mode = iota
	AM
	LSB
	USB
)

var modeNames = [...]string{FM: "FM", AM: "AM", LSB: "LSB", USB: "USB"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "UNKNOWN"
}

// IsSSB reports whether m is one of the single side band modes.
func (m Mode) IsSSB() bool {
	return m == LSB || m == USB
}

// ParseMode maps a mode name, case insensitive, to its Mode.
func ParseMode(name string) (Mode, bool) {
	for m, n := range modeNames {
		if strings.EqualFold(n, name) {
			return Mode(m), true
		}
	}
	return FM, false
}

// RadioConfig is the receiver configuration. It is owned by the caller
// and updated in place by the driver, so after any call it holds the
// values the chip was actually given.
type RadioConfig struct {
	Mode Mode

	// Frequency is in 10 kHz units for FM and in kHz for AM and SSB.
	// FM: 6400~10800, AM: 149~23000, LSB/USB: 520~30000.
	Frequency uint16

	// FmAmAntCap is 0 for automatic, FM 1~191, AM 1~6143.
	FmAmAntCap uint16

	// SsbAntCap is 1~6143, 0 is allowed below 2300 kHz.
	SsbAntCap uint16

	// MinFrequency and MaxFrequency bound seeking and stepping.
	MinFrequency uint16
	MaxFrequency uint16

	// StepFrequency is the seek spacing: 10 is 100 kHz on FM, 1, 5, 9 or 10 kHz on AM.
	StepFrequency uint8

	Stereo bool

	// AgcOn enables the AGC. When off AgcGain is used as a fixed attenuation.
	AgcOn   bool
	AgcGain uint8

	// FmAmFilter is FM 0:AUTO 1:110k 2:84k 3:60k 4:40k,
	// AM 0:6.0k 1:4.0k 2:3.0k 3:2.5kG 4:2.0k 5:1.8k 6:1.0k.
	FmAmFilter uint8

	// SsbFilter is 0:4.0k 1:3.0k 2:2.2k 3:1.2k 4:1.0k 5:0.5k.
	SsbFilter uint8

	// BfoOffset is the BFO offset in Hz, -16383~16383.
	BfoOffset int16
}

// Status is the status byte returned by every command.
//
//	7 CTS    clear to send the next command
//	6 ERR    the command failed
//	2 RDSINT RDS interrupt
//	1 RSQINT signal quality interrupt
//	0 STCINT seek/tune complete
type Status byte

const (
	statusCTS Status = 0x80
	statusERR Status = 0x40
	statusRDS Status = 0x04
	statusRSQ Status = 0x02
	statusSTC Status = 0x01

	// StatusInvalid is returned without talking to the chip when the
	// requested operation is not available in the current mode.
	StatusInvalid = statusCTS | statusERR
)

// CTS reports whether the chip is ready for the next command.
func (s Status) CTS() bool { return s&statusCTS != 0 }

// Err reports whether the chip flagged an error.
func (s Status) Err() bool { return s&statusERR != 0 }

// RDS reports a pending RDS interrupt.
func (s Status) RDS() bool { return s&statusRDS != 0 }

// RSQ reports a pending signal quality interrupt.
func (s Status) RSQ() bool { return s&statusRSQ != 0 }

// STC reports that a seek or tune completed.
func (s Status) STC() bool { return s&statusSTC != 0 }

// Clock is the time source for the settle delays and the seek cadence.
type Clock interface {
	// Millis returns a monotonic millisecond counter.
	Millis() uint32
	Sleep(d time.Duration)
}

type systemClock struct {
	start time.Time
}

// NewSystemClock returns a Clock backed by the time package.
func NewSystemClock() Clock {
	return systemClock{start: time.Now()}
}

func (c systemClock) Millis() uint32 {
	return uint32(time.Since(c.start) / time.Millisecond)
}

func (c systemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
