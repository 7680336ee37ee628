package radio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// chipSim answers like an Si4732. The response to a frame is chosen
// when the frame is written, so the status read and the response read
// of one command see the same bytes.
type chipSim struct {
	dev *I2CTestDevice

	// responses queues replies per opcode, the last one is repeated.
	responses map[byte][][]byte

	// rejectFrame is the index of the patch frame answered with ERR, -1 for none.
	rejectFrame int
	patchFrames int

	pending []byte
}

func newChipSim() *chipSim {
	sim := &chipSim{
		responses:   map[byte][][]byte{},
		rejectFrame: -1,
	}
	sim.dev = &I2CTestDevice{
		i2cWriteImpl: func(_ *I2CTestDevice, buff []byte) (int, error) {
			sim.pending = sim.respond(buff)
			return len(buff), nil
		},
		i2cReadImpl: func(_ *I2CTestDevice, buff []byte) (int, error) {
			for i := range buff {
				buff[i] = 0
			}
			copy(buff, sim.pending)
			return len(buff), nil
		},
	}
	return sim
}

func (c *chipSim) respond(frame []byte) []byte {
	op := frame[0]
	if len(frame) == patchFrameSize && (op == CMD_PATCH_ARGS || op == CMD_PATCH_DATA) {
		n := c.patchFrames
		c.patchFrames++
		if n == c.rejectFrame {
			return []byte{0xC0}
		}
		return []byte{0x80}
	}

	queue := c.responses[op]
	switch len(queue) {
	case 0:
		return []byte{0x80}
	case 1:
		return queue[0]
	default:
		c.responses[op] = queue[1:]
		return queue[0]
	}
}

func (c *chipSim) queue(op byte, responses ...[]byte) {
	c.responses[op] = append(c.responses[op], responses...)
}

func (c *chipSim) frames() [][]byte {
	return c.dev.frames
}

// commands returns the written frames starting with op, patch frames
// excluded.
func (c *chipSim) commands(op byte) [][]byte {
	var res [][]byte
	for _, frame := range c.dev.frames {
		if frame[0] == op && !isPatchFrame(frame) {
			res = append(res, frame)
		}
	}
	return res
}

func (c *chipSim) patchFramesSent() [][]byte {
	var res [][]byte
	for _, frame := range c.dev.frames {
		if isPatchFrame(frame) {
			res = append(res, frame)
		}
	}
	return res
}

// properties returns the SET_PROPERTY writes as property -> last value.
func (c *chipSim) properties() map[uint16]uint16 {
	res := map[uint16]uint16{}
	for _, frame := range c.commands(CMD_SET_PROPERTY) {
		res[uint16(frame[2])<<8|uint16(frame[3])] = uint16(frame[4])<<8 | uint16(frame[5])
	}
	return res
}

func (c *chipSim) clear() {
	c.dev.frames = nil
	c.patchFrames = 0
}

func isPatchFrame(frame []byte) bool {
	return len(frame) == patchFrameSize && (frame[0] == CMD_PATCH_ARGS || frame[0] == CMD_PATCH_DATA)
}

type fakeClock struct {
	now    time.Duration
	sleeps []time.Duration
}

func (c *fakeClock) Millis() uint32 {
	return uint32(c.now / time.Millisecond)
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now += d
}

func (c *fakeClock) set(ms uint32) {
	c.now = time.Duration(ms) * time.Millisecond
}

func (c *fakeClock) slept(d time.Duration) int {
	n := 0
	for _, s := range c.sleeps {
		if s == d {
			n++
		}
	}
	return n
}

var testPatch = PatchImage{
	Args: []byte{3, 2},
	Data: []byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
		0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17,
		0x21, 0x22, 0x23, 0x24, 0x25, 0x26, 0x27,
		0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0x37,
		0x41, 0x42, 0x43, 0x44, 0x45, 0x46, 0x47,
	},
}

func fmRadio() *RadioConfig {
	return &RadioConfig{
		Mode:          FM,
		Frequency:     8050,
		MinFrequency:  7600,
		MaxFrequency:  9500,
		StepFrequency: 10,
		Stereo:        true,
		AgcOn:         true,
	}
}

func ssbRadio(mode Mode) *RadioConfig {
	return &RadioConfig{
		Mode:          mode,
		Frequency:     10000,
		SsbAntCap:     1,
		MinFrequency:  520,
		MaxFrequency:  30000,
		StepFrequency: 1,
		AgcOn:         true,
		SsbFilter:     1,
	}
}

type testRig struct {
	driver  *Si4732Driver
	adaptor *I2CTestAdaptor
	chip    *chipSim
	clock   *fakeClock
}

// newTestRig starts a driver on a simulated chip with the in memory
// test patch. The frames written while starting are cleared.
func newTestRig(t *testing.T, rc *RadioConfig) *testRig {
	t.Helper()
	return newTestRigWithConfig(t, Si4732Config{Radio: rc, Volume: 40, Patch: &testPatch})
}

func newTestRigWithConfig(t *testing.T, cfg Si4732Config) *testRig {
	t.Helper()

	rig := &testRig{
		adaptor: newI2CTestAdaptor(),
		chip:    newChipSim(),
		clock:   &fakeClock{},
	}
	rig.adaptor.devices[Address] = rig.chip.dev

	cfg.Clock = rig.clock
	cfg.Log = t.Logf

	var err error
	rig.driver, err = NewSi4732Driver(rig.adaptor, cfg)
	require.NoError(t, err)
	require.NoError(t, rig.driver.Start())

	rig.chip.clear()
	rig.clock.sleeps = nil
	return rig
}
