package radio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	seekProgress = []byte{0x80, 0x00, 0x21, 0x34, 20, 5, 0, 0}  // 8500, not done
	seekDone     = []byte{0x81, 0x00, 0x23, 0x96, 40, 20, 0, 0} // 9110, STC
)

func TestSeekRejectedOnSSB(t *testing.T) {
	rig := newTestRig(t, ssbRadio(LSB))

	status, err := rig.driver.SeekStart(true)
	require.NoError(t, err)
	assert.Equal(t, StatusInvalid, status)
	assert.False(t, rig.driver.Seeking())

	seeking, err := rig.driver.PollSeek(false)
	require.NoError(t, err)
	assert.False(t, seeking)
	assert.Empty(t, rig.chip.frames())
}

func TestSeekStartFrames(t *testing.T) {
	rig := newTestRig(t, fmRadio())

	_, err := rig.driver.SeekStart(true)
	require.NoError(t, err)
	assert.Equal(t, []byte{CMD_FM_SEEK_START, 0x0C}, rig.chip.frames()[0])
	assert.True(t, rig.driver.Seeking())

	rc := fmRadio()
	rc.Mode, rc.Frequency, rc.MinFrequency, rc.MaxFrequency = AM, 954, 520, 1710
	require.NoError(t, rig.driver.SetRadio(rc))
	assert.False(t, rig.driver.Seeking())
	rig.chip.clear()

	_, err = rig.driver.SeekStart(false)
	require.NoError(t, err)
	assert.Equal(t, []byte{CMD_AM_SEEK_START, 0x04}, rig.chip.frames()[0])
}

func TestPollSeekProgressAndCompletion(t *testing.T) {
	rc := fmRadio()
	rig := newTestRig(t, rc)
	rig.chip.queue(CMD_FM_TUNE_STATUS, seekProgress, seekDone)

	rig.clock.set(1000)
	_, err := rig.driver.SeekStart(true)
	require.NoError(t, err)

	rig.clock.set(1050)
	seeking, err := rig.driver.PollSeek(false)
	require.NoError(t, err)
	assert.True(t, seeking)
	assert.Empty(t, rig.chip.commands(CMD_FM_TUNE_STATUS))

	rig.clock.set(1100)
	seeking, err = rig.driver.PollSeek(false)
	require.NoError(t, err)
	assert.True(t, seeking)
	assert.Len(t, rig.chip.commands(CMD_FM_TUNE_STATUS), 1)
	assert.Equal(t, "85.0M", rig.driver.Label(LabelFrequency))
	assert.Equal(t, uint16(8050), rc.Frequency)

	rig.clock.set(1150)
	seeking, err = rig.driver.PollSeek(false)
	require.NoError(t, err)
	assert.True(t, seeking)
	assert.Len(t, rig.chip.commands(CMD_FM_TUNE_STATUS), 1)

	rig.clock.set(1210)
	seeking, err = rig.driver.PollSeek(false)
	require.NoError(t, err)
	assert.False(t, seeking)
	assert.False(t, rig.driver.Seeking())

	tunes := rig.chip.commands(CMD_FM_TUNE_FREQ)
	require.Len(t, tunes, 1)
	assert.Equal(t, []byte{CMD_FM_TUNE_FREQ, 0, 0x23, 0x96, 0}, tunes[0])
	assert.Equal(t, uint16(9110), rc.Frequency)
	assert.Equal(t, uint16(0), rc.FmAmAntCap)
	assert.Equal(t, "91.1M", rig.driver.Label(LabelFrequency))
}

func TestPollSeekCounterWraparound(t *testing.T) {
	rig := newTestRig(t, fmRadio())
	rig.chip.queue(CMD_FM_TUNE_STATUS, seekProgress)

	rig.clock.set(65500)
	_, err := rig.driver.SeekStart(true)
	require.NoError(t, err)

	rig.clock.set(65536 + 50)
	seeking, err := rig.driver.PollSeek(false)
	require.NoError(t, err)
	assert.True(t, seeking)
	assert.Empty(t, rig.chip.commands(CMD_FM_TUNE_STATUS))

	rig.clock.set(65536 + 120)
	seeking, err = rig.driver.PollSeek(false)
	require.NoError(t, err)
	assert.True(t, seeking)
	assert.Len(t, rig.chip.commands(CMD_FM_TUNE_STATUS), 1)
	assert.Equal(t, uint16(64), rig.driver.intervalTime)
}

func TestPollSeekCancel(t *testing.T) {
	rc := fmRadio()
	rig := newTestRig(t, rc)
	rig.chip.queue(CMD_FM_TUNE_STATUS, []byte{0x81, 0x00, 0x23, 0x28, 10, 2, 0, 0})

	rig.clock.set(500)
	_, err := rig.driver.SeekStart(false)
	require.NoError(t, err)

	seeking, err := rig.driver.PollSeek(true)
	require.NoError(t, err)
	assert.False(t, seeking)

	status := rig.chip.commands(CMD_FM_TUNE_STATUS)
	assert.Equal(t, [][]byte{{CMD_FM_TUNE_STATUS, 0x02}, {CMD_FM_TUNE_STATUS, 0x02}}, status)
	assert.Equal(t, 1, rig.clock.slept(seekCancelDelay))
	assert.Equal(t, uint16(9000), rc.Frequency)
}

func TestPollSeekIdle(t *testing.T) {
	rig := newTestRig(t, fmRadio())

	seeking, err := rig.driver.PollSeek(false)
	require.NoError(t, err)
	assert.False(t, seeking)

	seeking, err = rig.driver.PollSeek(true)
	require.NoError(t, err)
	assert.False(t, seeking)
	assert.Empty(t, rig.chip.frames())
}
