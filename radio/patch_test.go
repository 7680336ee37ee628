package radio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frameOpcodes(frames [][]byte) []byte {
	res := make([]byte, 0, len(frames))
	for _, frame := range frames {
		res = append(res, frame[0])
	}
	return res
}

func TestPatchImageFrames(t *testing.T) {
	frames, err := testPatch.Frames()
	require.NoError(t, err)

	assert.Equal(t, []byte{0x15, 0x16, 0x16, 0x15, 0x16}, frameOpcodes(frames))
	assert.Equal(t, []byte{0x15, 0x31, 0x32, 0x33, 0x34, 0x35, 0x36, 0x37}, frames[3])
	assert.Equal(t, []byte{0x16, 0x41, 0x42, 0x43, 0x44, 0x45, 0x46, 0x47}, frames[4])
	for _, frame := range frames {
		assert.Len(t, frame, patchFrameSize)
	}
}

func TestPatchImageMalformed(t *testing.T) {
	_, err := PatchImage{Args: []byte{1}, Data: make([]byte, 6)}.Frames()
	assert.ErrorIs(t, err, ErrPatchMalformed)

	_, err = PatchImage{Args: []byte{1}, Data: make([]byte, 14)}.Frames()
	assert.ErrorIs(t, err, ErrPatchMalformed)

	_, err = PatchSize(make([]byte, 10))
	assert.ErrorIs(t, err, ErrPatchMalformed)

	rig := newTestRig(t, fmRadio())
	err = rig.driver.LoadPatch(PatchImage{Data: make([]byte, 7)})
	assert.ErrorIs(t, err, ErrPatchMalformed)
	assert.Empty(t, rig.chip.frames())
}

func TestLoadPatch(t *testing.T) {
	rig := newTestRig(t, fmRadio())

	require.NoError(t, rig.driver.LoadPatch(testPatch))

	want, err := testPatch.Frames()
	require.NoError(t, err)
	assert.Equal(t, []byte{CMD_POWER_UP, 0x31, 0x05}, rig.chip.frames()[0])
	assert.Equal(t, want, rig.chip.patchFramesSent())
	assert.Equal(t, 5, rig.clock.slept(patchFrameDelay))
	assert.Equal(t, patchDoneDelay, rig.clock.sleeps[len(rig.clock.sleeps)-1])
}

func TestLoadPatchStopsAtRejectedFrame(t *testing.T) {
	rig := newTestRig(t, fmRadio())
	rig.chip.rejectFrame = 2

	err := rig.driver.LoadPatch(testPatch)
	assert.ErrorIs(t, err, ErrPatchRejected)
	assert.Len(t, rig.chip.patchFramesSent(), 3)
}

func TestStoreImageHeader(t *testing.T) {
	image, err := testPatch.StoreImage()
	require.NoError(t, err)

	require.Len(t, image, PatchHeaderSize+40)
	assert.Equal(t, byte(40), image[30])
	assert.Equal(t, byte(0), image[31])

	size, err := PatchSize(image)
	require.NoError(t, err)
	assert.Equal(t, 40, size)
}

func TestLoadPatchFromStoreMatchesImage(t *testing.T) {
	image, err := testPatch.StoreImage()
	require.NoError(t, err)
	want, err := testPatch.Frames()
	require.NoError(t, err)

	for name, start := range map[string]uint16{"start": 0, "offset": 100} {
		t.Run(name, func(t *testing.T) {
			rig := newTestRig(t, fmRadio())
			content := append(make([]byte, start), image...)

			require.NoError(t, rig.driver.LoadPatchFromStore(NewMemoryStore(content), start))
			assert.Equal(t, []byte{CMD_POWER_UP, 0x31, 0x05}, rig.chip.frames()[0])
			assert.Equal(t, want, rig.chip.patchFramesSent())
		})
	}
}

func TestMemoryStoreReadsErasedPastEnd(t *testing.T) {
	store := NewMemoryStore([]byte{1, 2, 3})
	require.NoError(t, store.SetReadAddress(1))

	buf := make([]byte, 4)
	n, err := store.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{2, 3, 0xFF, 0xFF}, buf)
}

func TestSetRadioRetriesRejectedPatch(t *testing.T) {
	rig := newTestRig(t, fmRadio())
	rig.chip.rejectFrame = 0

	err := rig.driver.SetRadio(ssbRadio(LSB))
	assert.ErrorIs(t, err, ErrPatchRejected)

	rig.chip.rejectFrame = -1
	rig.chip.clear()

	require.NoError(t, rig.driver.SetRadio(ssbRadio(USB)))
	assert.Len(t, rig.chip.patchFramesSent(), 5)
}

func TestStartLoadsPatchFromStore(t *testing.T) {
	image, err := testPatch.StoreImage()
	require.NoError(t, err)

	rig := newTestRigWithConfig(t, Si4732Config{
		Radio:        ssbRadio(USB),
		PatchStore:   NewMemoryStore(append(make([]byte, 0x40), image...)),
		PatchAddress: 0x40,
	})
	assert.Equal(t, USB, rig.driver.Mode())
	assert.Equal(t, "USB", rig.driver.Label(LabelMode))

	// Already patched, switching sidebands does not reload.
	require.NoError(t, rig.driver.SetRadio(ssbRadio(LSB)))
	assert.Empty(t, rig.chip.patchFramesSent())
}

func TestSetRadioRetriesAfterFailedReload(t *testing.T) {
	rig := newTestRig(t, ssbRadio(LSB))
	require.NoError(t, rig.driver.SetRadio(fmRadio()))

	rig.chip.rejectFrame = 1
	assert.ErrorIs(t, rig.driver.SetRadio(ssbRadio(LSB)), ErrPatchRejected)

	rig.chip.rejectFrame = -1
	rig.chip.clear()

	require.NoError(t, rig.driver.SetRadio(ssbRadio(USB)))
	assert.Len(t, rig.chip.patchFramesSent(), 5)
}

func TestParsePatchImage(t *testing.T) {
	image, err := testPatch.StoreImage()
	require.NoError(t, err)

	want, err := testPatch.Frames()
	require.NoError(t, err)

	frames, err := ParsePatchImage(append(image, 0xFF, 0xFF))
	require.NoError(t, err)
	assert.Equal(t, want, frames)

	_, err = ParsePatchImage(image[:len(image)-1])
	assert.ErrorIs(t, err, ErrPatchMalformed)

	bad := append([]byte(nil), image...)
	bad[PatchHeaderSize+8] = 0x42
	_, err = ParsePatchImage(bad)
	assert.ErrorIs(t, err, ErrPatchMalformed)

	_, err = ParsePatchImage(image[:10])
	assert.ErrorIs(t, err, ErrPatchMalformed)
}
