package radio

import (
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	patchFrameSize   = 8
	patchPayloadSize = 7
	patchPageSize    = 32

	// PatchHeaderSize is the size of the header in front of a stored patch.
	// Its last two bytes hold the body size, low byte first.
	PatchHeaderSize = 32

	patchFrameDelay = 300 * time.Microsecond
	patchDoneDelay  = 10 * time.Millisecond

	// Unprogrammed EEPROM cells read back as 0xFF.
	erasedByte = 0xFF
)

var (
	// ErrPatchRejected is returned when the chip flags an error for a
	// patch frame. The transfer stops at that frame and the chip has
	// to be powered down before trying again.
	ErrPatchRejected = errors.New("chip rejected patch frame")

	// ErrPatchMalformed is returned for a patch image that can not be
	// cut into frames.
	ErrPatchMalformed = errors.New("malformed patch image")
)

// PatchImage is a patch kept in memory. Data is sent 7 bytes per frame.
// Each PATCH_ARGS frame takes its repeat count from Args; while that
// count, decremented once per frame, stays above zero the next frames
// are PATCH_DATA.
type PatchImage struct {
	Args []byte
	Data []byte
}

// Frames cuts the image into the 8 byte frames sent to the chip.
func (p PatchImage) Frames() ([][]byte, error) {
	if len(p.Data)%patchPayloadSize != 0 {
		return nil, fmt.Errorf("%w: data size %d is not a multiple of %d", ErrPatchMalformed, len(p.Data), patchPayloadSize)
	}

	frames := make([][]byte, 0, len(p.Data)/patchPayloadSize)
	args := p.Args
	count := byte(0)
	for addr := 0; addr < len(p.Data); addr += patchPayloadSize {
		frame := make([]byte, patchFrameSize)
		if count != 0 {
			count--
		}
		if count != 0 {
			frame[0] = CMD_PATCH_DATA
		} else {
			if len(args) == 0 {
				return nil, fmt.Errorf("%w: out of args at data offset %d", ErrPatchMalformed, addr)
			}
			frame[0] = CMD_PATCH_ARGS
			count = args[0]
			args = args[1:]
		}
		copy(frame[1:], p.Data[addr:addr+patchPayloadSize])
		frames = append(frames, frame)
	}
	return frames, nil
}

// StoreImage lays the patch out the way LoadPatchFromStore reads it:
// the header followed by the frames.
func (p PatchImage) StoreImage() ([]byte, error) {
	frames, err := p.Frames()
	if err != nil {
		return nil, err
	}

	size := len(frames) * patchFrameSize
	if size > 0xFFFF {
		return nil, fmt.Errorf("%w: %d bytes do not fit the header", ErrPatchMalformed, size)
	}

	image := make([]byte, PatchHeaderSize, PatchHeaderSize+size)
	image[PatchHeaderSize-2] = uint8(size & 0xFF)
	image[PatchHeaderSize-1] = uint8(size >> 8)
	for _, frame := range frames {
		image = append(image, frame...)
	}
	return image, nil
}

// PatchSize returns the body size recorded in a patch header.
func PatchSize(header []byte) (int, error) {
	if len(header) < PatchHeaderSize {
		return 0, fmt.Errorf("%w: header is %d bytes", ErrPatchMalformed, len(header))
	}
	return int(header[PatchHeaderSize-1])<<8 | int(header[PatchHeaderSize-2]), nil
}

// ParsePatchImage checks a store image and returns its frames. Bytes
// past the announced size are ignored.
func ParsePatchImage(raw []byte) ([][]byte, error) {
	size, err := PatchSize(raw)
	if err != nil {
		return nil, err
	}
	body := raw[PatchHeaderSize:]
	if len(body) < size {
		return nil, fmt.Errorf("%w: body is %d bytes, header announces %d", ErrPatchMalformed, len(body), size)
	}
	if size%patchFrameSize != 0 {
		return nil, fmt.Errorf("%w: size %d is not a multiple of %d", ErrPatchMalformed, size, patchFrameSize)
	}

	frames := make([][]byte, 0, size/patchFrameSize)
	for addr := 0; addr < size; addr += patchFrameSize {
		frame := body[addr : addr+patchFrameSize]
		if frame[0] != CMD_PATCH_ARGS && frame[0] != CMD_PATCH_DATA {
			return nil, fmt.Errorf("%w: frame at %d starts with 0x%02x", ErrPatchMalformed, addr, frame[0])
		}
		frames = append(frames, frame)
	}
	return frames, nil
}

// PatchStore is a byte store holding a patch, usually an I2C EEPROM.
// Reads continue from where the last one ended.
type PatchStore interface {
	SetReadAddress(addr uint16) error
	Read(p []byte) (int, error)
}

// MemoryStore is a PatchStore over a byte slice. Reads past the end
// return erased bytes.
type MemoryStore struct {
	image []byte
	pos   int
}

// NewMemoryStore returns a store reading from image.
func NewMemoryStore(image []byte) *MemoryStore {
	return &MemoryStore{image: image}
}

// SetReadAddress moves the read position.
func (m *MemoryStore) SetReadAddress(addr uint16) error {
	m.pos = int(addr)
	return nil
}

// Read fills p from the current position.
func (m *MemoryStore) Read(p []byte) (int, error) {
	n := 0
	if m.pos < len(m.image) {
		n = copy(p, m.image[m.pos:])
	}
	for i := n; i < len(p); i++ {
		p[i] = erasedByte
	}
	m.pos += len(p)
	return len(p), nil
}

// LoadPatch powers the chip up in patch mode and sends img.
func (s *Si4732Driver) LoadPatch(img PatchImage) error {
	frames, err := img.Frames()
	if err != nil {
		return err
	}

	if s.debugMode {
		s.debugLog("Loading patch, %d frames\n", len(frames))
	}

	if _, err = s.powerUpPatch(); err != nil {
		return err
	}

	for n, frame := range frames {
		if err = s.sendPatchFrame(n, frame); err != nil {
			return err
		}
	}

	s.clock.Sleep(patchDoneDelay)
	return nil
}

// LoadPatchFromStore reads the patch header at start, powers the chip
// up in patch mode and streams the body from the store page by page.
func (s *Si4732Driver) LoadPatchFromStore(store PatchStore, start uint16) error {
	if err := store.SetReadAddress(start); err != nil {
		return fmt.Errorf("patch store address: %w", err)
	}

	page := make([]byte, patchPageSize)
	if _, err := io.ReadFull(store, page[:PatchHeaderSize]); err != nil {
		return fmt.Errorf("patch header: %w", err)
	}
	size, err := PatchSize(page)
	if err != nil {
		return err
	}

	if s.debugMode {
		s.debugLog("Loading patch from 0x%04x, %d bytes\n", start, size)
	}

	if _, err = s.powerUpPatch(); err != nil {
		return err
	}

	n := 0
	for addr := 0; addr < size; addr += patchPageSize {
		if _, err = io.ReadFull(store, page); err != nil {
			return fmt.Errorf("patch page at %d: %w", addr, err)
		}

		for step := addr; step < addr+patchPageSize && step < size; step += patchFrameSize {
			offset := step - addr
			if err = s.sendPatchFrame(n, page[offset:offset+patchFrameSize]); err != nil {
				return err
			}
			n++
		}
	}

	s.clock.Sleep(patchDoneDelay)
	return nil
}

func (s *Si4732Driver) powerUpPatch() (Status, error) {
	return s.commandOut(powerUpArgs{function: funcAM, patch: true}.encode())
}

// Frames are written raw, they do not go through commandOut.
func (s *Si4732Driver) sendPatchFrame(n int, frame []byte) error {
	if _, err := s.conn.Write(frame); err != nil {
		return fmt.Errorf("patch frame %d: %w", n, err)
	}
	s.clock.Sleep(patchFrameDelay)

	status, err := s.conn.ReadByte()
	if err != nil {
		return fmt.Errorf("patch frame %d status: %w", n, err)
	}
	if Status(status).Err() {
		s.log("patch frame %d rejected, status 0x%02x\n", n, status)
		return fmt.Errorf("patch frame %d status 0x%02x: %w", n, status, ErrPatchRejected)
	}
	return nil
}
