package radio

import (
	"errors"
	"fmt"
	"sync"

	"gobot.io/x/gobot/drivers/i2c"
)

// I2CTestAdaptor is useful to implement tests for
// passing i2c messages back and forth. Every address gets its own
// I2CTestDevice.
type I2CTestAdaptor struct {
	name          string
	mtx           sync.Mutex
	i2cConnectErr bool
	devices       map[int]*I2CTestDevice
	pinWrites     []string
}

func newI2CTestAdaptor() *I2CTestAdaptor {
	return &I2CTestAdaptor{devices: map[int]*I2CTestDevice{}}
}

func (t *I2CTestAdaptor) DigitalWrite(pin string, level byte) (err error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.pinWrites = append(t.pinWrites, fmt.Sprintf("%s:%d", pin, level))
	return nil
}

func (t *I2CTestAdaptor) GetConnection(address int, _ /* bus */ int) (connection i2c.Connection, err error) {
	if t.i2cConnectErr {
		return nil, errors.New("invalid i2c connection")
	}
	dev, ok := t.devices[address]
	if !ok {
		return nil, fmt.Errorf("no device on address 0x%x", address)
	}
	return dev, nil
}

func (t *I2CTestAdaptor) GetDefaultBus() int {
	return 0
}

func (t *I2CTestAdaptor) Name() string          { return t.name }
func (t *I2CTestAdaptor) SetName(n string)      { t.name = n }
func (t *I2CTestAdaptor) Connect() (err error)  { return }
func (t *I2CTestAdaptor) Finalize() (err error) { return }

// I2CTestDevice records every write as one frame.
type I2CTestDevice struct {
	mtx          sync.Mutex
	frames       [][]byte
	lastWritten  []byte
	i2cReadImpl  func(*I2CTestDevice, []byte) (int, error)
	i2cWriteImpl func(*I2CTestDevice, []byte) (int, error)
}

func (t *I2CTestDevice) record(b []byte) {
	frame := make([]byte, len(b))
	copy(frame, b)
	t.frames = append(t.frames, frame)
	t.lastWritten = frame
}

func (t *I2CTestDevice) Read(b []byte) (count int, err error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	return t.i2cReadImpl(t, b)
}

func (t *I2CTestDevice) Write(b []byte) (count int, err error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.record(b)
	return t.i2cWriteImpl(t, b)
}

func (t *I2CTestDevice) Close() error {
	return nil
}

func (t *I2CTestDevice) ReadByte() (val byte, err error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	bytes := []byte{0}
	bytesRead, err := t.i2cReadImpl(t, bytes)
	if err != nil {
		return 0, err
	}
	if bytesRead != 1 {
		return 0, fmt.Errorf("buffer underrun")
	}
	return bytes[0], nil
}

func (t *I2CTestDevice) ReadByteData(reg uint8) (val uint8, err error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.record([]byte{reg})
	bytes := []byte{0}
	bytesRead, err := t.i2cReadImpl(t, bytes)
	if err != nil {
		return 0, err
	}
	if bytesRead != 1 {
		return 0, fmt.Errorf("buffer underrun")
	}
	return bytes[0], nil
}

func (t *I2CTestDevice) ReadWordData(reg uint8) (val uint16, err error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	t.record([]byte{reg})
	bytes := []byte{0, 0}
	bytesRead, err := t.i2cReadImpl(t, bytes)
	if err != nil {
		return 0, err
	}
	if bytesRead != 2 {
		return 0, fmt.Errorf("buffer underrun")
	}
	l, h := bytes[0], bytes[1]
	return (uint16(h) << 8) | uint16(l), err
}

func (t *I2CTestDevice) WriteByte(val byte) (err error) {
	return t.WriteBlockData(val, nil)
}

func (t *I2CTestDevice) WriteByteData(reg uint8, val uint8) (err error) {
	return t.WriteBlockData(reg, []byte{val})
}

func (t *I2CTestDevice) WriteWordData(reg uint8, val uint16) (err error) {
	return t.WriteBlockData(reg, []byte{uint8(val & 0xff), uint8((val >> 8) & 0xff)})
}

func (t *I2CTestDevice) WriteBlockData(reg uint8, b []byte) (err error) {
	t.mtx.Lock()
	defer t.mtx.Unlock()
	frame := append([]byte{reg}, b...)
	t.record(frame)
	_, err = t.i2cWriteImpl(t, frame)
	return err
}
