// Package eeprom drives the 24C series I2C serial EEPROMs (24C32 up to
// 24C512) that hold the SSB patch next to the receiver.
//
// The memory is addressed with two bytes, high byte first. Reads are
// sequential from the last address set; writes are split on the 32 byte
// page boundaries and every page is followed by the internal write cycle.
package eeprom

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gobot.io/x/gobot"
	"gobot.io/x/gobot/drivers/i2c"
)

const (
	// Address is the device address with A2..A0 tied low.
	Address = 0x50

	// PageSize is the write page size of the 24C32/64/128/256.
	PageSize = 32

	// Capacity is the largest memory the two byte address can reach.
	Capacity = 0x10000

	writeCycle = 5 * time.Millisecond
)

// ErrOutOfRange is returned for accesses past the end of the memory.
var ErrOutOfRange = errors.New("eeprom access out of range")

// Driver controls one EEPROM.
type Driver struct {
	name         string
	i2cConnector i2c.Connector
	i2c.Config

	i2cAddr int
	conn    i2c.Connection

	pageSize int
	sleep    func(time.Duration)
}

// Name of our device
func (d *Driver) Name() string {
	return d.name
}

// SetName set the name of our device
func (d *Driver) SetName(name string) {
	d.name = name
}

// Start opens the connection to the memory.
func (d *Driver) Start() error {
	bus := d.GetBusOrDefault(d.i2cConnector.GetDefaultBus())
	address := d.GetAddressOrDefault(d.i2cAddr)

	var err error
	d.conn, err = d.i2cConnector.GetConnection(address, bus)
	return err
}

// Halt has nothing to release, the memory keeps its content.
func (d *Driver) Halt() error {
	return nil
}

// Connection retrieves the i2c connection to the device
func (d *Driver) Connection() gobot.Connection {
	return d.i2cConnector.(gobot.Connection)
}

// SetReadAddress moves the internal address pointer, the next Read
// starts there.
func (d *Driver) SetReadAddress(addr uint16) error {
	if _, err := d.conn.Write([]byte{uint8(addr >> 8), uint8(addr & 0xFF)}); err != nil {
		return fmt.Errorf("eeprom address 0x%04x: %w", addr, err)
	}
	return nil
}

// Read continues reading from the internal address pointer.
func (d *Driver) Read(p []byte) (int, error) {
	return d.conn.Read(p)
}

// ReadAt reads len(p) bytes starting at addr.
func (d *Driver) ReadAt(p []byte, addr uint16) error {
	if int(addr)+len(p) > Capacity {
		return ErrOutOfRange
	}
	if err := d.SetReadAddress(addr); err != nil {
		return err
	}
	if _, err := io.ReadFull(d, p); err != nil {
		return fmt.Errorf("eeprom read at 0x%04x: %w", addr, err)
	}
	return nil
}

// Write stores data from addr on. A write never crosses a page, the
// chip would wrap around inside it.
func (d *Driver) Write(addr uint16, data []byte) error {
	if int(addr)+len(data) > Capacity {
		return ErrOutOfRange
	}

	pos := int(addr)
	for offset := 0; offset < len(data); {
		space := d.pageSize - pos%d.pageSize
		chunk := data[offset:]
		if len(chunk) > space {
			chunk = chunk[:space]
		}

		frame := make([]byte, 0, 2+len(chunk))
		frame = append(frame, uint8(pos>>8), uint8(pos&0xFF))
		frame = append(frame, chunk...)
		if _, err := d.conn.Write(frame); err != nil {
			return fmt.Errorf("eeprom write at 0x%04x: %w", pos, err)
		}
		d.sleep(writeCycle)

		offset += len(chunk)
		pos += len(chunk)
	}
	return nil
}

// WithPageSize sets the write page size, 64 for the 24C512 and 128 for
// the 24C1025.
func WithPageSize(size int) func(i2c.Config) {
	return func(c i2c.Config) {
		if d, ok := c.(*Driver); ok && size > 0 {
			d.pageSize = size
		}
	}
}

// NewDriver creates a new GoBot driver for the EEPROM.
func NewDriver(connector i2c.Connector, options ...func(i2c.Config)) *Driver {
	d := &Driver{
		name:         gobot.DefaultName("EEPROM"),
		i2cConnector: connector,
		Config:       i2c.NewConfig(),
		i2cAddr:      Address,
		pageSize:     PageSize,
		sleep:        time.Sleep,
	}

	for _, option := range options {
		option(d)
	}

	return d
}
