// Package display drives HD44780 character displays behind the PCF8574
// I2C backpack, such as the SunFounder LCD1602 or a 20x4 module.
//
// Text goes to an in memory screen first (Locate, Print, Clear). Update
// sends a single cell per call, so a control loop can refresh the
// display a little at a time without stalling; UpdateAll sends the
// whole screen.
package display

import (
	"fmt"
	"time"

	"gobot.io/x/gobot"
	"gobot.io/x/gobot/drivers/i2c"
)

const (
	// command signals that we want to send a command to the screen
	command = 0x04

	// data signals that we want to send a command to the screen
	data = 0x05

	// address is our default address
	address = 0x27

	backlight = 0x08

	setAddress = 0x80
	clearCmd   = 0x01
)

// Maximum screen size.
const (
	MaxColumns = 20
	MaxRows    = 4
)

// LCD1602Driver controls an HD44780 display through its I2C backpack.
//
//goland:noinspection GoUnnecessarilyExportedIdentifiers
type LCD1602Driver struct {
	name         string
	i2cConnector i2c.Connector
	i2c.Config
	gobot.Commander

	i2cAddr int
	conn    i2c.Connection

	columns int
	rows    int
	screen  *textBuffer

	backlightEnabled bool
	sleep            func(time.Duration)
}

// Name of our device
func (lcd *LCD1602Driver) Name() string {
	return lcd.name
}

// SetName set the name of our device
func (lcd *LCD1602Driver) SetName(name string) {
	lcd.name = name
}

// Start the device work
func (lcd *LCD1602Driver) Start() error {
	bus := lcd.GetBusOrDefault(lcd.i2cConnector.GetDefaultBus())
	addr := lcd.GetAddressOrDefault(lcd.i2cAddr)

	var err error
	lcd.conn, err = lcd.i2cConnector.GetConnection(addr, bus)
	if err != nil {
		return err
	}

	// 4 bit mode, two lines 5x8, display on
	commands := []byte{0x33, 0x32, 0x28, 0x0C, 0x06}
	for _, cmd := range commands {
		if err = lcd.sendCommand(cmd); err != nil {
			return err
		}
		lcd.sleep(5 * time.Millisecond)
	}

	lcd.screen.clear()
	return lcd.ClearScreen()
}

// Halt stops the device in a graceful way
func (lcd *LCD1602Driver) Halt() error {
	if lcd.conn == nil {
		return nil
	}
	lcd.backlightEnabled = false
	return lcd.ClearScreen()
}

// Connection retrieves the i2c connection to the device
func (lcd *LCD1602Driver) Connection() gobot.Connection {
	return lcd.i2cConnector.(gobot.Connection)
}

// Size returns the number of columns and rows.
func (lcd *LCD1602Driver) Size() (columns, rows int) {
	return lcd.columns, lcd.rows
}

// Send a command to the LCD
func (lcd *LCD1602Driver) sendCommand(cmd byte) (err error) {
	return lcd.communicate(command, cmd)
}

// Send data to the LCD
func (lcd *LCD1602Driver) sendData(cmd byte) (err error) {
	return lcd.communicate(data, cmd)
}

// write handles the actual data writing to the LCD i2c connection
func (lcd *LCD1602Driver) write(data byte) error {
	temp := data
	if lcd.backlightEnabled {
		temp |= backlight
	} else {
		temp |= 0x07
	}

	return lcd.conn.WriteByte(temp)
}

// Communicate with the LCD by sending either a command or data
func (lcd *LCD1602Driver) communicate(cmdType byte, cmd byte) error {
	// Send bit7-4 firstly
	buf := cmd & 0xF0
	buf |= cmdType // RS = 0, RW = 0, EN = 1
	if err := lcd.write(buf); err != nil {
		return err
	}

	lcd.sleep(2 * time.Millisecond)

	buf &= 0xFB // Make EN = 0
	if err := lcd.write(buf); err != nil {
		return err
	}

	// Send bit3-0 secondly
	buf = (cmd & 0x0F) << 4
	buf |= cmdType // RS = 0, RW = 0, EN = 1
	if err := lcd.write(buf); err != nil {
		return err
	}

	lcd.sleep(2 * time.Millisecond)
	buf &= 0xFB // Make EN = 0
	return lcd.write(buf)
}

// EnableBacklight turns on the screen backlight
func (lcd *LCD1602Driver) EnableBacklight() error {
	lcd.backlightEnabled = true
	err := lcd.write(backlight)
	lcd.sleep(2 * time.Millisecond)
	return err
}

// DisableBacklight turns off the screen backlight
func (lcd *LCD1602Driver) DisableBacklight() error {
	lcd.backlightEnabled = false
	err := lcd.write(0x07)
	lcd.sleep(2 * time.Millisecond)
	return err
}

// ClearScreen blanks the display. The screen buffer is left unchanged,
// see Clear.
func (lcd *LCD1602Driver) ClearScreen() error {
	// The screen clearing commands needs to be
	// sent with the backlight turned on
	tmp := lcd.backlightEnabled
	lcd.backlightEnabled = true
	if err := lcd.sendCommand(clearCmd); err != nil {
		return err
	}

	lcd.sleep(2 * time.Millisecond)

	if tmp {
		return lcd.EnableBacklight()
	}
	return lcd.DisableBacklight()
}

// Locate moves the cursor to cell p, counted row by row from the top
// left corner. Positions outside the screen are ignored.
func (lcd *LCD1602Driver) Locate(p int) {
	lcd.screen.locate(p)
}

// LocateXY moves the cursor to column x of row y.
func (lcd *LCD1602Driver) LocateXY(x, y int) {
	if x < 0 || x >= lcd.columns {
		return
	}
	lcd.screen.locate(y*lcd.columns + x)
}

// Print writes text at the cursor. A newline starts the next row and
// scrolls the screen up on the last one.
func (lcd *LCD1602Driver) Print(text string) {
	lcd.screen.print(text)
}

// Printf formats according to a format specifier and prints the result.
func (lcd *LCD1602Driver) Printf(format string, v ...interface{}) {
	lcd.screen.print(fmt.Sprintf(format, v...))
}

// Clear blanks the screen buffer and homes the cursor.
func (lcd *LCD1602Driver) Clear() {
	lcd.screen.clear()
}

// Content returns the screen buffer, row after row.
func (lcd *LCD1602Driver) Content() string {
	return lcd.screen.String()
}

// Update sends the next cell of the screen buffer to the display.
func (lcd *LCD1602Driver) Update() error {
	ch, addr, lineStart := lcd.screen.next()
	if lineStart {
		if err := lcd.sendCommand(setAddress | addr); err != nil {
			return err
		}
	}
	return lcd.sendData(ch)
}

// UpdateAll sends the whole screen buffer.
func (lcd *LCD1602Driver) UpdateAll() error {
	for i := 0; i < lcd.screen.size(); i++ {
		if err := lcd.Update(); err != nil {
			return err
		}
	}
	return nil
}

// DisplayMessage replaces the screen content with msg and shows it.
func (lcd *LCD1602Driver) DisplayMessage(msg string) error {
	lcd.screen.clear()
	lcd.screen.print(msg)
	return lcd.UpdateAll()
}

// WithSize selects the screen geometry, 16x2 by default.
func WithSize(columns, rows int) func(i2c.Config) {
	return func(c i2c.Config) {
		if lcd, ok := c.(*LCD1602Driver); ok {
			lcd.columns = columns
			lcd.rows = rows
		}
	}
}

// NewLCD1602Driver creates a new GoBot driver for the display.
func NewLCD1602Driver(connector i2c.Connector, options ...func(i2c.Config)) (*LCD1602Driver, error) {
	lcd := &LCD1602Driver{
		name:             gobot.DefaultName("LCD1602Driver"),
		i2cConnector:     connector,
		Config:           i2c.NewConfig(),
		i2cAddr:          address,
		columns:          16,
		rows:             2,
		backlightEnabled: true,
		sleep:            time.Sleep,
	}

	for _, option := range options {
		option(lcd)
	}

	if lcd.columns < 1 || lcd.columns > MaxColumns || lcd.rows < 1 || lcd.rows > MaxRows {
		return nil, fmt.Errorf("unsupported display size %dx%d", lcd.columns, lcd.rows)
	}
	lcd.screen = newTextBuffer(lcd.columns, lcd.rows)

	return lcd, nil
}
