package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"si4732radio/config"
	"si4732radio/display"
	"si4732radio/eeprom"
	"si4732radio/feed"
	"si4732radio/radio"

	"gobot.io/x/gobot"
	"gobot.io/x/gobot/drivers/i2c"
	"gobot.io/x/gobot/platforms/raspi"
	"gopkg.in/natefinch/lumberjack.v2"
)

const pollInterval = 10 * time.Millisecond

func main() {
	configPath := flag.String("config", "/etc/si4732radio/config.yaml", "Path to config file")
	debug := flag.Bool("debug", false, "Log every frame sent to the receiver")
	programEEPROM := flag.String("program-eeprom", "", "Write a patch store image to the EEPROM and exit")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalln(err)
	}
	if *debug {
		cfg.Logging.Debug = true
	}

	logger := newLogger(cfg.Logging)
	adaptor := raspi.NewAdaptor()

	if *programEEPROM != "" {
		if err = programStore(adaptor, cfg, *programEEPROM, logger); err != nil {
			logger.Fatalln(err)
		}
		return
	}

	rx, err := cfg.ToRadio()
	if err != nil {
		logger.Fatalln(err)
	}

	radioConfig := radio.Si4732Config{
		Radio:     rx,
		ResetPin:  cfg.Bus.ResetPin,
		Volume:    cfg.Radio.Volume,
		Mute:      cfg.Radio.Mute,
		DebugMode: cfg.Logging.Debug,
		Log:       logger.Printf,
		DebugLog:  logger.Printf,
	}

	var devices []gobot.Device

	switch cfg.Patch.Source {
	case config.PatchEEPROM:
		store := eeprom.NewDriver(adaptor, busOptions(cfg.Bus)...)
		// The store has to be up before the radio loads the patch.
		devices = append(devices, store)
		radioConfig.PatchStore = store
		radioConfig.PatchAddress = cfg.Patch.Address
	case config.PatchFile:
		image, err := os.ReadFile(cfg.Patch.File)
		if err != nil {
			logger.Fatalln(err)
		}
		radioConfig.PatchStore = radio.NewMemoryStore(image)
	}

	radioOptions := busOptions(cfg.Bus)
	if cfg.Bus.AlternativeAddress {
		radioOptions = append(radioOptions, i2c.WithAddress(radio.AlternativeAddress))
	}
	rdio, err := radio.NewSi4732Driver(adaptor, radioConfig, radioOptions...)
	if err != nil {
		logger.Fatalln(err)
	}
	devices = append(devices, rdio)

	var lcd *display.LCD1602Driver
	if cfg.Display.Enabled {
		lcd, err = display.NewLCD1602Driver(adaptor,
			append(busOptions(cfg.Bus), display.WithSize(cfg.Display.Columns, cfg.Display.Rows))...)
		if err != nil {
			logger.Fatalln(err)
		}
		devices = append(devices, lcd)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var hub *feed.Hub
	if cfg.Feed.ListenAddr != "" {
		hub = feed.NewHub(logger.Printf)
		go func() {
			if err := hub.Run(ctx, cfg.Feed.ListenAddr); err != nil {
				logger.Printf("[feed] server exited: %v\n", err)
			}
		}()
	}

	st := &station{radio: rdio}
	if lcd != nil {
		st.screen = lcd
	}
	if hub != nil {
		st.feed = hub
	}

	work := func() {
		if cfg.Seek != config.SeekNone {
			if _, err := rdio.SeekStart(cfg.Seek == config.SeekUp); err != nil {
				logger.Println(err)
			}
		}

		// everything touching the receiver runs on this one ticker
		gobot.Every(pollInterval, func() {
			if err := st.tick(); err != nil {
				logger.Println(err)
			}
		})
	}

	robot := gobot.NewRobot("Si4732 receiver",
		[]gobot.Connection{adaptor},
		devices,
		work,
	)

	if err = robot.Start(); err != nil {
		logger.Fatalln(err)
	}
}

func newLogger(cfg config.LoggingConfig) *log.Logger {
	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB, // megabytes
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays, // days
			Compress:   cfg.Compress,
		})
	}
	return log.New(out, "", log.LstdFlags|log.Lshortfile)
}

func busOptions(cfg config.BusConfig) []func(i2c.Config) {
	if cfg.I2CBus < 0 {
		return nil
	}
	return []func(i2c.Config){i2c.WithBus(cfg.I2CBus)}
}

// programStore writes the patch store image in path to the EEPROM at the
// configured address and reads it back.
func programStore(adaptor *raspi.Adaptor, cfg *config.Config, path string, logger *log.Logger) error {
	image, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	frames, err := radio.ParsePatchImage(image)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	image = image[:radio.PatchHeaderSize+8*len(frames)]

	if err = adaptor.Connect(); err != nil {
		return err
	}
	defer adaptor.Finalize()

	store := eeprom.NewDriver(adaptor, busOptions(cfg.Bus)...)
	if err = store.Start(); err != nil {
		return err
	}

	logger.Printf("Writing %d bytes to the EEPROM at 0x%04x\n", len(image), cfg.Patch.Address)
	if err = store.Write(cfg.Patch.Address, image); err != nil {
		return err
	}

	check := make([]byte, len(image))
	if err = store.ReadAt(check, cfg.Patch.Address); err != nil {
		return err
	}
	if !bytes.Equal(check, image) {
		return errors.New("EEPROM content does not match the image")
	}

	logger.Println("EEPROM programmed and verified")
	return nil
}
