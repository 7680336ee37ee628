package main

import (
	"strings"

	"si4732radio/feed"
	"si4732radio/radio"
)

type receiver interface {
	Seeking() bool
	PollSeek(cancel bool) (bool, error)
	Labels() map[string]string
	Mode() radio.Mode
	Radio() *radio.RadioConfig
}

type screen interface {
	Size() (columns, rows int)
	Clear()
	LocateXY(x, y int)
	Print(text string)
	Update() error
}

type publisher interface {
	Publish(s feed.Snapshot) bool
}

// station moves the receiver status to the display and the feed. It is
// driven from a single ticker, one tick advances a running seek and
// refreshes one display cell.
type station struct {
	radio  receiver
	screen screen
	feed   publisher

	shown []string
}

func (s *station) tick() error {
	if s.radio.Seeking() {
		if _, err := s.radio.PollSeek(false); err != nil {
			return err
		}
	}

	labels := s.radio.Labels()

	if s.screen != nil {
		columns, rows := s.screen.Size()
		if lines := layout(labels, columns, rows); !equalLines(lines, s.shown) {
			s.screen.Clear()
			for y, line := range lines {
				s.screen.LocateXY(0, y)
				s.screen.Print(line)
			}
			s.shown = lines
		}
		if err := s.screen.Update(); err != nil {
			return err
		}
	}

	if s.feed != nil {
		snap := feed.Snapshot{
			Mode:    s.radio.Mode().String(),
			Seeking: s.radio.Seeking(),
			Labels:  labels,
		}
		if rx := s.radio.Radio(); rx != nil {
			snap.Frequency = rx.Frequency
		}
		s.feed.Publish(snap)
	}
	return nil
}

// layout puts frequency, stereo and mode on the first row and filter,
// AGC and volume on the second.
func layout(labels map[string]string, columns, rows int) []string {
	lines := []string{
		joinEnds(labels["frequency"]+" "+labels["stereo"], labels["mode"], columns),
		joinEnds(labels["filter"]+" "+labels["agc"], labels["volume"], columns),
	}
	if rows < len(lines) {
		lines = lines[:rows]
	}
	return lines
}

// joinEnds aligns left and right to the edges of a width wide row.
func joinEnds(left, right string, width int) string {
	left = strings.TrimSpace(left)
	gap := width - len(left) - len(right)
	if gap < 1 {
		gap = 1
	}
	line := left + strings.Repeat(" ", gap) + right
	if len(line) > width {
		line = line[:width]
	}
	return line
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
