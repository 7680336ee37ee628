package radio

import "fmt"

// Label identifies one of the status strings kept for a display.
type Label int

// Status labels.
const (
	LabelMode Label = iota
	LabelFrequency
	LabelStereo
	LabelFilter
	LabelAGC
	LabelVolume
	labelCount
)

// labelWidth is the longest label text, the rest is cut off.
const labelWidth = 11

var labelNames = [labelCount]string{
	LabelMode:      "mode",
	LabelFrequency: "frequency",
	LabelStereo:    "stereo",
	LabelFilter:    "filter",
	LabelAGC:       "agc",
	LabelVolume:    "volume",
}

func (l Label) String() string {
	if l >= 0 && l < labelCount {
		return labelNames[l]
	}
	return fmt.Sprintf("label(%d)", int(l))
}

// Label returns the current text of label l.
func (s *Si4732Driver) Label(l Label) string {
	if l < 0 || l >= labelCount {
		return ""
	}
	return s.labels[l]
}

// Labels returns a copy of all status labels keyed by their name.
func (s *Si4732Driver) Labels() map[string]string {
	res := make(map[string]string, labelCount)
	for l := Label(0); l < labelCount; l++ {
		res[l.String()] = s.labels[l]
	}
	return res
}

func (s *Si4732Driver) setLabel(l Label, text string) {
	if len(text) > labelWidth {
		text = text[:labelWidth]
	}
	s.labels[l] = text
}

func (s *Si4732Driver) setLabelf(l Label, format string, v ...interface{}) {
	s.setLabel(l, fmt.Sprintf(format, v...))
}

// FM shows MHz with one decimal, AM whole kHz and SSB kHz plus the BFO
// in 100 Hz.
func (s *Si4732Driver) setFrequencyLabel(mode Mode, freq uint16, bfo int16) {
	switch mode {
	case FM:
		s.setLabelf(LabelFrequency, "%d.%dM", freq/100, freq%100/10)
	case AM:
		s.setLabelf(LabelFrequency, "%d.0k", freq)
	default:
		s.setLabelf(LabelFrequency, "%d.%dk", freq, bfo/100)
	}
}

func (s *Si4732Driver) setVolumeLabel() {
	if s.mute {
		s.setLabel(LabelVolume, "MUTE")
		return
	}
	s.setLabelf(LabelVolume, "%d", s.volume)
}
