package radio

// Hardware tuning ranges.
const (
	fmMinFrequency  = 6400
	fmMaxFrequency  = 10800
	fmMaxAntCap     = 191
	amMinFrequency  = 149
	amMaxFrequency  = 23000
	ssbMinFrequency = 520
	ssbMaxFrequency = 30000
	maxAntCap       = 6143

	// Below this frequency in kHz the SSB antenna cap may be automatic.
	ssbAutoAntCapLimit = 2300

	bfoLimit = 16383
	bfoStep  = 1000
)

// Filter tables. The AM and SSB values the chip expects do not follow
// the order of the bandwidths.
var (
	fmFilterLabels  = []string{"AUTO", "110k", "84k", "60k", "40k"}
	amFilterLabels  = []string{"6.0k", "4.0k", "3.0k", "2.5kG", "2.0k", "1.8k", "1.0k"}
	amFilterValues  = []uint16{0x0000, 0x0001, 0x0002, 0x0006, 0x0003, 0x0005, 0x0004}
	ssbFilterLabels = []string{"4.0k", "3.0k", "2.2k", "1.2k", "1.0k", "0.5k"}
	ssbFilterValues = []uint16{0x9013, 0x9012, 0x9011, 0x9000, 0x9005, 0x9004}

	filterCount = [...]uint8{FM: 5, AM: 7, LSB: 6, USB: 6}
	maxAgcGain  = [...]uint8{FM: 26, AM: 37, LSB: 37, USB: 37}
)

// SetFreq tunes to freq keeping the antenna capacitance of the mode.
func (s *Si4732Driver) SetFreq(freq uint16) (Status, error) {
	if s.rx == nil {
		return 0, ErrNoRadioConfig
	}
	if s.mode.IsSSB() {
		return s.SetFreqAntCap(freq, s.rx.SsbAntCap)
	}
	return s.SetFreqAntCap(freq, s.rx.FmAmAntCap)
}

// SetFreqAntCap tunes to freq with the given antenna capacitance. Both
// are clamped to the hardware range of the mode and written back to the
// radio configuration.
func (s *Si4732Driver) SetFreqAntCap(freq, antCap uint16) (Status, error) {
	if s.rx == nil {
		return 0, ErrNoRadioConfig
	}

	switch s.mode {
	case FM:
		freq = uint16(clamp(int(freq), fmMinFrequency, fmMaxFrequency))
		antCap = uint16(clamp(int(antCap), 0, fmMaxAntCap))
	case AM:
		freq = uint16(clamp(int(freq), amMinFrequency, amMaxFrequency))
		antCap = uint16(clamp(int(antCap), 0, maxAntCap))
	default:
		freq = uint16(clamp(int(freq), ssbMinFrequency, ssbMaxFrequency))
		minCap := 1
		if freq < ssbAutoAntCapLimit {
			minCap = 0
		}
		antCap = uint16(clamp(int(antCap), minCap, maxAntCap))
	}

	if s.debugMode {
		s.debugLog("Tuning %s into %d antcap %d\n", s.mode, freq, antCap)
	}

	status, err := s.commandOut(tuneFreqArgs{mode: s.mode, frequency: freq, antCap: antCap}.encode())
	if err != nil {
		return status, err
	}

	if s.mode.IsSSB() {
		s.rx.SsbAntCap = antCap
	} else {
		s.rx.FmAmAntCap = antCap
	}
	s.rx.Frequency = freq
	s.setFrequencyLabel(s.mode, freq, s.rx.BfoOffset)
	return status, nil
}

// SetBfoFreq sets the BFO offset in Hz, clamped to -16383~16383.
func (s *Si4732Driver) SetBfoFreq(offset int) (Status, error) {
	if s.rx == nil {
		return 0, ErrNoRadioConfig
	}
	s.rx.BfoOffset = int16(clamp(offset, -bfoLimit, bfoLimit))
	s.setFrequencyLabel(s.mode, s.rx.Frequency, s.rx.BfoOffset)
	return s.SetProperty(PROP_SSB_BFO, uint16(s.rx.BfoOffset))
}

// AddFreq steps the tuned frequency by delta. The unit is 10 kHz on FM,
// kHz on AM and Hz on SSB, where whole kHz go to the tuned frequency and
// the remainder to the BFO offset.
func (s *Si4732Driver) AddFreq(delta int) error {
	if s.rx == nil {
		return ErrNoRadioConfig
	}
	rx := s.rx
	minFreq, maxFreq := int(rx.MinFrequency), int(rx.MaxFrequency)

	if !s.mode.IsSSB() {
		rx.Frequency = uint16(clamp(int(rx.Frequency)+delta, minFreq, maxFreq))
		_, err := s.SetFreq(rx.Frequency)
		return err
	}

	freq := int(rx.Frequency)
	bfo := int(rx.BfoOffset)
	for settled := false; !settled; {
		switch {
		case delta >= bfoStep:
			delta -= bfoStep
			freq++
		case delta <= -bfoStep:
			delta += bfoStep
			freq--
		default:
			bfo += delta
			if bfo >= bfoStep {
				bfo -= bfoStep
				freq++
			} else if bfo < 0 {
				bfo += bfoStep
				freq--
			}
			settled = true
		}
	}

	if freq >= maxFreq {
		freq = maxFreq
		bfo = 0
	} else if freq < minFreq {
		freq = minFreq
		bfo = 0
	}
	rx.Frequency = uint16(freq)

	if _, err := s.SetBfoFreq(bfo); err != nil {
		return err
	}
	_, err := s.SetFreq(rx.Frequency)
	return err
}

// SetFilter selects the channel filter of the mode, see RadioConfig for
// the indexes. Indexes past the last filter select the last one.
func (s *Si4732Driver) SetFilter(filter uint8) (Status, error) {
	if s.rx == nil {
		return 0, ErrNoRadioConfig
	}
	if last := filterCount[s.mode] - 1; filter > last {
		filter = last
	}

	switch s.mode {
	case FM:
		s.rx.FmAmFilter = filter
		s.setLabel(LabelFilter, fmFilterLabels[filter])
		return s.SetProperty(PROP_FM_CHANNEL_FILTER, uint16(filter))
	case AM:
		s.rx.FmAmFilter = filter
		s.setLabel(LabelFilter, amFilterLabels[filter])
		return s.SetProperty(PROP_AM_CHANNEL_FILTER, amFilterValues[filter])
	default:
		s.rx.SsbFilter = filter
		s.setLabel(LabelFilter, ssbFilterLabels[filter])
		return s.SetProperty(PROP_SSB_MODE, ssbFilterValues[filter])
	}
}

// FilterCount returns the number of filters of the current mode.
func (s *Si4732Driver) FilterCount() uint8 {
	return filterCount[s.mode]
}

// SetAgcOn turns the AGC on or off keeping the last gain.
func (s *Si4732Driver) SetAgcOn(agcOn bool) (Status, error) {
	if s.rx == nil {
		return 0, ErrNoRadioConfig
	}
	return s.SetAgcGain(agcOn, s.rx.AgcGain)
}

// SetAgcGainValue sets the gain used while the AGC is off.
func (s *Si4732Driver) SetAgcGainValue(gain uint8) (Status, error) {
	if s.rx == nil {
		return 0, ErrNoRadioConfig
	}
	return s.SetAgcGain(s.rx.AgcOn, gain)
}

// SetAgcGain sets the AGC state and the fixed gain, clamped to 26 on FM
// and 37 on AM and SSB. The gain is stored even with the AGC on.
func (s *Si4732Driver) SetAgcGain(agcOn bool, gain uint8) (Status, error) {
	if s.rx == nil {
		return 0, ErrNoRadioConfig
	}
	if limit := maxAgcGain[s.mode]; gain > limit {
		gain = limit
	}

	s.rx.AgcOn = agcOn
	s.rx.AgcGain = gain
	if agcOn {
		s.setLabel(LabelAGC, "AGC")
	} else {
		s.setLabelf(LabelAGC, "%d", gain)
	}

	return s.commandOut(agcOverrideArgs{mode: s.mode, agcOn: agcOn, gain: gain}.encode())
}

// AgcGainCount returns the number of fixed gain steps of the current mode.
func (s *Si4732Driver) AgcGainCount() uint8 {
	return maxAgcGain[s.mode] + 1
}

// SetVolume sets the output volume, 0 to 63.
func (s *Si4732Driver) SetVolume(volume uint8) (Status, error) {
	if volume > MAX_VOLUME {
		volume = MAX_VOLUME
	}
	s.volume = volume
	s.setVolumeLabel()
	return s.SetProperty(PROP_RX_VOLUME, uint16(volume))
}

// SetMute hard mutes both audio outputs.
func (s *Si4732Driver) SetMute(mute bool) (Status, error) {
	s.mute = mute
	s.setVolumeLabel()

	value := uint16(0)
	if mute {
		value = 0x03
	}
	return s.SetProperty(PROP_RX_HARD_MUTE, value)
}

// SetStereo picks automatic stereo blending or forced mono through the
// FM blend thresholds.
func (s *Si4732Driver) SetStereo(stereo bool) error {
	thresholds := [4]uint16{127, 127, 127, 127}
	if stereo {
		// dBuV, dBuV, dB, dB
		thresholds = [4]uint16{49, 30, 27, 14}
	}
	props := [4]uint16{
		PROP_FM_BLEND_RSSI_STEREO_THRESHOLD,
		PROP_FM_BLEND_RSSI_MONO_THRESHOLD,
		PROP_FM_BLEND_SNR_STEREO_THRESHOLD,
		PROP_FM_BLEND_SNR_MONO_THRESHOLD,
	}
	for i, prop := range props {
		if _, err := s.SetProperty(prop, thresholds[i]); err != nil {
			return err
		}
	}

	if s.rx != nil {
		s.rx.Stereo = stereo
	}
	if stereo {
		s.setLabel(LabelStereo, "ST")
	} else {
		s.setLabel(LabelStereo, "MONO")
	}
	return nil
}

// GetRsqStatus reads the signal quality of the current channel.
func (s *Si4732Driver) GetRsqStatus() (RsqStatus, error) {
	_, values, err := s.commandIn(command{rsqStatusOpcode[s.mode], 0}, rsqStatusSize)
	if err != nil {
		return RsqStatus{}, err
	}
	return decodeRsqStatus(values), nil
}

// GetAgcStatus reads the current AGC state.
func (s *Si4732Driver) GetAgcStatus() (AgcStatus, error) {
	_, values, err := s.commandIn(command{agcStatusOpcode[s.mode]}, agcStatusSize)
	if err != nil {
		return AgcStatus{}, err
	}
	return decodeAgcStatus(values), nil
}
