package radio

import "time"

const (
	// seekInterval is the cadence of the tune status checks while seeking.
	seekInterval = 100

	seekCancelDelay = 80 * time.Millisecond
)

// Seeking reports whether a seek is in progress.
func (s *Si4732Driver) Seeking() bool {
	return s.seeking
}

// SeekStart begins a seek up or down the band. It returns right away,
// PollSeek has to be called until the seek is over. Seeking is not
// available on SSB, StatusInvalid is returned and nothing is sent.
func (s *Si4732Driver) SeekStart(up bool) (Status, error) {
	if s.mode.IsSSB() {
		return StatusInvalid, nil
	}

	s.intervalTime = uint16(s.clock.Millis())
	s.seeking = true
	return s.commandOut(seekStartArgs{mode: s.mode, up: up}.encode())
}

// PollSeek advances a running seek and reports whether it is still
// seeking. The tune status is checked at most every 100 ms; calling more
// often is cheap. With cancel set the seek is aborted, which costs an
// 80 ms wait.
func (s *Si4732Driver) PollSeek(cancel bool) (bool, error) {
	if s.mode.IsSSB() || !s.seeking {
		s.seeking = false
		return false, nil
	}

	if cancel {
		// The second read below is the one that counts.
		if _, err := s.GetTuneStatus(true); err != nil {
			return s.seeking, err
		}
		s.clock.Sleep(seekCancelDelay)
	}

	// uint16 arithmetic keeps this right when the counter wraps.
	if uint16(s.clock.Millis())-s.intervalTime < seekInterval && !cancel {
		return s.seeking, nil
	}
	s.intervalTime += seekInterval

	status, err := s.GetTuneStatus(cancel)
	if err != nil {
		return s.seeking, err
	}

	if status.Status.STC() {
		if _, err = s.SetFreqAntCap(status.Frequency, 0); err != nil {
			return s.seeking, err
		}
		s.seeking = false
		if s.debugMode {
			s.debugLog("Seek done on %d RSSI %d SNR %d\n", status.Frequency, status.RSSI, status.SNR)
		}
		return false, nil
	}

	s.setFrequencyLabel(s.mode, status.Frequency, 0)
	return true, nil
}

// GetTuneStatus queries the result of the last tune or seek. With
// cancel set a running seek is stopped.
func (s *Si4732Driver) GetTuneStatus(cancel bool) (TuneStatus, error) {
	_, values, err := s.commandIn(tuneStatusArgs{mode: s.mode, cancel: cancel}.encode(), tuneStatusSize)
	if err != nil {
		return TuneStatus{}, err
	}
	return decodeTuneStatus(values), nil
}
