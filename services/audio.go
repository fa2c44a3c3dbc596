package services

import (
	"fmt"
	"sync"
)

// Audio playback states tracked by the controller.
const (
	AudioIdle    = "idle"
	AudioPlaying = "playing"
	AudioPaused  = "paused"
)

// AudioController tracks playback state for the audio control endpoints.
// Synthesis itself happens in the TTS provider; this only arbitrates
// stop/pause/resume so the UI and the player agree on state.
type AudioController struct {
	mu    sync.Mutex
	state string
}

var audioController = &AudioController{state: AudioIdle}

// Audio returns the shared audio controller.
func Audio() *AudioController {
	return audioController
}

// State returns the current playback state.
func (a *AudioController) State() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// MarkPlaying records that playback has started for a generated turn.
func (a *AudioController) MarkPlaying() {
	a.mu.Lock()
	a.state = AudioPlaying
	a.mu.Unlock()
}

// Stop halts playback regardless of current state.
func (a *AudioController) Stop() {
	a.mu.Lock()
	a.state = AudioIdle
	a.mu.Unlock()
}

// Pause suspends playback. Only valid while playing.
func (a *AudioController) Pause() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != AudioPlaying {
		return fmt.Errorf("no audio playing")
	}
	a.state = AudioPaused
	return nil
}

// Resume restarts paused playback.
func (a *AudioController) Resume() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != AudioPaused {
		return fmt.Errorf("no paused audio")
	}
	a.state = AudioPlaying
	return nil
}
