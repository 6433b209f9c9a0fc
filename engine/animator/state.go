package animator

// Resting is the clip name that selects the resting pose.
const Resting = "Resting"

// Mode is the playback state tag.
type Mode int

const (
	// ModeResting holds the avatar in its initial pose.
	ModeResting Mode = iota
	// ModePlaying loops a clip.
	ModePlaying
)

// State is the playback state: Resting, or Playing a named clip.
type State struct {
	Mode Mode
	Clip string
}

// Identifier returns the value carried by animationChanged events: Resting or the clip name.
func (s State) Identifier() string {
	if s.Mode == ModeResting {
		return Resting
	}
	return s.Clip
}
