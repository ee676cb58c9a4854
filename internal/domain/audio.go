package domain

// DefaultClipName is used for captures that have no source file name.
const DefaultClipName = "audio.wav"

// AudioClip is one captured question. Filename carries the container extension
// the transcription service uses to detect the format.
type AudioClip struct {
	Data     []byte
	Filename string
}

func (c AudioClip) Name() string {
	if c.Filename == "" {
		return DefaultClipName
	}
	return c.Filename
}
