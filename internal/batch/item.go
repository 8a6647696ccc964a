package batch

import "math"

// Item is one uploaded audio file and its transcription state. Values handed
// out by the Manager are snapshots; mutate through the Manager only.
type Item struct {
	ID          string
	Source      Source
	DisplayName string
	SizeMB      float64

	Transcript    string
	HasTranscript bool
	LastError     string
	Transcribing  bool

	attempt uint64
}

// Size is the payload size in bytes.
func (i Item) Size() int64 {
	if i.Source == nil {
		return 0
	}
	return i.Source.Size()
}

// Failed reports whether the most recent attempt ended in an error.
func (i Item) Failed() bool {
	return i.LastError != ""
}

// Patch is a partial update. Nil fields are left untouched. Setting a
// transcript clears LastError and setting an error clears the transcript;
// when both are set the error is applied last.
type Patch struct {
	Transcript   *string
	Error        *string
	Transcribing *bool
}

func TranscriptPatch(text string) Patch {
	return Patch{Transcript: &text}
}

func ErrorPatch(message string) Patch {
	return Patch{Error: &message}
}

func (i *Item) apply(p Patch) {
	if p.Transcript != nil {
		i.Transcript = *p.Transcript
		i.HasTranscript = true
		i.LastError = ""
	}
	if p.Error != nil {
		i.LastError = *p.Error
		i.Transcript = ""
		i.HasTranscript = false
	}
	if p.Transcribing != nil {
		i.Transcribing = *p.Transcribing
	}
}

func sizeInMegabytes(size int64) float64 {
	mb := float64(size) / 1024 / 1024
	return math.Round(mb*100) / 100
}
