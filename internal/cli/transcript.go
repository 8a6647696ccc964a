package cli

import "strings"

func isBlankTranscript(transcript string) bool {
	return strings.TrimSpace(transcript) == ""
}

func noSpeechHint() string {
	return "Provider returned an empty transcript. Check that the file contains speech and that --language matches it."
}
