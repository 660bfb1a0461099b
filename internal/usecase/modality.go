package usecase

import "FinBrief/internal/domain/models"

// NeedsTranscription reports whether the request input must go through
// speech-to-text before intent extraction.
func NeedsTranscription(m models.Modality) bool {
	return m == models.ModalityVoice
}

// NeedsSynthesis reports whether the brief must be rendered as audio.
func NeedsSynthesis(wantsAudio, audioEnabled bool) bool {
	return wantsAudio && audioEnabled
}
