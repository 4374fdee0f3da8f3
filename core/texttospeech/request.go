package texttospeech

// SpeakRequest asks the synthesis service to speak Text. The service's reply
// body carries nothing the client needs.
type SpeakRequest struct {
	Text string `json:"text"`
}
