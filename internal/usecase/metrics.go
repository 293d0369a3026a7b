package usecase

// Recorder receives counters from the sync engine.
type Recorder interface {
	ObserveDispatch(operation, mode string)
	ObserveWebhook(event, outcome string)
	ObserveRateLimit()
}

type noopRecorder struct{}

func (noopRecorder) ObserveDispatch(string, string) {}
func (noopRecorder) ObserveWebhook(string, string)  {}
func (noopRecorder) ObserveRateLimit()              {}

// NoopRecorder discards every observation.
var NoopRecorder Recorder = noopRecorder{}

func recorderOrNoop(r Recorder) Recorder {
	if r == nil {
		return NoopRecorder
	}
	return r
}
