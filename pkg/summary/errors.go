package summary

// NoReportsError indicates the summarizer found an empty blackboard: every
// expert errored before publishing, so there is nothing to compose.
type NoReportsError struct{}

func (e *NoReportsError) Error() string {
	return "no published expert reports available to summarize"
}
