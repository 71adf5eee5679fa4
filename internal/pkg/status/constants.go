package status

// Status represents a call processing status
type Status int

const (
	// Uploading - call created, audio not yet attached
	Uploading Status = iota + 1
	// Processing - pipeline accepted the call
	Processing
	// Transcribing - audio fetched, speech-to-text in progress
	Transcribing
	// Analyzing - transcript ready, LLM analysis in progress
	Analyzing
	// Completed - final successful state
	Completed
	// Failed - terminal failure state
	Failed
)

var (
	statusName = map[Status]string{Uploading: "uploading", Processing: "processing",
		Transcribing: "transcribing", Analyzing: "analyzing", Completed: "completed", Failed: "failed"}
	nameStatus = map[string]Status{"uploading": Uploading, "processing": Processing,
		"transcribing": Transcribing, "analyzing": Analyzing, "completed": Completed, "failed": Failed}
)

func (st Status) String() string {
	return statusName[st]
}

// From returns status obj from string
func From(st string) Status {
	return nameStatus[st]
}

// Terminal indicates no further transitions except an explicit rerun
func (st Status) Terminal() bool {
	return st == Completed || st == Failed
}

// CanTransition tells if a call may move from one status to another.
// Progress is strictly forward: uploading -> processing -> transcribing ->
// analyzing -> completed. Failed is reachable from any non-terminal status.
// A terminal status may only re-enter processing, as a rerun of the whole pipeline.
func CanTransition(from, to Status) bool {
	if from == to {
		return false
	}
	if to == Failed {
		return !from.Terminal()
	}
	if from.Terminal() {
		return to == Processing // rerun
	}
	return to == from+1
}
