package models

// CMI data model elements (SCORM 1.2) read or written by the runtime.
const (
	CMILessonStatus = "cmi.core.lesson_status"
	CMISuspendData  = "cmi.suspend_data"
	CMIScoreRaw     = "cmi.core.score.raw"
	CMIScoreMin     = "cmi.core.score.min"
	CMIScoreMax     = "cmi.core.score.max"
	CMIStudentName  = "cmi.core.student_name"
	CMIStudentID    = "cmi.core.student_id"
)

type LessonStatus string

const (
	LessonPassed       LessonStatus = "passed"
	LessonCompleted    LessonStatus = "completed"
	LessonFailed       LessonStatus = "failed"
	LessonIncomplete   LessonStatus = "incomplete"
	LessonBrowsed      LessonStatus = "browsed"
	LessonNotAttempted LessonStatus = "not attempted"
)

// IsTerminal reports whether the lesson was already finished in a prior session.
func (s LessonStatus) IsTerminal() bool {
	switch s {
	case LessonPassed, LessonCompleted, LessonFailed:
		return true
	}
	return false
}

type ConnectionStatus string

const (
	ConnectionDisconnected ConnectionStatus = "disconnected"
	ConnectionConnecting   ConnectionStatus = "connecting"
	ConnectionConnected    ConnectionStatus = "connected"
	ConnectionFailed       ConnectionStatus = "failed"
)
