package validator

// LaunchRequest opens (or reattaches to) the session of one test page
type LaunchRequest struct {
	Module   string `json:"module" validate:"required,oneof=grammar reading listening vocabulary writing speaking"`
	LaunchID string `json:"launch_id" validate:"omitempty,max=128"`

	// Learner identity seeded into the runtime data model when the LMS has none
	LearnerID   string `json:"learner_id" validate:"omitempty,max=255"`
	LearnerName string `json:"learner_name" validate:"omitempty,max=255"`
}

type StartRequest struct {
	Program string `json:"program" validate:"omitempty,program_key"`
}

type AnswerRequest struct {
	Value string `json:"value" validate:"max=2000"`
}

type UnloadRequest struct {
	Event string `json:"event" validate:"required,unload_event"`
}

type MatchRequest struct {
	Token string `json:"token" validate:"required,max=255"`
}

type ScrambleRequest struct {
	Token int `json:"token" validate:"min=0"`
}

// PageMarkRequest marks a static introduction or completion page
type PageMarkRequest struct {
	LaunchID string `json:"launch_id" validate:"required,max=128"`
	Note     string `json:"note" validate:"required,max=255"`
}
