package progress

// Unanswered is the answer id of a response that has only seen timing updates.
const Unanswered = -2

// Outcome tells an upsert caller whether the row existed before.
type Outcome int

const (
	Created Outcome = iota + 1
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case Updated:
		return "updated"
	default:
		return "unknown"
	}
}

// Response is one learner's stored answer to one quiz question. Times are
// milliseconds and only ever grow.
type Response struct {
	QuestionID   int    `json:"ques_id"`
	Answer       int    `json:"ans_id"`
	FreeResponse string `json:"free_response"`
	TimeElapsed  int64  `json:"time_elapsed"`
	HoverTime    int64  `json:"hover_time"`
}

// ResponseUpdate is a write against a Response. A nil Answer or
// FreeResponse makes it a timing-only update.
type ResponseUpdate struct {
	QuestionID   int
	Answer       *int
	FreeResponse *string
	DTime        int64
	DHover       int64
}

// Full reports whether the update carries both answer fields.
func (u ResponseUpdate) Full() bool { return u.Answer != nil && u.FreeResponse != nil }
