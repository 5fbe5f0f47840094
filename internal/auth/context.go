package auth

import "context"

type ctxKey string

const ctxKeyLearner ctxKey = "learner"

func WithLearner(ctx context.Context, learner string) context.Context {
	return context.WithValue(ctx, ctxKeyLearner, learner)
}

// LearnerFromContext is the session lookup the engines rely on: the learner
// token of an authenticated request, or false.
func LearnerFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(ctxKeyLearner).(string)
	return s, ok && s != ""
}
