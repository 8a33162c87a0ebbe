package observ

import "context"

type timerKey struct{}

// WithTimer attaches t to ctx.
func WithTimer(ctx context.Context, t *Timer) context.Context {
	return context.WithValue(ctx, timerKey{}, t)
}

// TimerFrom returns the timer carried by ctx. The result may be nil; a nil
// *Timer ignores every call.
func TimerFrom(ctx context.Context) *Timer {
	if ctx == nil {
		return nil
	}
	t, _ := ctx.Value(timerKey{}).(*Timer)
	return t
}
