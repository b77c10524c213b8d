package errors

import (
	"context"
)

// Tracker forwards captured errors to an external service.
type Tracker interface {
	CaptureError(ctx context.Context, err error, tags map[string]string) error
	// Flush blocks until buffered events are delivered or ctx expires.
	Flush(ctx context.Context) error
}

type forecastKey struct{}

type forecastScope struct {
	userID  string
	eventID string
}

// WithForecast marks ctx with the forecast being produced so trackers can tag
// captured errors with it.
func WithForecast(ctx context.Context, userID, eventID string) context.Context {
	return context.WithValue(ctx, forecastKey{}, forecastScope{userID: userID, eventID: eventID})
}

// ForecastFrom returns the user and event stored by WithForecast.
func ForecastFrom(ctx context.Context) (userID, eventID string, ok bool) {
	if ctx == nil {
		return "", "", false
	}
	s, ok := ctx.Value(forecastKey{}).(forecastScope)
	return s.userID, s.eventID, ok
}
