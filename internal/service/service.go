// Package service contains the business logic layer of the application.
//
// THE THREE LAYERS:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Services accept plain Go values, never *http.Request, and return
// *apperror.AppError values for expected failures. The handler layer
// translates those into status codes.
//
// Services depend on repository interfaces, not on sqlstore, so tests
// substitute hand-written fakes.
package service

// Events receives business events worth counting. *metrics.Metrics
// implements it; NopEvents discards everything.
type Events interface {
	AuthAttempt(outcome string)
	IdeaCreated()
	IdeaUpvoted()
}

// NopEvents is an Events that records nothing.
type NopEvents struct{}

func (NopEvents) AuthAttempt(string) {}
func (NopEvents) IdeaCreated()       {}
func (NopEvents) IdeaUpvoted()       {}
