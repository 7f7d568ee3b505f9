package harvester

import (
	"fmt"
	"net/http"
	"time"

	"github.com/vietddude/harvester/internal/core/domain"
)

// Action determines how the loop handles a classified outcome.
type Action int

const (
	ActionStore Action = iota
	ActionWait
	ActionTerminate
)

func (a Action) String() string {
	switch a {
	case ActionStore:
		return "store"
	case ActionWait:
		return "wait"
	case ActionTerminate:
		return "terminate"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Decision is the result of classifying one outcome.
type Decision struct {
	Action  Action
	Payload []byte        // set for ActionStore
	Wait    time.Duration // set for ActionWait
	Status  int           // HTTP status for transport errors
	Err     error         // set for ActionTerminate
}

// Classify maps an outcome to the loop's next action. Only a 503 carrying a
// non-negative integer Retry-After is retried; every other error terminates.
func Classify(out domain.Outcome) Decision {
	switch o := out.(type) {
	case domain.Success:
		return Decision{Action: ActionStore, Payload: o.Payload, Status: http.StatusOK}

	case domain.TransportError:
		if o.StatusCode != http.StatusServiceUnavailable {
			return Decision{
				Action: ActionTerminate,
				Status: o.StatusCode,
				Err:    &domain.UnhandledStatusError{StatusCode: o.StatusCode},
			}
		}
		seconds, ok := o.Response.RetryAfter()
		if !ok {
			return Decision{
				Action: ActionTerminate,
				Status: o.StatusCode,
				Err: &domain.UnhandledStatusError{
					StatusCode: o.StatusCode,
					Reason:     "missing or malformed Retry-After",
				},
			}
		}
		return Decision{
			Action: ActionWait,
			Status: o.StatusCode,
			Wait:   time.Duration(seconds) * time.Second,
		}

	case domain.ApplicationError:
		return Decision{
			Action: ActionTerminate,
			Status: http.StatusOK,
			Err:    &domain.UnhandledApplicationError{Code: o.Code, Text: o.Text},
		}

	default:
		return Decision{
			Action: ActionTerminate,
			Err:    fmt.Errorf("unexpected outcome %T", out),
		}
	}
}

// outcomeLabel names an outcome for metrics.
func outcomeLabel(out domain.Outcome) string {
	switch o := out.(type) {
	case domain.Success:
		return "success"
	case domain.TransportError:
		return fmt.Sprintf("status_%d", o.StatusCode)
	case domain.ApplicationError:
		return string(o.Code)
	default:
		return "unknown"
	}
}
