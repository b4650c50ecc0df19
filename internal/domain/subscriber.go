package domain

// SubscriptionRequest is the record sent to the provider for a new subscriber.
// It lives only for the duration of one submission.
type SubscriptionRequest struct {
	Email     string   `json:"email"`
	FirstName string   `json:"firstname"`
	LastName  string   `json:"lastname"`
	Groups    []string `json:"groups"`
}

// Subscriber is the provider's view of an existing subscriber.
type Subscriber struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	FirstName string   `json:"firstname"`
	LastName  string   `json:"lastname"`
	Groups    []string `json:"groups,omitempty"`
}

// Outcome is the result of a single subscription attempt.
type Outcome int

const (
	OutcomeFailed Outcome = iota
	OutcomeCreated
	OutcomeAlreadyExists
)

// String returns the wire name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeAlreadyExists:
		return "already_exists"
	default:
		return "failed"
	}
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// SubscriptionResult is what a subscription attempt produced.
// Reason is set only for OutcomeFailed and is never shown to visitors.
type SubscriptionResult struct {
	Outcome Outcome `json:"outcome"`
	Email   string  `json:"email"`
	Reason  string  `json:"-"`
	Err     error   `json:"-"`
}

// SubscribeRequest is the public request body for subscribing.
type SubscribeRequest struct {
	Email string `json:"email"`
}

// SubscribeResponse is returned by the subscription endpoint.
type SubscribeResponse struct {
	Outcome Outcome  `json:"outcome"`
	Email   string   `json:"email"`
	Notices []Notice `json:"notices"`
}
