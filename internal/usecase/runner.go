package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"loadpulse/internal/domain"
)

// Scenario is the ordered request list one virtual user walks through.
type Scenario struct {
	Name     string
	Requests []*domain.Request
}

// Runner drives virtual users. Each completed transaction hands the updated
// session back over a per-user channel, so one user's processing can never
// block or corrupt another's progression.
type Runner struct {
	send   func(*domain.Tx)
	logger *zerolog.Logger
}

func NewRunner(send func(*domain.Tx), logger *zerolog.Logger) *Runner {
	return &Runner{send: send, logger: logger}
}

// RunUser executes the scenario's requests in order for one new virtual
// user and returns its final session. Cancelling ctx stops the user from
// issuing new transactions; the in-flight one completes on its own.
func (r *Runner) RunUser(ctx context.Context, scenario Scenario) domain.Session {
	session := domain.NewSession(scenario.Name)
	steps := make(chan domain.Session, 1)
	for _, req := range scenario.Requests {
		select {
		case <-ctx.Done():
			return session
		default:
		}
		tx := domain.NewTx(req, session, func(s domain.Session) { steps <- s })
		r.send(tx)
		select {
		case session = <-steps:
		case <-ctx.Done():
			return session
		}
	}
	r.logger.Debug().
		Str("user", session.UserID).
		Bool("failed", session.Failed).
		Dur("drift", session.Drift).
		Msg("scenario finished")
	return session
}
