package services

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// followUp is a secondary side effect that runs after the primary write has
// committed.
type followUp struct {
	name string
	run  func() error
}

func step(name string, run func() error) followUp {
	return followUp{name: name, run: run}
}

// runFollowUps runs every step in order. A failing or panicking step is
// logged and does not stop its siblings. The combined error is returned for
// inspection only; callers must not turn it into a request failure.
func runFollowUps(log *zap.Logger, op string, steps ...followUp) error {
	var errs error
	for _, s := range steps {
		if err := runStep(s); err != nil {
			log.Warn("follow-up step failed",
				zap.String("operation", op),
				zap.String("step", s.name),
				zap.Error(err),
			)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errs
}

func runStep(s followUp) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.run()
}
