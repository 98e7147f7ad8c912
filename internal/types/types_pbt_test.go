package types

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Terminal review states never allow a transition, whatever the target.
func TestPropertyTerminalStatesAreFinal(t *testing.T) {
	properties := gopter.NewProperties(nil)

	statuses := gen.OneConstOf(ReviewPending, ReviewApproved, ReviewRejected)

	properties.Property("no transition leaves a terminal state", prop.ForAll(
		func(from, to ReviewStatus) bool {
			if from.IsTerminal() {
				return !from.CanTransitionTo(to)
			}
			return true
		},
		statuses,
		statuses,
	))

	properties.Property("parsing a known type round-trips", prop.ForAll(
		func(t ApplicationType) bool {
			got, ok := ParseApplicationType(string(t))
			return ok && got == t && t.Valid()
		},
		gen.OneConstOf(
			ApplicationBirthRegistration,
			ApplicationBirthCorrection,
			ApplicationDeathRegistration,
			ApplicationPassport,
			ApplicationTrainingCertificate,
		),
	))

	properties.TestingRun(t)
}
