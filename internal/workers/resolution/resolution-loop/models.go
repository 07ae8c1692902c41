// internal/workers/resolution/resolution-loop/models.go
package resolutionloop

import (
	"context"

	"company-assistant/internal/models"
	classifyquery "company-assistant/internal/workers/resolution/classify-query"
	evaluateanswer "company-assistant/internal/workers/resolution/evaluate-answer"
	verifyanswer "company-assistant/internal/workers/resolution/verify-answer"
)

// State is a step of the resolution state machine.
type State string

const (
	StateStart             State = "START"
	StateClassify          State = "CLASSIFY"
	StateRoute             State = "ROUTE"
	StateEvaluateCandidate State = "EVALUATE_CANDIDATE"
	StateVerify            State = "VERIFY"
	StateEvaluateVerified  State = "EVALUATE_VERIFIED"
	StateAccept            State = "ACCEPT"
	StateEscalate          State = "ESCALATE"
	StateTerminal          State = "TERMINAL"
)

const (
	startPrompt    = "So, what would you like to look up today?"
	continuePrompt = "Would you like to search something else? (y/n)"
	detailPrompt   = "Hmm, your query didn't yield enough information. Could you provide more details?"

	GoodbyeMessage       = "Understood. Have a great day!"
	notUnderstoodMessage = "Sorry, I could not work out which company you are asking about."
	unresolvedMessage    = "Sorry, I was unable to resolve your question with the information available."
)

type Classifier interface {
	Execute(ctx context.Context, input *classifyquery.Input) (*classifyquery.Output, error)
}

type Router interface {
	Execute(ctx context.Context, query *models.StructuredQuery) (*models.CandidateAnswer, error)
}

type Evaluator interface {
	Execute(ctx context.Context, input *evaluateanswer.Input) (*evaluateanswer.Output, error)
}

type Verifier interface {
	Execute(ctx context.Context, input *verifyanswer.Input) (*models.VerifiedAnswer, error)
}

// Stages are the components the loop drives, one per state.
type Stages struct {
	Classifier Classifier
	Router     Router
	Evaluator  Evaluator
	Verifier   Verifier
}
