package application

import (
	"context"

	"factory-assistant/internal/domain"
)

// Interpreter turns free text into a structured Command. Implementations must
// return Command{Intent: ""} when nothing is recognized rather than an error;
// errors are reserved for transport or malformed-response failures of
// strategies that call out to a generation service.
//
// langHint is the ISO-639-1 code of the language the text was spoken in, when
// known. It is carried into the Command's ResponseLanguage and never affects
// what is parsed.
type Interpreter interface {
	Interpret(ctx context.Context, text, langHint string) (*domain.Command, error)
}
