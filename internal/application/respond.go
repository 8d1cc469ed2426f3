package application

import (
	"errors"
	"fmt"

	"factory-assistant/internal/domain"
)

// NotUnderstood is the reply for commands no interpreter could make sense of.
const NotUnderstood = "I'm sorry, I didn't understand that."

// UserMessage converts a tagged failure into the sentence the user hears.
// This is the only place error kinds become words; everything beneath it
// keeps the distinctions intact.
func UserMessage(err error) string {
	var derr *domain.Error
	if !errors.As(err, &derr) {
		return "I'm sorry, something went wrong processing your request."
	}

	switch derr.Kind {
	case domain.KindParse:
		return NotUnderstood
	case domain.KindFetchTransport:
		return "I'm sorry, I couldn't reach the factory data service."
	case domain.KindFetchHTTP:
		return "I'm sorry, the factory data service returned an error."
	case domain.KindFetchParse:
		return "I'm sorry, I couldn't read the latest factory data."
	case domain.KindAuthRequired:
		return "You need to log in before I can control equipment."
	case domain.KindValidation:
		return derr.Detail
	case domain.KindRemoteAuth:
		return "Authentication failed. Please log in and try again."
	case domain.KindRemoteBadRequest:
		if derr.Detail != "" {
			return fmt.Sprintf("The factory service rejected that request: %s", derr.Detail)
		}
		return "The factory service rejected that request."
	case domain.KindRemoteNotFound:
		if derr.Detail != "" {
			return fmt.Sprintf("The factory service couldn't find %s.", derr.Detail)
		}
		return "The factory service couldn't find that equipment."
	default:
		return "I'm sorry, something went wrong on the factory service. Please try again later."
	}
}
