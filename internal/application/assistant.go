package application

import (
	"context"
	"fmt"
	"log/slog"

	"factory-assistant/internal/domain"
)

// Assistant runs the host loop: pull a request from the command source,
// transcribe when needed, interpret, route to the read or write path, and
// deliver the reply. Requests are independent units of work; nothing except
// the read-only catalog is shared between them, so the only cross-request
// state here is configuration.
type Assistant struct {
	source      CommandSource
	stt         SpeechToText
	interpreter Interpreter
	resolver    *QueryResolver
	dispatcher  *ActionDispatcher
	reader      FactoryReader
	translator  Translator
	synthesizer Synthesizer
	notifier    Notifier
	logger      *slog.Logger

	// token authorizes actuation intents; empty means read-only operation.
	token           string
	defaultLanguage string
}

func NewAssistant(
	source CommandSource,
	stt SpeechToText,
	interpreter Interpreter,
	resolver *QueryResolver,
	dispatcher *ActionDispatcher,
	reader FactoryReader,
	translator Translator,
	synthesizer Synthesizer,
	notifier Notifier,
	token string,
	defaultLanguage string,
	logger *slog.Logger,
) *Assistant {
	return &Assistant{
		source:          source,
		stt:             stt,
		interpreter:     interpreter,
		resolver:        resolver,
		dispatcher:      dispatcher,
		reader:          reader,
		translator:      translator,
		synthesizer:     synthesizer,
		notifier:        notifier,
		token:           token,
		defaultLanguage: defaultLanguage,
		logger:          logger,
	}
}

func (a *Assistant) Run(ctx context.Context) error {
	a.logger.Info("starting command source", "source", a.source.Name())
	if err := a.source.Start(ctx); err != nil {
		return fmt.Errorf("starting command source: %w", err)
	}
	defer a.source.Stop()

	a.logger.Info("assistant ready, listening for commands")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := a.processOneCommand(ctx); err != nil {
				a.logger.Error("processing command", "error", err)
			}
		}
	}
}

func (a *Assistant) processOneCommand(ctx context.Context) error {
	req, err := a.source.Next(ctx)
	if err != nil {
		return fmt.Errorf("getting command: %w", err)
	}
	if req == nil {
		return nil
	}

	// Each request is handled in its own goroutine so a slow outbound call
	// never blocks the next command.
	go a.handle(ctx, req)
	return nil
}

func (a *Assistant) handle(ctx context.Context, req *Request) {
	text := req.Text
	language := a.defaultLanguage

	if text == "" && len(req.Audio) > 0 {
		a.logger.Info("received audio", "bytes", len(req.Audio))

		transcribed, detected, err := a.stt.Transcribe(ctx, req.Audio)
		if err != nil {
			a.logger.Error("transcribing", "error", err)
			a.deliver(ctx, req, "I'm sorry, I couldn't make out what you said.", language)
			return
		}
		text = transcribed
		if detected != "" {
			language = detected
		}
		a.logger.Info("transcribed", "text", text, "language", language)
	} else {
		a.logger.Info("received text command", "text", text)
	}

	a.deliver(ctx, req, a.answer(ctx, text, language), language)
}

// answer runs the interpretation and dispatch pipeline for one command and
// always produces a user-facing sentence; no error kind crashes the request.
func (a *Assistant) answer(ctx context.Context, text, language string) string {
	cmd, err := a.interpreter.Interpret(ctx, text, language)
	if err != nil {
		a.logger.Error("interpreting", "text", text, "error", err)
		return UserMessage(err)
	}

	if cmd.Intent == "" {
		a.logger.Warn("command not understood", "text", text)
		return NotUnderstood
	}

	a.logger.Info("interpreted command",
		"intent", cmd.Intent,
		"entity", cmd.EntityName,
		"entity_type", cmd.EntityType,
	)

	if domain.IsActuation(cmd.Intent) {
		reply, err := a.dispatcher.Dispatch(ctx, cmd, a.token)
		if err != nil {
			a.logger.Error("dispatching action", "intent", cmd.Intent, "error", err)
			a.notifyError(ctx, err)
			return UserMessage(err)
		}
		return reply
	}

	snapshot, err := a.reader.FetchSnapshot(ctx)
	if err != nil {
		a.logger.Error("fetching snapshot", "error", err)
		return UserMessage(err)
	}
	return a.resolver.Resolve(cmd, snapshot)
}

func (a *Assistant) deliver(ctx context.Context, req *Request, reply, language string) {
	if language != "" && language != "en" {
		translated, err := a.translator.Translate(ctx, reply, language)
		if err != nil {
			a.logger.Warn("translating reply, falling back to English", "error", err)
		} else {
			reply = translated
		}
	}

	audio, err := a.synthesizer.Synthesize(ctx, reply, language)
	if err != nil {
		// Text-only delivery still answers the user.
		a.logger.Warn("synthesizing reply", "error", err)
		audio = nil
	}

	if req.Reply != nil {
		req.Reply(Reply{Text: reply, Audio: audio})
		return
	}

	if err := a.notifier.Notify(ctx, reply); err != nil {
		a.logger.Error("notifying reply", "error", err)
	}
}

func (a *Assistant) notifyError(ctx context.Context, err error) {
	if notifyErr := a.notifier.Notify(ctx, fmt.Sprintf("Actuation failed: %s", UserMessage(err))); notifyErr != nil {
		a.logger.Error("notifying failure", "error", notifyErr)
	}
}
