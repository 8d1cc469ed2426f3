package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"factory-assistant/internal/domain"
)

// ActionDispatcher is the write path. Toggle intents follow the
// compare-before-act protocol: read the current sub-state first, skip the
// mutation when the desired state is already in effect, otherwise issue
// exactly one mutating call and report the server-confirmed result. Record
// intents validate their parameters locally before any network call.
type ActionDispatcher struct {
	reader   FactoryReader
	actuator FactoryActuator
	catalog  *domain.Catalog
	logger   *slog.Logger
}

func NewActionDispatcher(reader FactoryReader, actuator FactoryActuator, catalog *domain.Catalog, logger *slog.Logger) *ActionDispatcher {
	return &ActionDispatcher{
		reader:   reader,
		actuator: actuator,
		catalog:  catalog,
		logger:   logger,
	}
}

// Dispatch executes one actuation command. The returned error is always a
// *domain.Error; callers convert it to a user-facing sentence at the
// boundary. A missing token fails before any network traffic.
func (d *ActionDispatcher) Dispatch(ctx context.Context, cmd *domain.Command, token string) (string, error) {
	if strings.TrimSpace(token) == "" {
		return "", domain.NewError(domain.KindAuthRequired, "")
	}

	switch cmd.Intent {
	case domain.IntentToggleLights:
		return d.toggleLights(ctx, cmd, token)
	case domain.IntentToggleMachinePower:
		return d.toggleMachine(ctx, cmd, token)
	case domain.IntentRecordSale:
		return d.recordSale(ctx, cmd, token)
	case domain.IntentRecordCartons:
		return d.recordCartons(ctx, cmd, token)
	default:
		return "", domain.NewError(domain.KindValidation, "I'm not sure what you want me to do.")
	}
}

func (d *ActionDispatcher) toggleLights(ctx context.Context, cmd *domain.Command, token string) (string, error) {
	typ, canonical, ok := d.catalog.ResolveEntity(cmd.EntityName)
	if cmd.EntityName == "" || !ok || typ != domain.EntityRoom {
		return "", domain.NewError(domain.KindValidation, "Which room should I switch the lights in?")
	}

	lightNum := cmd.Params.LightNum
	if lightNum != 1 && lightNum != 2 {
		return "", domain.NewError(domain.KindValidation, "Please tell me which light, 1 or 2.")
	}

	snap, err := d.reader.FetchSnapshot(ctx)
	if err != nil {
		return "", err
	}

	room, found := snap.FindRoom(canonical)
	if !found {
		return "", domain.NewError(domain.KindRemoteNotFound, canonical)
	}
	if lightNum > len(room.Lights) {
		return "", domain.NewError(domain.KindValidation,
			fmt.Sprintf("The %s only has %d lights.", room.Name, len(room.Lights)))
	}

	current := room.Lights[lightNum-1]
	subject := fmt.Sprintf("Light %d in the %s", lightNum, room.Name)

	if desired := cmd.Params.DesiredPowerState; desired != nil && *desired == current {
		d.logger.Info("toggle skipped, state already satisfied",
			"room", room.Name, "light", lightNum, "state", domain.OnOff(current))
		result := domain.ActionResult{Outcome: domain.OutcomeSkipped, Subject: subject, State: domain.OnOff(current)}
		return result.Sentence(), nil
	}

	// Light indices are zero-based on the wire, one-based when spoken.
	conf, err := d.actuator.ToggleLights(ctx, room.Name, lightNum-1, token)
	if err != nil {
		return "", err
	}

	confirmed := !current
	if lightNum <= len(conf.Lights) {
		confirmed = conf.Lights[lightNum-1]
	}

	d.logger.Info("light toggled", "room", room.Name, "light", lightNum, "state", domain.OnOff(confirmed))
	result := domain.ActionResult{Outcome: domain.OutcomeApplied, Subject: subject, State: domain.OnOff(confirmed)}
	return result.Sentence(), nil
}

func (d *ActionDispatcher) toggleMachine(ctx context.Context, cmd *domain.Command, token string) (string, error) {
	typ, canonical, ok := d.catalog.ResolveEntity(cmd.EntityName)
	if cmd.EntityName == "" || !ok || typ != domain.EntityMachine {
		return "", domain.NewError(domain.KindValidation, "Which machine should I switch?")
	}

	snap, err := d.reader.FetchSnapshot(ctx)
	if err != nil {
		return "", err
	}

	machine, found := snap.FindMachine(canonical)
	if !found {
		return "", domain.NewError(domain.KindRemoteNotFound, canonical)
	}

	subject := "The " + machine.Name

	if desired := cmd.Params.DesiredPowerState; desired != nil && *desired == machine.Power {
		d.logger.Info("toggle skipped, state already satisfied",
			"machine", machine.Name, "state", domain.OnOff(machine.Power))
		result := domain.ActionResult{Outcome: domain.OutcomeSkipped, Subject: subject, State: domain.OnOff(machine.Power)}
		return result.Sentence(), nil
	}

	conf, err := d.actuator.ToggleMachine(ctx, machine.Name, token)
	if err != nil {
		return "", err
	}

	d.logger.Info("machine toggled", "machine", machine.Name, "state", domain.OnOff(conf.Power))
	result := domain.ActionResult{Outcome: domain.OutcomeApplied, Subject: subject, State: domain.OnOff(conf.Power)}
	return result.Sentence(), nil
}

func (d *ActionDispatcher) recordSale(ctx context.Context, cmd *domain.Command, token string) (string, error) {
	if cmd.Params.CartonsSold <= 0 {
		return "", domain.NewError(domain.KindValidation, "Please tell me how many cartons were sold.")
	}

	conf, err := d.actuator.RecordSale(ctx, cmd.Params.CartonsSold, cmd.Params.Buyer, token)
	if err != nil {
		return "", err
	}

	d.logger.Info("sale recorded", "cartons", conf.CartonsSold, "buyer", conf.Buyer)
	if conf.Buyer != "" {
		return fmt.Sprintf("Recorded the sale of %d cartons to %s.", conf.CartonsSold, conf.Buyer), nil
	}
	return fmt.Sprintf("Recorded the sale of %d cartons.", conf.CartonsSold), nil
}

func (d *ActionDispatcher) recordCartons(ctx context.Context, cmd *domain.Command, token string) (string, error) {
	if cmd.Params.CartonsProduced <= 0 {
		return "", domain.NewError(domain.KindValidation, "Please tell me how many cartons were produced.")
	}

	conf, err := d.actuator.RecordCartons(ctx, cmd.Params.CartonsProduced, token)
	if err != nil {
		return "", err
	}

	d.logger.Info("cartons recorded", "cartons", conf.CartonsProduced, "total", conf.Total)
	return fmt.Sprintf("Recorded %d cartons produced. The total is now %d.", conf.CartonsProduced, conf.Total), nil
}
