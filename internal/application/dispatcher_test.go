package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"factory-assistant/internal/application"
	"factory-assistant/internal/domain"
)

type stubReader struct {
	snap  *domain.StateSnapshot
	err   error
	calls int
}

func (s *stubReader) FetchSnapshot(_ context.Context) (*domain.StateSnapshot, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.snap, nil
}

type lightCall struct {
	room  string
	index int
}

type stubActuator struct {
	lightCalls   []lightCall
	machineCalls []string
	saleCalls    int
	cartonCalls  int

	lightsResp  *application.LightsConfirmation
	powerResp   *application.PowerConfirmation
	saleResp    *application.SaleConfirmation
	cartonsResp *application.CartonsConfirmation
	err         error
}

func (s *stubActuator) mutations() int {
	return len(s.lightCalls) + len(s.machineCalls) + s.saleCalls + s.cartonCalls
}

func (s *stubActuator) ToggleLights(_ context.Context, room string, index int, _ string) (*application.LightsConfirmation, error) {
	s.lightCalls = append(s.lightCalls, lightCall{room: room, index: index})
	return s.lightsResp, s.err
}

func (s *stubActuator) ToggleMachine(_ context.Context, machine string, _ string) (*application.PowerConfirmation, error) {
	s.machineCalls = append(s.machineCalls, machine)
	return s.powerResp, s.err
}

func (s *stubActuator) RecordSale(_ context.Context, cartons int, buyer, _ string) (*application.SaleConfirmation, error) {
	s.saleCalls++
	if s.err != nil {
		return nil, s.err
	}
	return &application.SaleConfirmation{CartonsSold: cartons, Buyer: buyer}, nil
}

func (s *stubActuator) RecordCartons(_ context.Context, cartons int, _ string) (*application.CartonsConfirmation, error) {
	s.cartonCalls++
	if s.err != nil {
		return nil, s.err
	}
	return &application.CartonsConfirmation{CartonsProduced: cartons, Total: 104 + cartons}, nil
}

func newDispatcher(reader *stubReader, actuator *stubActuator) *application.ActionDispatcher {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return application.NewActionDispatcher(reader, actuator, testCatalog(), logger)
}

func boolPtr(b bool) *bool { return &b }

func TestDispatch_RequiresToken(t *testing.T) {
	reader := &stubReader{snap: testSnapshot()}
	actuator := &stubActuator{}
	dispatcher := newDispatcher(reader, actuator)

	_, err := dispatcher.Dispatch(context.Background(), &domain.Command{
		Intent:     domain.IntentToggleMachinePower,
		EntityName: "Furnace",
	}, "")

	var derr *domain.Error
	if !errors.As(err, &derr) || derr.Kind != domain.KindAuthRequired {
		t.Fatalf("expected AuthRequired, got %v", err)
	}
	if reader.calls != 0 || actuator.mutations() != 0 {
		t.Error("no network call should be made without a token")
	}
}

// Repeating a toggle whose desired state is already in effect must never
// double-toggle physical equipment.
func TestDispatch_ToggleLights_AlreadySatisfied(t *testing.T) {
	reader := &stubReader{snap: testSnapshot()} // Machine Room lights: [true, false]
	actuator := &stubActuator{}
	dispatcher := newDispatcher(reader, actuator)

	got, err := dispatcher.Dispatch(context.Background(), &domain.Command{
		Intent:     domain.IntentToggleLights,
		EntityName: "Machine Room",
		EntityType: domain.EntityRoom,
		Params:     domain.Params{LightNum: 1, DesiredPowerState: boolPtr(true)},
	}, "token")
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}

	want := "Light 1 in the Machine Room is already on."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if len(actuator.lightCalls) != 0 {
		t.Errorf("expected zero mutating calls, got %d", len(actuator.lightCalls))
	}
	if reader.calls != 1 {
		t.Errorf("expected one state read, got %d", reader.calls)
	}
}

// light_num is one-based when spoken, zero-based on the wire, and one-based
// again in the reply.
func TestDispatch_ToggleLights_IndexRoundTrip(t *testing.T) {
	reader := &stubReader{snap: testSnapshot()}
	actuator := &stubActuator{
		lightsResp: &application.LightsConfirmation{Room: "Machine Room", Lights: []bool{false, false}},
	}
	dispatcher := newDispatcher(reader, actuator)

	got, err := dispatcher.Dispatch(context.Background(), &domain.Command{
		Intent:     domain.IntentToggleLights,
		EntityName: "Machine Room",
		EntityType: domain.EntityRoom,
		Params:     domain.Params{LightNum: 1, DesiredPowerState: boolPtr(false)},
	}, "token")
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}

	if len(actuator.lightCalls) != 1 {
		t.Fatalf("expected one mutating call, got %d", len(actuator.lightCalls))
	}
	if actuator.lightCalls[0].index != 0 {
		t.Errorf("wire index: got %d, want 0", actuator.lightCalls[0].index)
	}

	want := "Light 1 in the Machine Room is now off."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDispatch_ToggleLights_InvalidLightNum(t *testing.T) {
	reader := &stubReader{snap: testSnapshot()}
	actuator := &stubActuator{}
	dispatcher := newDispatcher(reader, actuator)

	_, err := dispatcher.Dispatch(context.Background(), &domain.Command{
		Intent:     domain.IntentToggleLights,
		EntityName: "Machine Room",
		EntityType: domain.EntityRoom,
		Params:     domain.Params{LightNum: 3},
	}, "token")

	var derr *domain.Error
	if !errors.As(err, &derr) || derr.Kind != domain.KindValidation {
		t.Fatalf("expected Validation, got %v", err)
	}
	if reader.calls != 0 || actuator.mutations() != 0 {
		t.Error("invalid light number must fail before any network call")
	}
}

// The reported state is the server-confirmed one, never the locally assumed
// one.
func TestDispatch_ToggleMachine_ServerConfirmedState(t *testing.T) {
	reader := &stubReader{snap: testSnapshot()} // Furnace power: true
	actuator := &stubActuator{
		powerResp: &application.PowerConfirmation{Machine: "Furnace", Power: false},
	}
	dispatcher := newDispatcher(reader, actuator)

	got, err := dispatcher.Dispatch(context.Background(), &domain.Command{
		Intent:     domain.IntentToggleMachinePower,
		EntityName: "Furnace",
		EntityType: domain.EntityMachine,
		Params:     domain.Params{DesiredPowerState: boolPtr(false)},
	}, "token")
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}

	want := "The Furnace is now off."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if len(actuator.machineCalls) != 1 {
		t.Errorf("expected one mutating call, got %d", len(actuator.machineCalls))
	}
}

func TestDispatch_ToggleMachine_AlreadySatisfied(t *testing.T) {
	reader := &stubReader{snap: testSnapshot()}
	actuator := &stubActuator{}
	dispatcher := newDispatcher(reader, actuator)

	got, err := dispatcher.Dispatch(context.Background(), &domain.Command{
		Intent:     domain.IntentToggleMachinePower,
		EntityName: "furnace",
		EntityType: domain.EntityMachine,
		Params:     domain.Params{DesiredPowerState: boolPtr(true)},
	}, "token")
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}

	want := "The Furnace is already on."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if actuator.mutations() != 0 {
		t.Error("expected zero mutating calls")
	}
}

func TestDispatch_RecordCartons_RejectsNonPositive(t *testing.T) {
	reader := &stubReader{snap: testSnapshot()}
	actuator := &stubActuator{}
	dispatcher := newDispatcher(reader, actuator)

	_, err := dispatcher.Dispatch(context.Background(), &domain.Command{
		Intent: domain.IntentRecordCartons,
		Params: domain.Params{CartonsProduced: -5},
	}, "token")

	var derr *domain.Error
	if !errors.As(err, &derr) || derr.Kind != domain.KindValidation {
		t.Fatalf("expected Validation, got %v", err)
	}
	if reader.calls != 0 || actuator.mutations() != 0 {
		t.Error("validation failures must not reach the network")
	}
}

func TestDispatch_RecordCartons(t *testing.T) {
	reader := &stubReader{snap: testSnapshot()}
	actuator := &stubActuator{}
	dispatcher := newDispatcher(reader, actuator)

	got, err := dispatcher.Dispatch(context.Background(), &domain.Command{
		Intent: domain.IntentRecordCartons,
		Params: domain.Params{CartonsProduced: 5},
	}, "token")
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}

	want := "Recorded 5 cartons produced. The total is now 109."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDispatch_RecordSale(t *testing.T) {
	reader := &stubReader{snap: testSnapshot()}
	actuator := &stubActuator{}
	dispatcher := newDispatcher(reader, actuator)

	got, err := dispatcher.Dispatch(context.Background(), &domain.Command{
		Intent: domain.IntentRecordSale,
		Params: domain.Params{CartonsSold: 12, Buyer: "Acme"},
	}, "token")
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}

	want := "Recorded the sale of 12 cartons to Acme."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestDispatch_FetchFailurePropagates(t *testing.T) {
	reader := &stubReader{err: domain.NewError(domain.KindFetchHTTP, "status 500")}
	actuator := &stubActuator{}
	dispatcher := newDispatcher(reader, actuator)

	_, err := dispatcher.Dispatch(context.Background(), &domain.Command{
		Intent:     domain.IntentToggleMachinePower,
		EntityName: "Furnace",
		EntityType: domain.EntityMachine,
	}, "token")

	var derr *domain.Error
	if !errors.As(err, &derr) || derr.Kind != domain.KindFetchHTTP {
		t.Fatalf("expected FetchHTTP, got %v", err)
	}
	if actuator.mutations() != 0 {
		t.Error("a failed compare-before-act read must suppress the write")
	}
}

func TestDispatch_RoomMissingFromSnapshot(t *testing.T) {
	snap := testSnapshot()
	snap.Rooms = nil
	reader := &stubReader{snap: snap}
	actuator := &stubActuator{}
	dispatcher := newDispatcher(reader, actuator)

	_, err := dispatcher.Dispatch(context.Background(), &domain.Command{
		Intent:     domain.IntentToggleLights,
		EntityName: "Machine Room",
		EntityType: domain.EntityRoom,
		Params:     domain.Params{LightNum: 2},
	}, "token")

	var derr *domain.Error
	if !errors.As(err, &derr) || derr.Kind != domain.KindRemoteNotFound {
		t.Fatalf("expected RemoteNotFound, got %v", err)
	}
	if actuator.mutations() != 0 {
		t.Error("expected zero mutating calls")
	}
}
