package application

import (
	"context"

	"factory-assistant/internal/domain"
)

// FactoryReader retrieves one consistent snapshot of remote factory state.
// Each call performs exactly one outbound read; retries are a transport
// concern, not handled here.
type FactoryReader interface {
	FetchSnapshot(ctx context.Context) (*domain.StateSnapshot, error)
}

// LightsConfirmation is the server-confirmed state after a light toggle.
type LightsConfirmation struct {
	Room   string
	Lights []bool
}

// PowerConfirmation is the server-confirmed state after a machine toggle.
type PowerConfirmation struct {
	Machine string
	Power   bool
}

// SaleConfirmation echoes a recorded sale.
type SaleConfirmation struct {
	CartonsSold int
	Buyer       string
}

// CartonsConfirmation echoes a recorded production batch and the new total.
type CartonsConfirmation struct {
	CartonsProduced int
	Total           int
}

// FactoryActuator issues mutating calls against the factory-state service.
// Every call requires a bearer token; lightIndex is zero-based on the wire.
type FactoryActuator interface {
	ToggleLights(ctx context.Context, room string, lightIndex int, token string) (*LightsConfirmation, error)
	ToggleMachine(ctx context.Context, machine string, token string) (*PowerConfirmation, error)
	RecordSale(ctx context.Context, cartons int, buyer, token string) (*SaleConfirmation, error)
	RecordCartons(ctx context.Context, cartons int, token string) (*CartonsConfirmation, error)
}
