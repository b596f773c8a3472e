// Package openscreen is the public surface of the availability
// controller: Config/DefaultConfig for wiring dependencies, Logger for the
// default stdout logging sink, and Coordinator, the entry point observers,
// receivers, and a discovery.Source are registered against.
package openscreen
