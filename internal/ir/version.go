package ir

// Version constants for the model representation and simulator.
const (
	// IRVersion is the model representation version, recorded with stored batches.
	IRVersion = "1"

	// EngineVersion is the simulator version.
	EngineVersion = "0.1.0"
)
