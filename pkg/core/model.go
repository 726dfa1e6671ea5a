// pkg/core/model.go
package core

// VehicleProfile holds per-model vehicle physics constants, in scene units per step.
type VehicleProfile struct {
	MaxSpeed     float64 `json:"maxSpeed" mapstructure:"maxSpeed"`
	Acceleration float64 `json:"acceleration" mapstructure:"acceleration"`
	BrakeForce   float64 `json:"brakeForce" mapstructure:"brakeForce"`
	ReverseSpeed float64 `json:"reverseSpeed" mapstructure:"reverseSpeed"`
	TurnSpeed    float64 `json:"turnSpeed" mapstructure:"turnSpeed"`
	Friction     float64 `json:"friction" mapstructure:"friction"`
}

// PedestrianProfile holds per-model walking physics constants, in scene units per step.
type PedestrianProfile struct {
	WalkMaxVelocity  float64 `json:"walkMaxVelocity" mapstructure:"walkMaxVelocity"`
	RunMaxVelocity   float64 `json:"runMaxVelocity" mapstructure:"runMaxVelocity"`
	WalkAcceleration float64 `json:"walkAcceleration" mapstructure:"walkAcceleration"`
	RunAcceleration  float64 `json:"runAcceleration" mapstructure:"runAcceleration"`
	Deceleration     float64 `json:"deceleration" mapstructure:"deceleration"`
	RotationSpeed    float64 `json:"rotationSpeed" mapstructure:"rotationSpeed"`
	JumpForce        float64 `json:"jumpForce" mapstructure:"jumpForce"`
	Gravity          float64 `json:"gravity" mapstructure:"gravity"`
}

// ModelDescriptor describes a loadable model and its physics.
// Only the profile matching the mode it is used with is read.
type ModelDescriptor struct {
	ID              string            `json:"id" mapstructure:"id"`
	URI             string            `json:"uri" mapstructure:"uri"`
	Scale           float64           `json:"scale" mapstructure:"scale"`
	ElevationOffset float64           `json:"elevationOffset" mapstructure:"elevationOffset"`
	RunAnimSpeed    float64           `json:"runAnimSpeed" mapstructure:"runAnimSpeed"`
	Vehicle         VehicleProfile    `json:"vehicle" mapstructure:"vehicle"`
	Pedestrian      PedestrianProfile `json:"pedestrian" mapstructure:"pedestrian"`
}

// DefaultVehicleProfile returns the stock car tuning.
func DefaultVehicleProfile() VehicleProfile {
	return VehicleProfile{
		MaxSpeed:     0.5,
		Acceleration: 0.01,
		BrakeForce:   0.02,
		ReverseSpeed: 0.2,
		TurnSpeed:    0.02,
		Friction:     0.98,
	}
}

// DefaultPedestrianProfile returns the stock pedestrian tuning.
func DefaultPedestrianProfile() PedestrianProfile {
	return PedestrianProfile{
		WalkMaxVelocity:  0.05,
		RunMaxVelocity:   0.15,
		WalkAcceleration: 0.005,
		RunAcceleration:  0.01,
		Deceleration:     0.9,
		RotationSpeed:    0.05,
		JumpForce:        0.15,
		Gravity:          0.005,
	}
}
