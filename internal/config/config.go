package config

import (
	"fmt"
	"time"

	"github.com/OCAP2/mapdrive/pkg/core"
	"github.com/spf13/viper"
)

// ConfigFileName is the name of the JSON file read by Load.
const ConfigFileName = "mapdrive.cfg.json"

// LoopConfig holds fixed-timestep settings
type LoopConfig struct {
	Step          float64
	MaxFrameDelta float64
}

// PhysicsConfig holds settings shared by all movement states
type PhysicsConfig struct {
	SteeringMultiplier float64
	BoostMultiplier    float64
	Epsilon            float64
	FlyAscendRate      float64
	FlyDescendRate     float64
	FlySmoothing       float64
}

// ScalarConfig holds one camera axis
type ScalarConfig struct {
	Min     float64 `mapstructure:"min"`
	Max     float64 `mapstructure:"max"`
	Step    float64 `mapstructure:"step"`
	Default float64 `mapstructure:"default"`
}

// CameraConfig holds camera composer settings
type CameraConfig struct {
	Bearing         ScalarConfig
	Pitch           ScalarConfig
	Zoom            ScalarConfig
	BaseDistance    float64
	FlyingThreshold float64
}

// NavigationConfig holds navigation controller settings
type NavigationConfig struct {
	ArrivalThreshold float64
	CloseThreshold   float64
	PollInterval     time.Duration
	AutoCancelDelay  time.Duration
	RouteTimeout     time.Duration
}

// SQLiteConfig holds sqlite store settings
type SQLiteConfig struct {
	Path         string
	DumpPath     string
	DumpInterval time.Duration
}

// PostgresConfig holds postgres store settings
type PostgresConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
}

// StorageConfig holds key-value store settings
type StorageConfig struct {
	Type             string
	SnapshotInterval time.Duration
	SQLite           SQLiteConfig
	Postgres         PostgresConfig
}

// RoutingConfig holds routing service settings
type RoutingConfig struct {
	ServerURL      string
	CarProfile     string
	WalkingProfile string
	Timeout        time.Duration
}

// TelemetryConfig holds InfluxDB telemetry settings
type TelemetryConfig struct {
	Enabled    bool
	URL        string
	Token      string
	Org        string
	Bucket     string
	BackupPath string
	Interval   time.Duration
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool
	ServiceName  string
	BatchTimeout time.Duration
	Endpoint     string
	Insecure     bool
}

// TerrainConfig selects the terrain service
type TerrainConfig struct {
	Type          string
	BaseElevation float64
}

// StartConfig holds where and how a session begins
type StartConfig struct {
	Position     string
	Mode         core.Mode
	CarModel     string
	WalkingModel string
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(ConfigFileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// SetDefaults registers every default value. Load calls it; tools that run
// without a config file may call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")

	viper.SetDefault("loop.step", 1.0/60.0)
	viper.SetDefault("loop.maxFrameDelta", 0.1)

	viper.SetDefault("physics.steeringMultiplier", 1.5)
	viper.SetDefault("physics.boostMultiplier", 4.0)
	viper.SetDefault("physics.epsilon", 0.01)
	viper.SetDefault("physics.flyAscendRate", 50.0)
	viper.SetDefault("physics.flyDescendRate", 20.0)
	viper.SetDefault("physics.flySmoothing", 0.05)

	viper.SetDefault("camera.bearing.min", -180.0)
	viper.SetDefault("camera.bearing.max", 180.0)
	viper.SetDefault("camera.bearing.step", 15.0)
	viper.SetDefault("camera.bearing.default", 0.0)
	viper.SetDefault("camera.pitch.min", 0.0)
	viper.SetDefault("camera.pitch.max", 85.0)
	viper.SetDefault("camera.pitch.step", 5.0)
	viper.SetDefault("camera.pitch.default", 60.0)
	viper.SetDefault("camera.zoom.min", 14.0)
	viper.SetDefault("camera.zoom.max", 22.0)
	viper.SetDefault("camera.zoom.step", 0.5)
	viper.SetDefault("camera.zoom.default", 18.0)
	viper.SetDefault("camera.baseDistance", 100.0)
	viper.SetDefault("camera.flyingThreshold", 5.0)

	viper.SetDefault("navigation.arrivalThreshold", core.DefaultArrivalThreshold)
	viper.SetDefault("navigation.closeThreshold", core.DefaultCloseThreshold)
	viper.SetDefault("navigation.pollInterval", "500ms")
	viper.SetDefault("navigation.autoCancelDelay", "3s")
	viper.SetDefault("navigation.routeTimeout", "10s")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.snapshotInterval", "5s")
	viper.SetDefault("storage.sqlite.path", "")
	viper.SetDefault("storage.sqlite.dumpPath", "./mapdrive_state.db")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "mapdrive")

	viper.SetDefault("routing.serverUrl", "http://localhost:5000")
	viper.SetDefault("routing.carProfile", "driving")
	viper.SetDefault("routing.walkingProfile", "foot")
	viper.SetDefault("routing.timeout", "10s")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "mapdrive")
	viper.SetDefault("influx.bucket", "entity_telemetry")
	viper.SetDefault("influx.backupPath", "./mapdrive_telemetry.lp.gz")
	viper.SetDefault("influx.interval", "1s")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "mapdrive")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("start.position", "13.4050,52.5200")
	viper.SetDefault("start.mode", string(core.ModeCar))
	viper.SetDefault("start.carModel", "car")
	viper.SetDefault("start.walkingModel", "walker")

	viper.SetDefault("terrain.type", "flat")
	viper.SetDefault("terrain.baseElevation", 0.0)
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetLoopConfig returns the fixed-timestep settings.
func GetLoopConfig() LoopConfig {
	return LoopConfig{
		Step:          viper.GetFloat64("loop.step"),
		MaxFrameDelta: viper.GetFloat64("loop.maxFrameDelta"),
	}
}

// GetPhysicsConfig returns the shared physics settings.
func GetPhysicsConfig() PhysicsConfig {
	return PhysicsConfig{
		SteeringMultiplier: viper.GetFloat64("physics.steeringMultiplier"),
		BoostMultiplier:    viper.GetFloat64("physics.boostMultiplier"),
		Epsilon:            viper.GetFloat64("physics.epsilon"),
		FlyAscendRate:      viper.GetFloat64("physics.flyAscendRate"),
		FlyDescendRate:     viper.GetFloat64("physics.flyDescendRate"),
		FlySmoothing:       viper.GetFloat64("physics.flySmoothing"),
	}
}

func getScalar(prefix string) ScalarConfig {
	return ScalarConfig{
		Min:     viper.GetFloat64(prefix + ".min"),
		Max:     viper.GetFloat64(prefix + ".max"),
		Step:    viper.GetFloat64(prefix + ".step"),
		Default: viper.GetFloat64(prefix + ".default"),
	}
}

// GetCameraConfig returns the camera settings.
func GetCameraConfig() CameraConfig {
	return CameraConfig{
		Bearing:         getScalar("camera.bearing"),
		Pitch:           getScalar("camera.pitch"),
		Zoom:            getScalar("camera.zoom"),
		BaseDistance:    viper.GetFloat64("camera.baseDistance"),
		FlyingThreshold: viper.GetFloat64("camera.flyingThreshold"),
	}
}

// GetNavigationConfig returns the navigation settings.
func GetNavigationConfig() NavigationConfig {
	return NavigationConfig{
		ArrivalThreshold: viper.GetFloat64("navigation.arrivalThreshold"),
		CloseThreshold:   viper.GetFloat64("navigation.closeThreshold"),
		PollInterval:     viper.GetDuration("navigation.pollInterval"),
		AutoCancelDelay:  viper.GetDuration("navigation.autoCancelDelay"),
		RouteTimeout:     viper.GetDuration("navigation.routeTimeout"),
	}
}

// GetStorageConfig returns the key-value store settings.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type:             viper.GetString("storage.type"),
		SnapshotInterval: viper.GetDuration("storage.snapshotInterval"),
		SQLite: SQLiteConfig{
			Path:         viper.GetString("storage.sqlite.path"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		Postgres: PostgresConfig{
			Host:     viper.GetString("db.host"),
			Port:     viper.GetString("db.port"),
			Username: viper.GetString("db.username"),
			Password: viper.GetString("db.password"),
			Database: viper.GetString("db.database"),
		},
	}
}

// GetRoutingConfig returns the routing service settings.
func GetRoutingConfig() RoutingConfig {
	return RoutingConfig{
		ServerURL:      viper.GetString("routing.serverUrl"),
		CarProfile:     viper.GetString("routing.carProfile"),
		WalkingProfile: viper.GetString("routing.walkingProfile"),
		Timeout:        viper.GetDuration("routing.timeout"),
	}
}

// GetTelemetryConfig returns the InfluxDB telemetry settings.
func GetTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled: viper.GetBool("influx.enabled"),
		URL: fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		Token:      viper.GetString("influx.token"),
		Org:        viper.GetString("influx.org"),
		Bucket:     viper.GetString("influx.bucket"),
		BackupPath: viper.GetString("influx.backupPath"),
		Interval:   viper.GetDuration("influx.interval"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetTerrainConfig returns the terrain service selection.
func GetTerrainConfig() TerrainConfig {
	return TerrainConfig{
		Type:          viper.GetString("terrain.type"),
		BaseElevation: viper.GetFloat64("terrain.baseElevation"),
	}
}

// GetStartConfig returns the session start settings.
func GetStartConfig() StartConfig {
	return StartConfig{
		Position:     viper.GetString("start.position"),
		Mode:         core.Mode(viper.GetString("start.mode")),
		CarModel:     viper.GetString("start.carModel"),
		WalkingModel: viper.GetString("start.walkingModel"),
	}
}

// GetModels returns the model descriptors configured under "models", keyed by ID.
// The stock car and walker are always present unless overridden.
func GetModels() (map[string]core.ModelDescriptor, error) {
	models := map[string]core.ModelDescriptor{
		"car": {
			ID:              "car",
			URI:             "models/car.glb",
			Scale:           1,
			ElevationOffset: 0.5,
			RunAnimSpeed:    1,
			Vehicle:         core.DefaultVehicleProfile(),
		},
		"walker": {
			ID:              "walker",
			URI:             "models/walker.glb",
			Scale:           1,
			ElevationOffset: 0,
			RunAnimSpeed:    1.5,
			Pedestrian:      core.DefaultPedestrianProfile(),
		},
	}

	var configured []core.ModelDescriptor
	if err := viper.UnmarshalKey("models", &configured); err != nil {
		return nil, fmt.Errorf("failed to decode models: %w", err)
	}
	for _, m := range configured {
		if m.ID == "" {
			return nil, fmt.Errorf("model descriptor without id")
		}
		models[m.ID] = m
	}
	return models, nil
}
