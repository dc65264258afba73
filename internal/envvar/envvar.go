package envvar

const (
	// InferoEnv is the environment variable used to determine the environment
	InferoEnv = "INFERO_ENV"

	// InferoConfigPath is the environment variable used to locate the config file
	InferoConfigPath = "INFERO_CONFIG"

	// InferoHTTPPort is the environment variable used to override the HTTP port
	InferoHTTPPort = "INFERO_HTTP_PORT"

	// InferoGRPCPort is the environment variable used to override the gRPC health port
	InferoGRPCPort = "INFERO_GRPC_PORT"

	// InferoLogFile is the environment variable used to enable the rotated log file
	InferoLogFile = "INFERO_LOG_FILE"
)
