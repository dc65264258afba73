package env

import (
	"os"
	"strings"

	"github.com/ekisa-team/infero/internal/envvar"
)

// Environment is the deployment environment the process runs in.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
	Test        Environment = "test"
)

// FromEnv reads the environment from INFERO_ENV, defaulting to development.
func FromEnv() Environment {
	return Parse(os.Getenv(envvar.InferoEnv))
}

// Parse maps common spellings onto an Environment.
func Parse(s string) Environment {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prod", "production":
		return Production
	case "test", "testing":
		return Test
	default:
		return Development
	}
}

// IsProduction reports whether e is Production.
func (e Environment) IsProduction() bool {
	return e == Production
}
