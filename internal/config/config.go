package config

import (
	"fmt"

	"github.com/ekisa-team/infero/schema"
)

// File is the root of an infero.yaml file.
type File struct {
	Infero Config `json:"infero" yaml:"infero"`
}

// Config holds the main configuration for the application.
type Config struct {
	Server   ServerConfig   `json:"server"             yaml:"server"`
	Training TrainingConfig `json:"training,omitempty" yaml:"training,omitempty"`
}

// ServerConfig holds configuration for the inference server.
type ServerConfig struct {
	Name          string       `json:"name"                     yaml:"name"`
	Description   string       `json:"description,omitempty"    yaml:"description,omitempty"`
	Version       string       `json:"version,omitempty"        yaml:"version,omitempty"`
	HTTP          HTTPConfig   `json:"http"                     yaml:"http"`
	GRPC          GRPCConfig   `json:"grpc,omitempty"           yaml:"grpc,omitempty"`
	Route         *RouteConfig `json:"route,omitempty"          yaml:"route,omitempty"`
	CacheDir      string       `json:"cache_dir,omitempty"      yaml:"cache_dir,omitempty"`
	Threads       int          `json:"threads,omitempty"        yaml:"threads,omitempty"`
	ReadinessFile string       `json:"readiness_file,omitempty" yaml:"readiness_file,omitempty"`
}

// HTTPConfig holds the HTTP listener settings.
type HTTPConfig struct {
	Host      string `json:"host"       yaml:"host"`
	Port      int    `json:"port"       yaml:"port"`
	Debug     bool   `json:"debug"      yaml:"debug"`
	AccessLog bool   `json:"access_log" yaml:"access_log"`
}

// GRPCConfig holds the gRPC health listener settings. Port 0 selects the
// default port; pass --grpc-port=0 to disable the listener.
type GRPCConfig struct {
	Port int `json:"port,omitempty" yaml:"port,omitempty"`
}

// RouteConfig binds one predictor to one HTTP path.
type RouteConfig struct {
	Name        string          `json:"name"                  yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	Path        string          `json:"path"                  yaml:"path"`
	Predictor   string          `json:"predictor"             yaml:"predictor"`
	Args        []ArgConfig     `json:"args,omitempty"        yaml:"args,omitempty"`
	Response    *ResponseConfig `json:"response,omitempty"    yaml:"response,omitempty"`
	Tags        []string        `json:"tags,omitempty"        yaml:"tags,omitempty"`
	EchoInput   bool            `json:"echo_input,omitempty"  yaml:"echo_input,omitempty"`
}

// ArgConfig declares one request parameter explicitly.
type ArgConfig struct {
	Name        string `json:"name"                  yaml:"name"`
	Type        string `json:"type"                  yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Default     any    `json:"default,omitempty"     yaml:"default,omitempty"`
	Required    *bool  `json:"required,omitempty"    yaml:"required,omitempty"`
}

// ResponseConfig names the response schema.
type ResponseConfig struct {
	Type        string `json:"type"                  yaml:"type"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// TrainingConfig holds configuration for training runs.
type TrainingConfig struct {
	Trainer string `json:"trainer,omitempty" yaml:"trainer,omitempty"`
}

// Parameter converts the declaration into a parameter descriptor. A
// parameter is required unless it has a default, is optional, or says so.
func (a ArgConfig) Parameter() (schema.Parameter, error) {
	typ, err := schema.ParseType(a.Type)
	if err != nil {
		return schema.Parameter{}, fmt.Errorf("arg %q: %w", a.Name, err)
	}

	p := schema.Parameter{
		Name:        a.Name,
		Type:        typ,
		Description: a.Description,
		Default:     a.Default,
		Required:    a.Default == nil && typ.Tag != schema.TagOptional,
	}
	if a.Required != nil {
		p.Required = *a.Required
	}
	if p.Required && p.Default != nil {
		return schema.Parameter{}, fmt.Errorf("arg %q: %w", a.Name, schema.ErrRequiredDefault)
	}

	return p, nil
}

// Parameters returns the explicit parameter table, or nil when the route
// relies on introspection.
func (r *RouteConfig) Parameters() ([]schema.Parameter, error) {
	if len(r.Args) == 0 {
		return nil, nil
	}

	params := make([]schema.Parameter, 0, len(r.Args))
	for _, a := range r.Args {
		p, err := a.Parameter()
		if err != nil {
			return nil, err
		}
		params = append(params, p)
	}

	return params, nil
}

// ResponseName returns the configured response schema name, if any.
func (r *RouteConfig) ResponseName() string {
	if r.Response == nil {
		return ""
	}
	return r.Response.Type
}
