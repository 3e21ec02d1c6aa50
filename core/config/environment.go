package config

import (
	"fmt"
	"strings"
)

// Environment names the deployment the process runs in. It is supplied by
// configuration and never inferred from request data.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// IsProduction reports whether e is Production.
func (e Environment) IsProduction() bool {
	return e == Production
}

// UnmarshalText implements encoding.TextUnmarshaler so the type can be used
// directly in env-tagged structs.
func (e *Environment) UnmarshalText(text []byte) error {
	switch v := Environment(strings.ToLower(strings.TrimSpace(string(text)))); v {
	case Development, Staging, Production:
		*e = v
		return nil
	case "dev", "local":
		*e = Development
		return nil
	case "prod":
		*e = Production
		return nil
	default:
		return fmt.Errorf("config: unknown environment %q", string(text))
	}
}

func (e Environment) String() string {
	return string(e)
}
