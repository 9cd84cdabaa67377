package procedure

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Route binds an HTTP method and path to a procedure.
type Route struct {
	Method    string        `yaml:"method"`
	Path      string        `yaml:"path"`
	Procedure string        `yaml:"procedure"`
	Fields    []string      `yaml:"fields"`
	Mode      string        `yaml:"mode"`
	Shape     string        `yaml:"shape"`
	Objects   bool          `yaml:"objects"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

type routeFile struct {
	Routes []Route `yaml:"routes"`
}

func LoadRoutes(path string) ([]Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read routes: %w", err)
	}
	return ParseRoutes(data)
}

// ParseRoutes decodes and validates a route table.
func ParseRoutes(data []byte) ([]Route, error) {
	var file routeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse routes: %w", err)
	}

	seen := make(map[string]bool, len(file.Routes))
	for i := range file.Routes {
		r := &file.Routes[i]
		if r.Method == "" {
			r.Method = http.MethodGet
		}
		r.Method = strings.ToUpper(r.Method)

		if err := r.validate(); err != nil {
			return nil, fmt.Errorf("route %d (%s %s): %w", i, r.Method, r.Path, err)
		}
		if seen[r.Pattern()] {
			return nil, fmt.Errorf("route %d: %s declared twice", i, r.Pattern())
		}
		seen[r.Pattern()] = true
	}
	return file.Routes, nil
}

func (r Route) validate() error {
	if !strings.HasPrefix(r.Path, "/") {
		return fmt.Errorf("path must start with /")
	}
	switch r.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return fmt.Errorf("unsupported method")
	}
	if err := ValidateProcedureName(r.Procedure); err != nil {
		return err
	}
	if err := ValidateFields(r.Fields); err != nil {
		return err
	}
	if _, err := r.Call(); err != nil {
		return err
	}
	if r.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must not be negative")
	}
	if r.CacheTTL > 0 && r.Method != http.MethodGet {
		return fmt.Errorf("cache_ttl is only allowed on GET routes")
	}
	return nil
}

// Pattern is the http.ServeMux pattern for the route.
func (r Route) Pattern() string {
	return r.Method + " " + r.Path
}

func (r Route) Call() (Call, error) {
	mode, err := ParseMode(r.Mode)
	if err != nil {
		return Call{}, err
	}
	shape, err := ParseShape(r.Shape)
	if err != nil {
		return Call{}, err
	}
	return Call{
		Name:    r.Procedure,
		Fields:  r.Fields,
		Mode:    mode,
		Shape:   shape,
		Objects: r.Objects,
	}, nil
}
