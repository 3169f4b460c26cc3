// Package session holds the per-session state of a researcher: the selected
// service, base model and coding task, the cached backend clients, and the
// chat conversation. A Session is an explicit value passed into every
// generation call; there is no package-level state.
package session

import (
	"errors"
	"fmt"
	"slices"
)

// Service is an enumerated backend tier.
type Service string

const (
	ServiceFree    Service = "TogetherAI"
	ServicePrivate Service = "HuggingFaceHub"
)

// Description returns the tier label shown to researchers.
func (s Service) Description() string {
	switch s {
	case ServiceFree:
		return "free"
	case ServicePrivate:
		return "private"
	default:
		return string(s)
	}
}

// ErrUnknownService is returned for a service outside the enumerated set
// or absent from the catalog.
var ErrUnknownService = errors.New("unknown service")

// ParseService maps a service name to its enumerated value.
func ParseService(name string) (Service, error) {
	switch Service(name) {
	case ServiceFree, ServicePrivate:
		return Service(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownService, name)
}

// Offering lists the base models a service advertises.
type Offering struct {
	Service Service
	Models  []string
}

// Catalog is the ordered, read-only set of services and their models.
// The first service is the default one.
type Catalog struct {
	offerings []Offering
}

// NewCatalog validates and builds a catalog. Every service must advertise
// at least one model and appear once.
func NewCatalog(offerings ...Offering) (*Catalog, error) {
	if len(offerings) == 0 {
		return nil, errors.New("catalog needs at least one service")
	}
	seen := make(map[Service]bool, len(offerings))
	c := &Catalog{}
	for _, o := range offerings {
		if _, err := ParseService(string(o.Service)); err != nil {
			return nil, err
		}
		if seen[o.Service] {
			return nil, fmt.Errorf("service %s listed twice", o.Service)
		}
		if len(o.Models) == 0 || slices.Contains(o.Models, "") {
			return nil, fmt.Errorf("service %s must advertise non-empty model names", o.Service)
		}
		seen[o.Service] = true
		c.offerings = append(c.offerings, Offering{Service: o.Service, Models: slices.Clone(o.Models)})
	}
	return c, nil
}

// Services returns the services in catalog order.
func (c *Catalog) Services() []Service {
	out := make([]Service, len(c.offerings))
	for i, o := range c.offerings {
		out[i] = o.Service
	}
	return out
}

// Models returns the models advertised by svc, or nil when svc is unknown.
func (c *Catalog) Models(svc Service) []string {
	for _, o := range c.offerings {
		if o.Service == svc {
			return slices.Clone(o.Models)
		}
	}
	return nil
}

// Offers reports whether svc advertises model.
func (c *Catalog) Offers(svc Service, model string) bool {
	return slices.Contains(c.Models(svc), model)
}

// DefaultService returns the first service in the catalog.
func (c *Catalog) DefaultService() Service {
	return c.offerings[0].Service
}

// FirstModel returns the first model of svc, or "" when svc is unknown.
func (c *Catalog) FirstModel(svc Service) string {
	if models := c.Models(svc); len(models) > 0 {
		return models[0]
	}
	return ""
}
