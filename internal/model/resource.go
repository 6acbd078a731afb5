package model

import (
	"fmt"
	"strings"
	"time"
)

// ResourceKind is the kind of geographic resource a task mutates.
type ResourceKind string

const (
	ResourceKindRegion  ResourceKind = "region"
	ResourceKindPolygon ResourceKind = "polygon"
)

// ResourceKinds returns all the supported resource kinds.
func ResourceKinds() []ResourceKind {
	return []ResourceKind{ResourceKindRegion, ResourceKindPolygon}
}

// Validate checks the kind is a known one.
func (k ResourceKind) Validate() error {
	switch k {
	case ResourceKindRegion, ResourceKindPolygon:
		return nil
	}
	return fmt.Errorf("unknown resource kind %q: %w", k, ErrNotValid)
}

// ParentKind returns the resource kind that owns resources of this kind.
// Regions belong to groups, that are not managed as resources.
func (k ResourceKind) ParentKind() ResourceKind {
	if k == ResourceKindPolygon {
		return ResourceKindRegion
	}
	return ""
}

// ParentField returns the name of the field that references the parent on create items.
func (k ResourceKind) ParentField() string {
	if k == ResourceKindPolygon {
		return "regionId"
	}
	return "groupId"
}

// Title returns the kind name with the first letter upper cased (e.g: Polygon).
func (k ResourceKind) Title() string {
	s := string(k)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ResourceFields are the mutable fields of a resource.
type ResourceFields struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
	Attributes  map[string]any    `json:"attributes,omitempty"`
	// Boundary is a list of linear rings made of [lon, lat] positions.
	Boundary [][][2]float64 `json:"boundary,omitempty"`
}

// Resource is a geographic resource (region or polygon).
type Resource struct {
	ID        string
	Kind      ResourceKind
	ParentID  string
	Fields    ResourceFields
	CreatedBy string
	CreatedAt time.Time
	UpdatedBy string
	UpdatedAt time.Time
}
