package netstate

import (
	"encoding/json"
	"sort"
)

// ExploitState records one exploit and whether it has been launched.
type ExploitState struct {
	Type     string `json:"exploit_type"`
	Launched bool   `json:"launched"`
	Name     string `json:"name,omitempty"`
}

// PortState records what is known about one port on an endpoint.
type PortState struct {
	Port     int               `json:"port"`
	Open     bool              `json:"open"`
	Service  string            `json:"service,omitempty"`
	Version  string            `json:"version,omitempty"`
	CPE      string            `json:"cpe,omitempty"`
	Routes   map[string]string `json:"routes,omitempty"`
	Vulns    []string          `json:"vulns,omitempty"`
	Exploits []string          `json:"exploits,omitempty"`
}

// EndpointState aggregates everything discovered about one target IP.
type EndpointState struct {
	Ports    []PortState    `json:"ports,omitempty"`
	Exploits []ExploitState `json:"exploits,omitempty"`
	Files    []string       `json:"files,omitempty"`
	Users    []string       `json:"users,omitempty"`
}

// NetworkState maps target IP addresses to their endpoint state. It is the
// unit of world model passed between interactions.
type NetworkState struct {
	Endpoints map[string]*EndpointState `json:"network"`
}

// New creates an empty NetworkState.
func New() *NetworkState {
	return &NetworkState{Endpoints: make(map[string]*EndpointState)}
}

// Endpoint returns the state for ip, creating an empty entry on first
// access. It never fails on a missing key.
func (s *NetworkState) Endpoint(ip string) *EndpointState {
	if s.Endpoints == nil {
		s.Endpoints = make(map[string]*EndpointState)
	}
	ep, ok := s.Endpoints[ip]
	if !ok {
		ep = &EndpointState{}
		s.Endpoints[ip] = ep
	}
	return ep
}

// IPs returns the known target addresses in sorted order.
func (s *NetworkState) IPs() []string {
	ips := make([]string, 0, len(s.Endpoints))
	for ip := range s.Endpoints {
		ips = append(ips, ip)
	}
	sort.Strings(ips)
	return ips
}

// Clone returns a deep copy of the state.
func (s *NetworkState) Clone() *NetworkState {
	out := New()
	for ip, ep := range s.Endpoints {
		out.Endpoints[ip] = ep.clone()
	}
	return out
}

func (e *EndpointState) clone() *EndpointState {
	out := &EndpointState{
		Files: append([]string(nil), e.Files...),
		Users: append([]string(nil), e.Users...),
	}
	for _, p := range e.Ports {
		out.Ports = append(out.Ports, p.clone())
	}
	out.Exploits = append(out.Exploits, e.Exploits...)
	return out
}

func (p PortState) clone() PortState {
	cp := p
	if p.Routes != nil {
		cp.Routes = make(map[string]string, len(p.Routes))
		for k, v := range p.Routes {
			cp.Routes[k] = v
		}
	}
	cp.Vulns = append([]string(nil), p.Vulns...)
	cp.Exploits = append([]string(nil), p.Exploits...)
	return cp
}

// Port returns the endpoint's entry for the given port number.
func (e *EndpointState) Port(number int) (*PortState, bool) {
	for i := range e.Ports {
		if e.Ports[i].Port == number {
			return &e.Ports[i], true
		}
	}
	return nil, false
}

// Parse decodes a NetworkState from the structured output of the state
// builder agent.
func Parse(data []byte) (*NetworkState, error) {
	s := New()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	if s.Endpoints == nil {
		s.Endpoints = make(map[string]*EndpointState)
	}
	return s, nil
}

// String renders the state as indented JSON for prompts and transcripts.
func (s *NetworkState) String() string {
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}

// Schema returns the JSON schema the state builder agent's structured
// output must conform to.
func Schema() map[string]any {
	port := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"port":     map[string]any{"type": "integer"},
			"open":     map[string]any{"type": "boolean"},
			"service":  map[string]any{"type": "string"},
			"version":  map[string]any{"type": "string"},
			"cpe":      map[string]any{"type": "string"},
			"routes":   map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}},
			"vulns":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"exploits": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"port", "open"},
	}
	exploit := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"exploit_type": map[string]any{"type": "string"},
			"launched":     map[string]any{"type": "boolean"},
			"name":         map[string]any{"type": "string"},
		},
		"required": []string{"exploit_type", "launched"},
	}
	endpoint := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ports":    map[string]any{"type": "array", "items": port},
			"exploits": map[string]any{"type": "array", "items": exploit},
			"files":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"users":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"network": map[string]any{
				"type":                 "object",
				"additionalProperties": endpoint,
			},
		},
		"required": []string{"network"},
	}
}
