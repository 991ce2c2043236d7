package netstate

// Merge folds incoming observations into base and returns the combined
// state. Base is deep-copied first and never mutated. Per incoming IP:
//
//   - a new IP's endpoint is copied in whole;
//   - exploits union by (type, launched) equality, duplicates skipped;
//   - ports union by port number, with service/version/CPE overwritten only
//     by non-empty incoming values, routes merged key-by-key with incoming
//     winning, and vulns/exploits extended with not-already-present items;
//   - files and users union by exact equality.
//
// Ports and exploits present only in base are preserved untouched. Merging
// a state with itself is a no-op.
func Merge(base, incoming *NetworkState) *NetworkState {
	out := base.Clone()
	if incoming == nil {
		return out
	}
	for ip, ep := range incoming.Endpoints {
		mergeEndpoint(out.Endpoint(ip), ep)
	}
	return out
}

// Add combines the receiver with other, creating empty endpoints in the
// copy for any IP in other not yet present. Ties favor other's non-empty
// fields.
func (s *NetworkState) Add(other *NetworkState) *NetworkState {
	return Merge(s, other)
}

func mergeEndpoint(dst, src *EndpointState) {
	for _, ex := range src.Exploits {
		if !hasExploit(dst.Exploits, ex) {
			dst.Exploits = append(dst.Exploits, ex)
		}
	}
	for _, p := range src.Ports {
		if existing, ok := dst.Port(p.Port); ok {
			mergePort(existing, p)
		} else {
			dst.Ports = append(dst.Ports, p.clone())
		}
	}
	dst.Files = appendMissing(dst.Files, src.Files)
	dst.Users = appendMissing(dst.Users, src.Users)
}

func mergePort(dst *PortState, src PortState) {
	if src.Open {
		dst.Open = true
	}
	// Empty incoming fields never erase existing data.
	if src.Service != "" {
		dst.Service = src.Service
	}
	if src.Version != "" {
		dst.Version = src.Version
	}
	if src.CPE != "" {
		dst.CPE = src.CPE
	}
	if len(src.Routes) > 0 {
		if dst.Routes == nil {
			dst.Routes = make(map[string]string, len(src.Routes))
		}
		for k, v := range src.Routes {
			dst.Routes[k] = v
		}
	}
	dst.Vulns = appendMissing(dst.Vulns, src.Vulns)
	dst.Exploits = appendMissing(dst.Exploits, src.Exploits)
}

func hasExploit(list []ExploitState, ex ExploitState) bool {
	for _, e := range list {
		if e.Type == ex.Type && e.Launched == ex.Launched {
			return true
		}
	}
	return false
}

func appendMissing(dst, src []string) []string {
	for _, item := range src {
		found := false
		for _, existing := range dst {
			if existing == item {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, item)
		}
	}
	return dst
}
