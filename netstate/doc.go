// Package netstate holds the accumulated world model of the target network
// and the merge engine that folds partial observations into it.
//
// The model is keyed by target IP. Merging is additive: an observation can
// refine or extend what is known about an endpoint, but it can never erase
// ports, exploits, or artifacts recorded earlier. Empty incoming fields
// never overwrite non-empty existing ones.
package netstate
