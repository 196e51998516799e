package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
)

type nodeSignature struct {
	Name       string            `json:"name"`
	Interface  string            `json:"interface"`
	Parameters map[string]any    `json:"parameters,omitempty"`
	Inputs     map[string]string `json:"inputs,omitempty"`
	JoinSource string            `json:"join_source,omitempty"`
	JoinFields []string          `json:"join_fields,omitempty"`
}

type pipelineSignature struct {
	Pipeline string            `json:"pipeline"`
	Nodes    []nodeSignature   `json:"nodes"`
	Outputs  []Output          `json:"outputs"`
	Upstream map[string]string `json:"upstream,omitempty"`
}

// Signature identifies how spec is derived: the interfaces, static parameters
// and wiring of its pipeline, and the signatures of the derived specs it
// reads. Two analyses storing the same spec under one name agree on its
// signature only if they would derive it the same way.
func (a *Analysis) Signature(spec string) (string, error) {
	return a.signature(spec, nil)
}

func (a *Analysis) signature(spec string, stack []string) (string, error) {
	a.sigMu.Lock()
	sig, ok := a.sigs[spec]
	a.sigMu.Unlock()
	if ok {
		return sig, nil
	}
	if slices.Contains(stack, spec) {
		return "", fmt.Errorf("cycle between derived specs: %s", strings.Join(append(stack, spec), " -> "))
	}
	stack = append(stack, spec)

	p, err := a.PipelineFor(spec)
	if err != nil {
		return "", err
	}
	doc := pipelineSignature{Pipeline: p.Name, Outputs: p.Outputs(), Upstream: make(map[string]string)}
	for _, n := range p.Nodes() {
		ns := nodeSignature{
			Name:       n.Name,
			Interface:  n.Interface.Name(),
			Parameters: maps.Clone(n.Parameters),
			Inputs:     make(map[string]string, len(n.Inputs)),
			JoinSource: string(n.JoinSource),
			JoinFields: slices.Sorted(slices.Values(n.JoinFields)),
		}
		for field, src := range n.Inputs {
			ns.Inputs[field] = src.String()
			if !src.IsData() {
				continue
			}
			if ds, _ := a.def.Data(src.Spec); ds.Derived() {
				if doc.Upstream[src.Spec], err = a.signature(src.Spec, stack); err != nil {
					return "", err
				}
			}
		}
		doc.Nodes = append(doc.Nodes, ns)
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode signature of %s: %w", spec, err)
	}
	sum := sha256.Sum256(data)
	sig = hex.EncodeToString(sum[:])

	a.sigMu.Lock()
	a.sigs[spec] = sig
	a.sigMu.Unlock()
	return sig, nil
}
