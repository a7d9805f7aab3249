// Package story holds the in-memory story pack graph: stage nodes, action
// nodes, transitions and media assets.
//
// Nodes reference each other by pointer. Stage nodes are identified by their
// position in Pack.StageNodes; action nodes are identified by pointer, so a
// single *ActionNode shared by several transitions is one node.
package story

import (
	"github.com/google/uuid"
)

// Pack is the root of a story graph
type Pack struct {
	StageNodes      []*StageNode
	Version         int
	FactoryDisabled bool
	Enriched        *PackEnrichment
}

// PackEnrichment carries authoring metadata for the pack itself
type PackEnrichment struct {
	Title       string
	Description string
}

// StageNode is a displayable node with optional media and up to two outgoing transitions
type StageNode struct {
	UUID            uuid.UUID
	Image           *MediaAsset
	Audio           *MediaAsset
	OkTransition    *Transition
	HomeTransition  *Transition
	ControlSettings ControlSettings
	Enriched        *NodeEnrichment
}

// ActionNode is a branch point listing the stage nodes a transition can land on
type ActionNode struct {
	Options  []*StageNode
	Enriched *NodeEnrichment
}

// Transition points at an action node and selects one of its options
type Transition struct {
	ActionNode  *ActionNode
	OptionIndex int
}

// ControlSettings are the per-stage-node input flags of the device
type ControlSettings struct {
	WheelEnabled    bool
	OkEnabled       bool
	HomeEnabled     bool
	PauseEnabled    bool
	AutoJumpEnabled bool
}

// Transitions returns every transition of the pack, walking stage nodes in
// order and yielding the ok transition before the home transition.
func (p *Pack) Transitions() []*Transition {
	transitions := make([]*Transition, 0, 2*len(p.StageNodes))
	for _, node := range p.StageNodes {
		if node == nil {
			continue
		}
		if node.OkTransition != nil {
			transitions = append(transitions, node.OkTransition)
		}
		if node.HomeTransition != nil {
			transitions = append(transitions, node.HomeTransition)
		}
	}
	return transitions
}

// Assets returns the assets of one category in stage node order. Shared or
// byte-identical assets appear once per referencing node.
func (p *Pack) Assets(category AssetCategory) []*MediaAsset {
	assets := make([]*MediaAsset, 0, len(p.StageNodes))
	for _, node := range p.StageNodes {
		if node == nil {
			continue
		}
		var asset *MediaAsset
		switch category {
		case CategoryImage:
			asset = node.Image
		case CategoryAudio:
			asset = node.Audio
		}
		if asset != nil {
			assets = append(assets, asset)
		}
	}
	return assets
}

// StageNodeIndex maps each stage node pointer to its position in the pack.
// The first occurrence wins if a node is listed twice.
func (p *Pack) StageNodeIndex() map[*StageNode]int {
	index := make(map[*StageNode]int, len(p.StageNodes))
	for i, node := range p.StageNodes {
		if _, seen := index[node]; !seen {
			index[node] = i
		}
	}
	return index
}
