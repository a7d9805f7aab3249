package story

import (
	"fmt"

	"github.com/google/uuid"
)

// NodeEnrichment carries authoring-tool metadata for a stage or action node
type NodeEnrichment struct {
	Name     string
	GroupID  uuid.UUID // uuid.Nil when the node is not grouped
	Type     *NodeType
	Position *Position
}

// Position is the node location on the authoring canvas
type Position struct {
	X int16
	Y int16
}

// NodeType tags the role a node plays in the authoring tool
type NodeType uint8

const (
	NodeTypeStage              NodeType = 0x00
	NodeTypeAction             NodeType = 0x01
	NodeTypeCover              NodeType = 0x02
	NodeTypeStory              NodeType = 0x03
	NodeTypeTakeOut            NodeType = 0x04
	NodeTypeMenuQuestionStage  NodeType = 0x05
	NodeTypeMenuQuestionAction NodeType = 0x06
	NodeTypeMenuOptionsStage   NodeType = 0x07
	NodeTypeMenuOptionsAction  NodeType = 0x08
)

var nodeTypeLabels = map[NodeType]string{
	NodeTypeStage:              "stage",
	NodeTypeAction:             "action",
	NodeTypeCover:              "cover",
	NodeTypeStory:              "story",
	NodeTypeTakeOut:            "takeout",
	NodeTypeMenuQuestionStage:  "menu.questionstage",
	NodeTypeMenuQuestionAction: "menu.questionaction",
	NodeTypeMenuOptionsStage:   "menu.optionsstage",
	NodeTypeMenuOptionsAction:  "menu.optionsaction",
}

func (t NodeType) String() string {
	if label, ok := nodeTypeLabels[t]; ok {
		return label
	}
	return fmt.Sprintf("unknown(0x%02x)", uint8(t))
}

// Code returns the byte stored in binary packs
func (t NodeType) Code() uint8 {
	return uint8(t)
}

// ParseNodeType maps an authoring label back to its node type
func ParseNodeType(label string) (NodeType, error) {
	for t, l := range nodeTypeLabels {
		if l == label {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown node type %q", label)
}
