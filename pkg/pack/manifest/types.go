package manifest

// Manifest describes a story pack project.
//
// Nodes reference each other by their local ID. Asset paths are relative to
// the manifest file. JSON manifests are accepted as well, YAML being a superset.
//
// Required fields:
// - Pack: version and flags
// - StageNodes: at least one stage node, the first one is the pack entry point
//
// Optional fields:
// - ActionNodes: branch points referenced by stage node transitions
type Manifest struct {
	Pack        PackConfig         `yaml:"pack" json:"pack"`
	StageNodes  []StageNodeConfig  `yaml:"stage_nodes" json:"stage_nodes"`
	ActionNodes []ActionNodeConfig `yaml:"action_nodes,omitempty" json:"action_nodes,omitempty"`
}

// PackConfig contains pack level settings
type PackConfig struct {
	Version         int    `yaml:"version" json:"version"`
	FactoryDisabled bool   `yaml:"factory_disabled,omitempty" json:"factory_disabled,omitempty"`
	Title           string `yaml:"title,omitempty" json:"title,omitempty"`
	Description     string `yaml:"description,omitempty" json:"description,omitempty"`
}

// StageNodeConfig defines a stage node
type StageNodeConfig struct {
	ID       string            `yaml:"id" json:"id"`
	UUID     string            `yaml:"uuid,omitempty" json:"uuid,omitempty"` // Derived from ID when empty
	Image    string            `yaml:"image,omitempty" json:"image,omitempty"`
	Audio    string            `yaml:"audio,omitempty" json:"audio,omitempty"`
	Ok       *TransitionConfig `yaml:"ok,omitempty" json:"ok,omitempty"`
	Home     *TransitionConfig `yaml:"home,omitempty" json:"home,omitempty"`
	Controls ControlsConfig    `yaml:"controls" json:"controls"`
	Enriched *EnrichedConfig   `yaml:"enriched,omitempty" json:"enriched,omitempty"`
}

// ActionNodeConfig defines an action node by the stage node IDs it offers
type ActionNodeConfig struct {
	ID       string          `yaml:"id" json:"id"`
	Options  []string        `yaml:"options" json:"options"`
	Enriched *EnrichedConfig `yaml:"enriched,omitempty" json:"enriched,omitempty"`
}

// TransitionConfig selects one option of an action node
type TransitionConfig struct {
	Action string `yaml:"action" json:"action"`
	Option int    `yaml:"option" json:"option"`
}

// ControlsConfig maps to story.ControlSettings
type ControlsConfig struct {
	Wheel    bool `yaml:"wheel,omitempty" json:"wheel,omitempty"`
	Ok       bool `yaml:"ok,omitempty" json:"ok,omitempty"`
	Home     bool `yaml:"home,omitempty" json:"home,omitempty"`
	Pause    bool `yaml:"pause,omitempty" json:"pause,omitempty"`
	AutoJump bool `yaml:"autojump,omitempty" json:"autojump,omitempty"`
}

// EnrichedConfig carries authoring metadata for a node
type EnrichedConfig struct {
	Name     string          `yaml:"name,omitempty" json:"name,omitempty"`
	Group    string          `yaml:"group,omitempty" json:"group,omitempty"`
	Type     string          `yaml:"type,omitempty" json:"type,omitempty"`
	Position *PositionConfig `yaml:"position,omitempty" json:"position,omitempty"`
}

// PositionConfig is a canvas position
type PositionConfig struct {
	X int16 `yaml:"x" json:"x"`
	Y int16 `yaml:"y" json:"y"`
}
