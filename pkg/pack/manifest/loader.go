package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/image/bmp"
	"gopkg.in/yaml.v3"

	"github.com/provide-io/storypack/go/storypack/pkg/story"
)

// nodeNamespace derives stable stage node UUIDs from local IDs
var nodeNamespace = uuid.MustParse("6f1c5a2e-7b1d-4f0e-9c3a-2d8e4b6a1f70")

// Parse decodes a YAML or JSON manifest
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}

// Load reads the manifest at path and builds the story pack it describes
func Load(path string, logger hclog.Logger) (*story.Pack, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, err
	}

	logger.Debug("📋 Manifest loaded",
		"path", path,
		"stage_nodes", len(m.StageNodes),
		"action_nodes", len(m.ActionNodes))

	return m.Build(filepath.Dir(path), logger)
}

// Build resolves IDs and reads assets relative to baseDir.
// Identical asset paths share one MediaAsset.
func (m *Manifest) Build(baseDir string, logger hclog.Logger) (*story.Pack, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if len(m.StageNodes) == 0 {
		return nil, errors.New("manifest has no stage nodes")
	}

	b := &packBuilder{
		baseDir: baseDir,
		logger:  logger,
		stages:  make(map[string]*story.StageNode, len(m.StageNodes)),
		actions: make(map[string]*story.ActionNode, len(m.ActionNodes)),
		assets:  make(map[string]*story.MediaAsset),
	}

	pack := &story.Pack{
		Version:         m.Pack.Version,
		FactoryDisabled: m.Pack.FactoryDisabled,
	}
	if m.Pack.Title != "" || m.Pack.Description != "" {
		pack.Enriched = &story.PackEnrichment{Title: m.Pack.Title, Description: m.Pack.Description}
	}

	// Stage nodes first so action node options can refer to them
	for i, cfg := range m.StageNodes {
		node, err := b.stageNode(cfg)
		if err != nil {
			return nil, fmt.Errorf("stage node %d (%s): %w", i, cfg.ID, err)
		}
		pack.StageNodes = append(pack.StageNodes, node)
	}

	for i, cfg := range m.ActionNodes {
		if err := b.actionNode(cfg); err != nil {
			return nil, fmt.Errorf("action node %d (%s): %w", i, cfg.ID, err)
		}
	}

	for i, cfg := range m.StageNodes {
		node := pack.StageNodes[i]
		var err error
		if node.OkTransition, err = b.transition(cfg.Ok); err != nil {
			return nil, fmt.Errorf("stage node %s ok transition: %w", cfg.ID, err)
		}
		if node.HomeTransition, err = b.transition(cfg.Home); err != nil {
			return nil, fmt.Errorf("stage node %s home transition: %w", cfg.ID, err)
		}
	}

	logger.Info("🧩 Story pack assembled",
		"stage_nodes", len(pack.StageNodes),
		"action_nodes", len(b.actions),
		"asset_files", len(b.assets))

	return pack, nil
}

type packBuilder struct {
	baseDir string
	logger  hclog.Logger
	stages  map[string]*story.StageNode
	actions map[string]*story.ActionNode
	assets  map[string]*story.MediaAsset
}

func (b *packBuilder) stageNode(cfg StageNodeConfig) (*story.StageNode, error) {
	if cfg.ID == "" {
		return nil, errors.New("missing id")
	}
	if _, dup := b.stages[cfg.ID]; dup {
		return nil, fmt.Errorf("duplicate stage node id %q", cfg.ID)
	}

	id := uuid.NewSHA1(nodeNamespace, []byte(cfg.ID))
	if cfg.UUID != "" {
		parsed, err := uuid.Parse(cfg.UUID)
		if err != nil {
			return nil, fmt.Errorf("invalid uuid %q: %w", cfg.UUID, err)
		}
		id = parsed
	}

	node := &story.StageNode{
		UUID: id,
		ControlSettings: story.ControlSettings{
			WheelEnabled:    cfg.Controls.Wheel,
			OkEnabled:       cfg.Controls.Ok,
			HomeEnabled:     cfg.Controls.Home,
			PauseEnabled:    cfg.Controls.Pause,
			AutoJumpEnabled: cfg.Controls.AutoJump,
		},
	}

	var err error
	if node.Image, err = b.asset(cfg.Image, story.CategoryImage); err != nil {
		return nil, err
	}
	if node.Audio, err = b.asset(cfg.Audio, story.CategoryAudio); err != nil {
		return nil, err
	}
	if node.Enriched, err = enrichment(cfg.Enriched); err != nil {
		return nil, err
	}

	b.stages[cfg.ID] = node
	return node, nil
}

func (b *packBuilder) actionNode(cfg ActionNodeConfig) error {
	if cfg.ID == "" {
		return errors.New("missing id")
	}
	if _, dup := b.actions[cfg.ID]; dup {
		return fmt.Errorf("duplicate action node id %q", cfg.ID)
	}

	node := &story.ActionNode{Options: make([]*story.StageNode, 0, len(cfg.Options))}
	for _, ref := range cfg.Options {
		option, ok := b.stages[ref]
		if !ok {
			return fmt.Errorf("unknown stage node %q", ref)
		}
		node.Options = append(node.Options, option)
	}

	var err error
	if node.Enriched, err = enrichment(cfg.Enriched); err != nil {
		return err
	}

	b.actions[cfg.ID] = node
	return nil
}

func (b *packBuilder) transition(cfg *TransitionConfig) (*story.Transition, error) {
	if cfg == nil {
		return nil, nil
	}
	node, ok := b.actions[cfg.Action]
	if !ok {
		return nil, fmt.Errorf("unknown action node %q", cfg.Action)
	}
	if cfg.Option < 0 || cfg.Option >= len(node.Options) {
		return nil, fmt.Errorf("option %d of action node %q with %d options", cfg.Option, cfg.Action, len(node.Options))
	}
	return &story.Transition{ActionNode: node, OptionIndex: cfg.Option}, nil
}

// asset reads a media file. The type is sniffed from the content, so a PNG
// placed in an image slot is carried as PNG and rejected later by the encoder.
func (b *packBuilder) asset(rel string, category story.AssetCategory) (*story.MediaAsset, error) {
	if rel == "" {
		return nil, nil
	}
	path := rel
	if !filepath.IsAbs(path) {
		path = filepath.Join(b.baseDir, rel)
	}
	if asset, ok := b.assets[path]; ok {
		return asset, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", category, err)
	}

	asset := &story.MediaAsset{Type: story.DetectMediaType(data), Data: data}
	if asset.Type == story.MediaBMP {
		cfg, err := bmp.DecodeConfig(bytes.NewReader(data))
		switch {
		case errors.Is(err, bmp.ErrUnsupported):
			b.logger.Warn("⚠️ BMP variant not checked", "path", rel)
		case err != nil:
			return nil, fmt.Errorf("invalid bmp %s: %w", rel, err)
		default:
			b.logger.Trace("🖼️ Bitmap", "path", rel, "width", cfg.Width, "height", cfg.Height)
		}
	}

	b.logger.Debug("📎 Asset read", "path", rel, "category", category, "type", asset.Type, "size", len(data))
	b.assets[path] = asset
	return asset, nil
}

func enrichment(cfg *EnrichedConfig) (*story.NodeEnrichment, error) {
	if cfg == nil {
		return nil, nil
	}
	e := &story.NodeEnrichment{Name: cfg.Name}
	if cfg.Group != "" {
		group, err := uuid.Parse(cfg.Group)
		if err != nil {
			return nil, fmt.Errorf("invalid group %q: %w", cfg.Group, err)
		}
		e.GroupID = group
	}
	if cfg.Type != "" {
		t, err := story.ParseNodeType(cfg.Type)
		if err != nil {
			return nil, err
		}
		e.Type = &t
	}
	if cfg.Position != nil {
		e.Position = &story.Position{X: cfg.Position.X, Y: cfg.Position.Y}
	}
	return e, nil
}
