package flow

// Category groups palette entries. Key is a translation key.
type Category struct {
	Key     string
	Entries []PaletteEntry
}

// PaletteEntry is one draggable node type in the library panel
type PaletteEntry struct {
	ID             string
	LabelKey       string
	DescriptionKey string
	Icon           IconRef
	Type           NodeType
	Color          string
}

// Category translation keys
const (
	CategoryInit        = "flow.nodeTypes.categories.initNode"
	CategoryBasic       = "flow.nodeTypes.categories.basicNode"
	CategoryControlFlow = "flow.nodeTypes.categories.controlFlow"
	CategoryIntegration = "flow.nodeTypes.categories.integration"
	CategoryAIML        = "flow.nodeTypes.categories.aiMl"
	CategoryTools       = "flow.nodeTypes.categories.tools"
)

// Header action icons
const (
	IconCopy  IconRef = "copy"
	IconTrash IconRef = "trash"
	IconPlay  IconRef = "play"
	IconInfo  IconRef = "info"
)

var palette = []Category{
	{Key: CategoryInit, Entries: []PaletteEntry{
		entry("start-node", "startNode", "play-circle", TypeStart, "bg-green-500"),
		entry("end-node", "endNode", "stop-circle", TypeEnd, "bg-red-500"),
	}},
	{Key: CategoryBasic, Entries: []PaletteEntry{
		entry("text-node", "textNode", "file-text", TypeText, "bg-yellow-500"),
		entry("number-node", "numberNode", "hash", TypeNumber, "bg-blue-500"),
	}},
	{Key: CategoryControlFlow, Entries: []PaletteEntry{
		entry("conditional-node", "conditionalNode", "git-branch", TypeConditional, "bg-orange-500"),
		entry("loop-node", "loopNode", "repeat", TypeLoop, "bg-purple-500"),
	}},
	{Key: CategoryIntegration, Entries: []PaletteEntry{
		entry("api-node", "apiNode", "globe", TypeAPI, "bg-indigo-500"),
	}},
	{Key: CategoryAIML, Entries: []PaletteEntry{
		entry("model-node", "modelNode", "brain", TypeModel, "bg-pink-500"),
	}},
	{Key: CategoryTools, Entries: []PaletteEntry{
		entry("tool-node", "toolNode", "wrench", TypeTool, "bg-gray-500"),
	}},
}

func entry(id, key string, icon IconRef, t NodeType, color string) PaletteEntry {
	return PaletteEntry{
		ID:             id,
		LabelKey:       "flow.nodeTypes.nodes." + key + ".label",
		DescriptionKey: "flow.nodeTypes.nodes." + key + ".description",
		Icon:           icon,
		Type:           t,
		Color:          color,
	}
}

// Palette returns the node library grouped by category
func Palette() []Category {
	out := make([]Category, len(palette))
	for i, c := range palette {
		out[i] = Category{Key: c.Key, Entries: append([]PaletteEntry(nil), c.Entries...)}
	}
	return out
}

// LookupPalette returns the palette entry for t
func LookupPalette(t NodeType) (PaletteEntry, bool) {
	for _, c := range palette {
		for _, e := range c.Entries {
			if e.Type == t {
				return e, true
			}
		}
	}
	return PaletteEntry{}, false
}

// DefaultData returns the patch a node of type t is created with when it is
// dropped from the palette. Labels are translation keys.
func DefaultData(t NodeType) DataPatch {
	e, ok := LookupPalette(t)
	if !ok {
		return DataPatch{}
	}

	header := &Header{
		Label:   e.LabelKey,
		Type:    t,
		Copy:    CopyAction{IsCopy: true, CopyIcon: IconCopy},
		Delete:  DeleteAction{IsDelete: true, DeleteIcon: IconTrash},
		Execute: &ExecuteAction{IsExecute: true, ExecuteIcon: IconPlay},
		Info:    IconInfo,
		Status:  StatusIdle,
	}

	patch := DataPatch{
		Icon:        Ptr(e.Icon),
		Label:       Ptr(e.LabelKey),
		Description: Ptr(e.DescriptionKey),
		Header:      header,
		IsStartNode: Ptr(t == TypeStart),
		IsEndNode:   Ptr(t == TypeEnd),
	}

	switch t {
	case TypeText:
		patch.Payload = &TextPayload{Placeholder: "Enter your text here...", MaxLength: 1000}
	case TypeNumber:
		patch.Payload = &NumberPayload{Step: 1}
	case TypeLoop:
		patch.Payload = &LoopPayload{ItemVariable: "item", MaxIterations: 100}
	case TypeAPI:
		patch.Payload = &APIPayload{Method: "GET"}
	case TypeModel:
		patch.Payload = &ModelPayload{Temperature: 0.7, MaxTokens: 1024}
	case TypeStart, TypeEnd:
		// Start and end nodes cannot be executed on their own
		header.Execute = nil
		patch.Payload = NewPayload(t)
	default:
		patch.Payload = NewPayload(t)
	}
	return patch
}
