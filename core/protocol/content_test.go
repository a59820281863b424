package protocol_test

import (
	"encoding/json"
	"testing"

	"github.com/cellpilot/cellpilot/core/protocol"
)

func TestPromptMarshal_PlainText(t *testing.T) {
	p := protocol.Text("hello")
	if !p.IsText() {
		t.Error("text prompt not reported as text")
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}
	if string(data) != `"hello"` {
		t.Errorf("Marshal() = %s, want %q", data, `"hello"`)
	}
}

func TestPromptMarshal_Structured(t *testing.T) {
	p := protocol.Parts(
		protocol.ImagePart{MediaType: "image/png", Data: "aGk="},
		protocol.TextPart{Text: "what is in this plot?"},
	)
	if p.IsText() {
		t.Error("structured prompt reported as text")
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() failed: %v", err)
	}

	var blocks []map[string]any
	if err := json.Unmarshal(data, &blocks); err != nil {
		t.Fatalf("round-trip failed: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("got %d blocks, want 2", len(blocks))
	}

	if blocks[0]["type"] != "image" {
		t.Errorf("first block type = %v, want image", blocks[0]["type"])
	}
	source, ok := blocks[0]["source"].(map[string]any)
	if !ok {
		t.Fatal("image block has no source object")
	}
	if source["media_type"] != "image/png" || source["data"] != "aGk=" {
		t.Errorf("image source = %v", source)
	}

	if blocks[1]["type"] != "text" || blocks[1]["text"] != "what is in this plot?" {
		t.Errorf("text block = %v", blocks[1])
	}
}
