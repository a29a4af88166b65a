// internal/services/blueprint_schema_test.go
package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	apperrors "github.com/Corphon/ShortsArchitect/internal/errors"
)

// blueprintFixture 返回一个刚好满足结构约束的模型输出
func blueprintFixture() map[string]interface{} {
	script := make([]interface{}, 0, 5)
	shots := make([]interface{}, 0, 5)
	for i := 1; i <= 5; i++ {
		script = append(script, map[string]interface{}{
			"timestamp": fmt.Sprintf("0:%02d", i*10),
			"narration": fmt.Sprintf("beat %d narration", i),
			"onScreen":  fmt.Sprintf("beat %d visual", i),
			"emphasis":  "punchy",
		})
		shots = append(shots, map[string]interface{}{
			"label":       fmt.Sprintf("Shot %d", i),
			"description": fmt.Sprintf("shot %d framing", i),
			"duration":    "4s",
			"notes":       fmt.Sprintf("note %d", i),
		})
	}

	return map[string]interface{}{
		"title":           "Save 10 Hours a Week",
		"hook":            "You are wasting your mornings.",
		"summary":         "Three automations for creators.",
		"script":          script,
		"shotPlan":        shots,
		"callToAction":    "Grab the template in bio",
		"caption":         "Work less, post more",
		"hashtags":        []interface{}{"#ai", "automation", "creator", "#shorts", "workflow", "productivity"},
		"broll":           []interface{}{"b1", "b2", "b3", "b4", "b5"},
		"soundDesign":     []interface{}{"s1", "s2", "s3"},
		"tips":            []interface{}{"t1", "t2", "t3"},
		"productionNotes": "",
	}
}

func encodeFixture(t *testing.T, fixture map[string]interface{}) string {
	t.Helper()
	data, err := json.Marshal(fixture)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return string(data)
}

func repeatStrings(n int) []interface{} {
	out := make([]interface{}, n)
	for i := range out {
		out[i] = fmt.Sprintf("item-%d", i)
	}
	return out
}

func TestParseBlueprintRoundTrip(t *testing.T) {
	bp, err := NewBlueprintSchema().ParseBlueprint(encodeFixture(t, blueprintFixture()))
	if err != nil {
		t.Fatalf("ParseBlueprint: %v", err)
	}

	if bp.Title != "Save 10 Hours a Week" || bp.ProductionNotes != "" {
		t.Errorf("unexpected scalar fields: %+v", bp)
	}
	if len(bp.Script) != 5 || len(bp.ShotPlan) != 5 {
		t.Fatalf("unexpected cardinalities: %d beats, %d shots", len(bp.Script), len(bp.ShotPlan))
	}
	for i, beat := range bp.Script {
		if beat.Narration != fmt.Sprintf("beat %d narration", i+1) {
			t.Errorf("beat %d out of order: %+v", i, beat)
		}
	}
	if bp.Hashtags[0] != "#ai" || bp.Hashtags[1] != "automation" {
		t.Errorf("hashtags must be stored verbatim: %v", bp.Hashtags)
	}
}

func TestParseBlueprintNotesDefaultToEmpty(t *testing.T) {
	fixture := blueprintFixture()
	for _, shot := range fixture["shotPlan"].([]interface{}) {
		delete(shot.(map[string]interface{}), "notes")
	}

	bp, err := NewBlueprintSchema().ParseBlueprint(encodeFixture(t, fixture))
	if err != nil {
		t.Fatalf("ParseBlueprint: %v", err)
	}
	for _, shot := range bp.ShotPlan {
		if shot.Notes != "" {
			t.Errorf("notes should default to empty, got %q", shot.Notes)
		}
	}
}

func TestParseBlueprintCardinalityBoundaries(t *testing.T) {
	truncate := func(key string, n int) func(map[string]interface{}) {
		return func(f map[string]interface{}) {
			f[key] = f[key].([]interface{})[:n]
		}
	}
	set := func(key string, n int) func(map[string]interface{}) {
		return func(f map[string]interface{}) {
			f[key] = repeatStrings(n)
		}
	}

	tests := []struct {
		name    string
		mutate  func(map[string]interface{})
		wantErr bool
		field   string
	}{
		{"4 beats", truncate("script", 4), true, "script"},
		{"5 beats", truncate("script", 5), false, ""},
		{"4 shots", truncate("shotPlan", 4), true, "shotPlan"},
		{"5 hashtags", set("hashtags", 5), true, "hashtags"},
		{"6 hashtags", set("hashtags", 6), false, ""},
		{"12 hashtags", set("hashtags", 12), false, ""},
		{"13 hashtags", set("hashtags", 13), true, "hashtags"},
		{"4 broll", set("broll", 4), true, "broll"},
		{"5 broll", set("broll", 5), false, ""},
		{"2 sound cues", set("soundDesign", 2), true, "soundDesign"},
		{"3 sound cues", set("soundDesign", 3), false, ""},
		{"2 tips", set("tips", 2), true, "tips"},
		{"3 tips", set("tips", 3), false, ""},
	}

	schema := NewBlueprintSchema()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := blueprintFixture()
			tt.mutate(fixture)

			bp, err := schema.ParseBlueprint(encodeFixture(t, fixture))
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if bp != nil {
				t.Error("a failed parse must not return a partial blueprint")
			}
			if !apperrors.IsSynthesisError(err) {
				t.Fatalf("expected synthesis error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.field+":") {
				t.Errorf("error should name %s: %v", tt.field, err)
			}
		})
	}
}

func TestParseBlueprintMissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]interface{})
		field  string
	}{
		{"productionNotes", func(f map[string]interface{}) { delete(f, "productionNotes") }, "productionNotes"},
		{"empty title", func(f map[string]interface{}) { f["title"] = "" }, "title"},
		{"null hook", func(f map[string]interface{}) { f["hook"] = nil }, "hook"},
		{"beat without emphasis", func(f map[string]interface{}) {
			delete(f["script"].([]interface{})[2].(map[string]interface{}), "emphasis")
		}, "script[2].emphasis"},
		{"shot without label", func(f map[string]interface{}) {
			delete(f["shotPlan"].([]interface{})[0].(map[string]interface{}), "label")
		}, "shotPlan[0].label"},
		{"uppercase title key", func(f map[string]interface{}) {
			f["TITLE"] = f["title"]
			delete(f, "title")
		}, "title"},
		{"lowercase beat key", func(f map[string]interface{}) {
			beat := f["script"].([]interface{})[1].(map[string]interface{})
			beat["onscreen"] = beat["onScreen"]
			delete(beat, "onScreen")
		}, "script[1].onScreen"},
		{"null hashtags", func(f map[string]interface{}) {
			f["hashtags"] = make([]interface{}, 6)
		}, "hashtags[0]"},
		{"null broll entry", func(f map[string]interface{}) {
			f["broll"].([]interface{})[4] = nil
		}, "broll[4]"},
		{"null tips entry", func(f map[string]interface{}) {
			f["tips"].([]interface{})[0] = nil
		}, "tips[0]"},
	}

	schema := NewBlueprintSchema()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fixture := blueprintFixture()
			tt.mutate(fixture)

			_, err := schema.ParseBlueprint(encodeFixture(t, fixture))
			if !apperrors.IsSynthesisError(err) {
				t.Fatalf("expected synthesis error, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.field+":") {
				t.Errorf("error should name %s: %v", tt.field, err)
			}
		})
	}
}

func TestParseBlueprintRejectsNonJSON(t *testing.T) {
	schema := NewBlueprintSchema()

	_, err := schema.ParseBlueprint("not json")
	if !apperrors.IsSynthesisError(err) || !strings.HasPrefix(apperrors.UserMessage(err), "Model returned invalid JSON") {
		t.Errorf("unexpected error for non-JSON output: %v", err)
	}

	fenced := "```json\n" + encodeFixture(t, blueprintFixture()) + "\n```"
	if _, err := schema.ParseBlueprint(fenced); !apperrors.IsSynthesisError(err) {
		t.Errorf("fenced output must not be repaired: %v", err)
	}

	_, err = schema.ParseBlueprint("   ")
	if apperrors.UserMessage(err) != "No content returned from model." {
		t.Errorf("unexpected empty-output message: %v", err)
	}
}
