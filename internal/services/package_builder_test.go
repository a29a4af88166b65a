// internal/services/package_builder_test.go
package services

import (
	"strings"
	"testing"

	"github.com/Corphon/ShortsArchitect/internal/models"
)

func TestCompilePackageContents(t *testing.T) {
	bp, err := NewBlueprintSchema().ParseBlueprint(encodeFixture(t, blueprintFixture()))
	if err != nil {
		t.Fatalf("ParseBlueprint: %v", err)
	}

	pkg := CompilePackage(bp)

	for _, want := range []string{
		"Title: Save 10 Hours a Week\n",
		"Hook: You are wasting your mornings.\n",
		"\nScript Beats:\n",
		"\nShot Plan:\n",
		"\nCTA: Grab the template in bio\n",
		"\nCaption: Work less, post more\n",
	} {
		if !strings.Contains(pkg, want) {
			t.Errorf("package missing %q:\n%s", want, pkg)
		}
	}

	for _, beat := range bp.Script {
		line := beat.Timestamp + " — " + beat.Narration + " [On-screen: " + beat.OnScreen + "]"
		if !strings.Contains(pkg, line) {
			t.Errorf("package missing beat line %q", line)
		}
	}
	for _, shot := range bp.ShotPlan {
		line := shot.Label + " (" + shot.Duration + "): " + shot.Description + " — " + shot.Notes
		if !strings.Contains(pkg, line) {
			t.Errorf("package missing shot line %q", line)
		}
	}

	if !strings.HasSuffix(pkg, "Hashtags: #ai #automation #creator #shorts #workflow #productivity") {
		t.Errorf("unexpected hashtag line:\n%s", pkg)
	}
	if strings.Count(pkg, "#ai") != 1 || strings.Contains(pkg, "##") {
		t.Errorf("hashtags must carry exactly one #:\n%s", pkg)
	}
}

func TestCompilePackageIsPure(t *testing.T) {
	bp := &models.Blueprint{
		Title:    "T",
		Hook:     "H",
		ShotPlan: []models.Shot{{Label: "Wide", Duration: "3s", Description: "desk"}},
		Hashtags: []string{"##double", " spaced "},
	}

	first := CompilePackage(bp)
	second := CompilePackage(bp)
	if first != second {
		t.Error("package derivation should be deterministic")
	}
	if bp.Hashtags[0] != "##double" {
		t.Error("blueprint hashtags must not be rewritten")
	}
	if !strings.Contains(first, "Wide (3s): desk\n") {
		t.Errorf("shot without notes should omit the separator:\n%s", first)
	}

	bp.Title = "Changed"
	if !strings.HasPrefix(CompilePackage(bp), "Title: Changed\n") {
		t.Error("package should follow the current blueprint")
	}
}

func TestFormatHashtags(t *testing.T) {
	got := FormatHashtags([]string{"#ai", "ai", "##ai", " #growth "})
	if got != "#ai #ai #ai #growth" {
		t.Errorf("FormatHashtags = %q", got)
	}
	if CompilePackage(nil) != "" {
		t.Error("nil blueprint should yield an empty package")
	}
}
