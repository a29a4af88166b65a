// internal/services/package_builder.go
package services

import (
	"fmt"
	"strings"

	"github.com/Corphon/ShortsArchitect/internal/models"
)

// CompilePackage 把蓝图展开为可复制的纯文本制作包
// 每次调用都从蓝图重新计算，不修改蓝图本身
func CompilePackage(bp *models.Blueprint) string {
	if bp == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", bp.Title)
	fmt.Fprintf(&b, "Hook: %s\n", bp.Hook)

	b.WriteString("\nScript Beats:\n")
	for _, beat := range bp.Script {
		fmt.Fprintf(&b, "%s — %s [On-screen: %s]\n", beat.Timestamp, beat.Narration, beat.OnScreen)
	}

	b.WriteString("\nShot Plan:\n")
	for _, shot := range bp.ShotPlan {
		fmt.Fprintf(&b, "%s (%s): %s", shot.Label, shot.Duration, shot.Description)
		if shot.Notes != "" {
			fmt.Fprintf(&b, " — %s", shot.Notes)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nCTA: %s\n", bp.CallToAction)
	fmt.Fprintf(&b, "\nCaption: %s\n", bp.Caption)
	fmt.Fprintf(&b, "Hashtags: %s", FormatHashtags(bp.Hashtags))

	return b.String()
}

// FormatHashtags 以空格连接标签，每个标签恰好带一个 #
func FormatHashtags(tags []string) string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, normalizeHashtag(tag))
	}
	return strings.Join(out, " ")
}

func normalizeHashtag(tag string) string {
	return "#" + strings.TrimLeft(strings.TrimSpace(tag), "#")
}
