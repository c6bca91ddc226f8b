package formatter

import (
	"github.com/bingooyong/apphub/internal/model"
	"github.com/google/uuid"
)

// SelectLocale 按版本选择语言：版本有 lang 的本地化时只保留 lang 行，
// 否则保留 fallback 行；两者都没有的版本不可见，被丢弃
// 返回的行保持输入顺序
func SelectLocale(rows []*model.AppViewRow, lang, fallback string) []*model.AppViewRow {
	if lang == "" {
		lang = fallback
	}

	hasLang := make(map[uuid.UUID]bool)
	for _, row := range rows {
		if row.LanguageCode == lang {
			hasLang[row.VersionID] = true
		}
	}

	selected := make([]*model.AppViewRow, 0, len(rows))
	for _, row := range rows {
		want := fallback
		if hasLang[row.VersionID] {
			want = lang
		}
		if row.LanguageCode == want {
			selected = append(selected, row)
		}
	}
	return selected
}
