// Package attachments maps file extensions to the three attachment
// categories a message slot may accept.
package attachments

import "strings"

type Category string

const (
	Images Category = "images"
	Audios Category = "audios"
	Files  Category = "files"
)

var byCategory = map[Category][]string{
	Images: {"png", "jpg", "jpeg", "gif", "webp"},
	Audios: {"mp3", "wav", "ogg", "opus", "m4a"},
}

// Allows reports whether a file with the given extension may occupy a slot
// of this category. Files accepts any extension.
func (c Category) Allows(extension string) bool {
	if c == Files {
		return true
	}
	ext := strings.ToLower(strings.TrimPrefix(extension, "."))
	for _, allowed := range byCategory[c] {
		if ext == allowed {
			return true
		}
	}
	return false
}
