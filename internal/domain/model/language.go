package model

import "strings"

type Language string

const (
	LangPython     Language = "python"
	LangJavaScript Language = "javascript"
	LangJava       Language = "java"
	LangCpp        Language = "cpp"
	LangC          Language = "c"
)

// FallbackLanguageID is the execution service id used for unrecognized tags (Python 3).
const FallbackLanguageID = 71

var languageIDs = map[Language]int{
	LangPython:     71, // Python 3.8
	LangJavaScript: 63, // Node.js
	LangJava:       62, // Java 11
	LangCpp:        54, // C++ GCC 9.1
	LangC:          50, // C GCC 9.1
}

func ParseLanguage(tag string) Language {
	return Language(strings.ToLower(strings.TrimSpace(tag)))
}

func (l Language) IsSupported() bool {
	_, ok := languageIDs[l]
	return ok
}

// ExecutionID returns the execution service language id. known is false when
// the fallback id was substituted; callers are expected to log that.
func (l Language) ExecutionID() (id int, known bool) {
	if v, ok := languageIDs[ParseLanguage(string(l))]; ok {
		return v, true
	}
	return FallbackLanguageID, false
}
