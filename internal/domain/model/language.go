package model

import "fmt"

// Language is the closed set of languages the external judge can execute.
type Language string

const (
	LangPython     Language = "PYTHON"
	LangJava       Language = "JAVA"
	LangJavaScript Language = "JAVASCRIPT"
)

// judgeLanguageIDs maps each language onto the judge's numeric language id.
var judgeLanguageIDs = map[Language]int{
	LangPython:     71,
	LangJava:       62,
	LangJavaScript: 63,
}

// JudgeID resolves the judge-side numeric id for the language. Unknown
// languages are a configuration error and must fail before any network call.
func (l Language) JudgeID() (int, error) {
	id, ok := judgeLanguageIDs[l]
	if !ok {
		return 0, fmt.Errorf("unknown language %q", string(l))
	}
	return id, nil
}

func (l Language) Valid() bool {
	_, ok := judgeLanguageIDs[l]
	return ok
}
