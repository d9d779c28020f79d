package archive

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/fontman/internal/logging"
)

var (
	affirmative = []string{"Y", "y", "Yes", "yes"}
	negative    = []string{"N", "n", "No", "no"}
)

// Filter decides whether a file entry is written.
type Filter interface {
	Include(e Entry) (bool, error)
}

// ExtensionFilter keeps one of the two font formats and passes every file
// that is neither.
type ExtensionFilter struct {
	PreferOTF bool
}

// Include implements Filter.
func (f ExtensionFilter) Include(e Entry) (bool, error) {
	ext := strings.ToLower(filepath.Ext(e.Name))
	if f.PreferOTF {
		return ext != ".ttf", nil
	}
	return ext != ".otf", nil
}

// PromptFilter asks the user about every file.
type PromptFilter struct {
	Lines  LineSource
	Logger logging.Logger
}

// Include implements Filter. It re-asks until the answer is in the yes/no
// vocabulary. Errors from the line source are returned unchanged.
func (f PromptFilter) Include(e Entry) (bool, error) {
	question := fmt.Sprintf("Install: %s? [Yes/No]", e.Name)
	for {
		answer, err := f.Lines.ReadLine(question)
		if err != nil {
			return false, err
		}
		answer = strings.TrimSpace(answer)
		switch {
		case contains(affirmative, answer):
			return true, nil
		case contains(negative, answer):
			return false, nil
		}
		if f.Logger != nil {
			f.Logger.Debug("unrecognised answer", "answer", answer)
		}
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
