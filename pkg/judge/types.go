package judge

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnsupportedLanguage indicates the language has no judge-side identifier.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// ErrTimeout indicates the judge did not reach a terminal status within the poll budget.
var ErrTimeout = errors.New("judge timed out")

// ErrTransport is matched by every TransportError.
var ErrTransport = errors.New("judge transport failure")

// ErrJudgeInternal indicates the judge reported a fault on its own side.
var ErrJudgeInternal = errors.New("judge internal error")

// TransportError describes a failure to talk to the judge service.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("judge %s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("judge %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports ErrTransport so callers can match any transport failure.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// Judge status identifiers.
const (
	StatusInQueue           = 1
	StatusProcessing        = 2
	StatusAccepted          = 3
	StatusWrongAnswer       = 4
	StatusTimeLimitExceeded = 5
	StatusCompilationError  = 6
	StatusRuntimeErrorFirst = 7
	StatusRuntimeErrorLast  = 12
	StatusInternalError     = 13
	StatusExecFormatError   = 14
)

// Category groups judge status ids into the outcomes callers care about.
type Category string

const (
	CategoryPending           Category = "pending"
	CategoryAccepted          Category = "accepted"
	CategoryWrongAnswer       Category = "wrong_answer"
	CategoryTimeLimitExceeded Category = "time_limit_exceeded"
	CategoryCompilationError  Category = "compilation_error"
	CategoryRuntimeError      Category = "runtime_error"
	CategoryInternalError     Category = "internal_error"
)

// Status is the judge's status object.
type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Verdict is a single run outcome as reported by the judge.
type Verdict struct {
	Token         string  `json:"token"`
	Status        Status  `json:"status"`
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Message       *string `json:"message"`
	Time          *string `json:"time"`
	Memory        *int64  `json:"memory"`
	ExitCode      *int    `json:"exit_code"`
}

// Terminal reports whether the run has finished.
func (v Verdict) Terminal() bool {
	return v.Status.ID != StatusInQueue && v.Status.ID != StatusProcessing
}

// Succeeded reports whether the program ran to completion.
func (v Verdict) Succeeded() bool {
	return v.Status.ID == StatusAccepted
}

// Category maps the status id onto a Category. Ids the judge does not document are terminal
// unsuccessful runs and map to CategoryWrongAnswer.
func (v Verdict) Category() Category {
	id := v.Status.ID
	switch {
	case id == StatusInQueue, id == StatusProcessing:
		return CategoryPending
	case id == StatusAccepted:
		return CategoryAccepted
	case id == StatusWrongAnswer:
		return CategoryWrongAnswer
	case id == StatusTimeLimitExceeded:
		return CategoryTimeLimitExceeded
	case id == StatusCompilationError:
		return CategoryCompilationError
	case id >= StatusRuntimeErrorFirst && id <= StatusRuntimeErrorLast:
		return CategoryRuntimeError
	case id == StatusInternalError, id == StatusExecFormatError:
		return CategoryInternalError
	default:
		return CategoryWrongAnswer
	}
}

// StdoutText returns stdout or an empty string.
func (v Verdict) StdoutText() string {
	return deref(v.Stdout)
}

// CapturedOutput returns stdout, falling back to stderr and then compile output.
func (v Verdict) CapturedOutput() string {
	for _, candidate := range []*string{v.Stdout, v.Stderr, v.CompileOutput} {
		if text := deref(candidate); text != "" {
			return text
		}
	}
	return ""
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

var languageIDs = map[string]int{
	"javascript": 93,
	"python":     71,
	"java":       91,
	"cpp":        54,
}

// LanguageID resolves the judge identifier for a language name.
func LanguageID(language string) (int, error) {
	id, ok := languageIDs[strings.ToLower(strings.TrimSpace(language))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}
	return id, nil
}

// SupportedLanguages lists the language names accepted by LanguageID.
func SupportedLanguages() []string {
	names := make([]string, 0, len(languageIDs))
	for name := range languageIDs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
