// Package action is the pipeline stage that executes detected intents and
// always answers with exactly one terminal event per consumed intent.
package action

import "fmt"

// Intent is the closed set of executable intents. The dispatch table in
// Agent must cover every value; NewAgent refuses to start otherwise, so an
// unhandled variant is a startup failure rather than a silent default branch.
type Intent string

const (
	IntentBash         Intent = "bash"
	IntentWebSearch    Intent = "websearch"
	IntentWriteFile    Intent = "write_file"
	IntentResponse     Intent = "response"
	IntentSessionsList Intent = "sessions_list"
	IntentSessionsSend Intent = "sessions_send"
	IntentExecutePlan  Intent = "execute_plan"
)

// AllIntents lists every executable intent.
func AllIntents() []Intent {
	return []Intent{
		IntentBash,
		IntentWebSearch,
		IntentWriteFile,
		IntentResponse,
		IntentSessionsList,
		IntentSessionsSend,
		IntentExecutePlan,
	}
}

// ParseIntent maps a wire string onto the enum.
func ParseIntent(s string) (Intent, bool) {
	for _, in := range AllIntents() {
		if string(in) == s {
			return in, true
		}
	}
	return "", false
}

// Params is the free-form parameter object attached to an intent.
type Params map[string]any

// Str returns the string value under key, or "".
func (p Params) Str(key string) string {
	v, _ := p[key].(string)
	return v
}

// StrSlice returns the value under key as a string slice. JSON arrays arrive
// as []any; scalar members are stringified.
func (p Params) StrSlice(key string) []string {
	raw, ok := p[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		out = append(out, fmt.Sprintf("%v", v))
	}
	return out
}
