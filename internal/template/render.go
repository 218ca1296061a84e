// internal/template/render.go
package template

import (
	"fmt"
	"strings"

	apperrors "portal-notifier/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// Rendered is the message produced for one notification. Subject only
// matters for the email channel.
type Rendered struct {
	Subject string
	Body    string
}

// Render produces the message for a notification type and its context data.
// It is a pure function: same inputs, byte-identical output, no clock or
// randomness involved.
func (r *Registry) Render(notificationType string, data map[string]interface{}) (Rendered, error) {
	tmpl, ok := r.Lookup(notificationType)
	if !ok {
		return Rendered{}, apperrors.NewTemplateNotFoundError(notificationType)
	}

	if err := validateContext(tmpl.Schema, data); err != nil {
		return Rendered{}, err
	}

	return Rendered{
		Subject: tmpl.Subject,
		Body:    substitute(tmpl.Body, data),
	}, nil
}

func validateContext(schema, data map[string]interface{}) error {
	if schema == nil {
		return nil
	}
	if data == nil {
		data = map[string]interface{}{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	documentLoader := gojsonschema.NewGoLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return apperrors.NewContextInvalidError(err.Error())
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return apperrors.NewContextInvalidError(strings.Join(msgs, "; "))
	}
	return nil
}

// substitute replaces {{name}} placeholders with stringified values, then
// strips any placeholders left unresolved.
func substitute(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		switch t := v.(type) {
		case string:
			value = t
		case int:
			value = fmt.Sprintf("%d", t)
		case float64:
			// JSON numbers decode as float64; render whole values without
			// a fractional part.
			if t == float64(int64(t)) {
				value = fmt.Sprintf("%d", int64(t))
			} else {
				value = fmt.Sprintf("%v", t)
			}
		default:
			if v != nil {
				value = fmt.Sprintf("%v", v)
			}
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}
