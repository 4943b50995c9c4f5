package convert

import (
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/flowmorph/flowmorph/pkg/schema"
)

// ValidateSchedule checks a schedule trigger's cron expression. Standard
// five-field specs and @-descriptors (@hourly, @every 5m) are accepted.
// Expression-valued schedules cannot be checked statically and pass.
func ValidateSchedule(spec string) error {
	if spec == "" {
		return schema.NewError(schema.ErrCodeValidation, "empty schedule expression")
	}
	if strings.Contains(spec, "{{") {
		return nil
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return schema.NewErrorf(schema.ErrCodeValidation,
			"invalid cron expression %q: %s", spec, err.Error()).WithCause(err)
	}
	return nil
}
