package poll

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Spec is a parsed poll schedule: a cron expression or a fixed interval.
//
// Accepted forms:
//   - cron: "*/1 * * * *", "@every 8s", "@hourly" ("cron:" prefix forces it)
//   - Go duration: "8s", "1m30s" ("every:" prefix forces it)
//   - MM:SS interval: "00:08", "01:30"
type Spec struct {
	Cron  string
	Every time.Duration
}

var reMMSS = regexp.MustCompile(`^\s*(\d{1,3}):(\d{2})\s*$`)

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func ParseSchedule(raw string) (Spec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Spec{}, fmt.Errorf("schedule required")
	}
	low := strings.ToLower(s)
	switch {
	case strings.HasPrefix(low, "cron:"):
		return cronSpec(strings.TrimSpace(s[len("cron:"):]))
	case strings.HasPrefix(low, "every:"):
		d, err := parseInterval(strings.TrimSpace(s[len("every:"):]))
		return Spec{Every: d}, err
	case strings.ContainsAny(s, " \t") || strings.HasPrefix(s, "@"):
		return cronSpec(s)
	}
	d, err := parseInterval(s)
	if err != nil {
		return Spec{}, fmt.Errorf("invalid schedule %q (use cron like '@every 8s', MM:SS like '00:08', or duration like '8s')", raw)
	}
	return Spec{Every: d}, nil
}

func cronSpec(expr string) (Spec, error) {
	if expr == "" {
		return Spec{}, fmt.Errorf("cron expression required")
	}
	if _, err := parser.Parse(expr); err != nil {
		return Spec{}, fmt.Errorf("invalid cron %q: %w", expr, err)
	}
	return Spec{Cron: expr}, nil
}

func parseInterval(v string) (time.Duration, error) {
	if m := reMMSS.FindStringSubmatch(v); m != nil {
		mm, _ := strconv.Atoi(m[1])
		ss, _ := strconv.Atoi(m[2])
		if ss > 59 {
			return 0, fmt.Errorf("invalid seconds in %q", v)
		}
		d := time.Duration(mm)*time.Minute + time.Duration(ss)*time.Second
		if d <= 0 {
			return 0, fmt.Errorf("interval must be > 0")
		}
		return d, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid interval %q", v)
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be > 0")
	}
	return d, nil
}

// Schedule returns the cron schedule for s.
func (s Spec) Schedule() (cron.Schedule, error) {
	if s.Cron != "" {
		return parser.Parse(s.Cron)
	}
	if s.Every <= 0 {
		return nil, fmt.Errorf("empty schedule")
	}
	return cron.Every(s.Every), nil
}

func (s Spec) String() string {
	if s.Cron != "" {
		return s.Cron
	}
	return "@every " + s.Every.String()
}
