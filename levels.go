// Copyright 2026 Patrick J. Scruggs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package slogfold

import (
	"fmt"
	"log/slog"
	"strings"
)

// Level represents a logging severity aligned with Google Cloud Logging's
// severity scale. It extends the standard slog levels with the intermediate
// severities Cloud Logging defines (NOTICE, CRITICAL, ALERT, EMERGENCY).
//
// Values are chosen so that standard slog levels keep their numeric meaning:
// slog.LevelInfo and LevelInfo are the same level. Custom severities slot
// between them, so level comparisons work across both scales.
type Level slog.Level

const (
	// LevelDefault designates an unspecified severity.
	LevelDefault Level = Level(slog.LevelDebug - 4) // -8

	// LevelDebug designates debug or trace information.
	LevelDebug Level = Level(slog.LevelDebug) // -4

	// LevelInfo designates routine information, such as ongoing status.
	LevelInfo Level = Level(slog.LevelInfo) // 0

	// LevelNotice designates normal but significant events.
	LevelNotice Level = Level(slog.LevelInfo + 2) // 2

	// LevelWarn designates events that might cause problems.
	LevelWarn Level = Level(slog.LevelWarn) // 4

	// LevelError designates events likely to cause problems.
	LevelError Level = Level(slog.LevelError) // 8

	// LevelCritical designates events that cause more severe problems
	// or outages.
	LevelCritical Level = Level(slog.LevelError + 4) // 12

	// LevelAlert designates events where a person must take action
	// immediately.
	LevelAlert Level = Level(slog.LevelError + 8) // 16

	// LevelEmergency designates events where one or more systems are
	// unusable.
	LevelEmergency Level = Level(slog.LevelError + 12) // 20
)

// Level returns the receiver as a slog.Level, for use with APIs that accept
// the standard type.
func (l Level) Level() slog.Level { return slog.Level(l) }

var levelNames = map[Level]string{
	LevelDefault:   "DEFAULT",
	LevelDebug:     "DEBUG",
	LevelInfo:      "INFO",
	LevelNotice:    "NOTICE",
	LevelWarn:      "WARN",
	LevelError:     "ERROR",
	LevelCritical:  "CRITICAL",
	LevelAlert:     "ALERT",
	LevelEmergency: "EMERGENCY",
}

// descendingLevels orders the named constants for nearest-lower lookups.
var descendingLevels = []Level{
	LevelEmergency,
	LevelAlert,
	LevelCritical,
	LevelError,
	LevelWarn,
	LevelNotice,
	LevelInfo,
	LevelDebug,
	LevelDefault,
}

// String returns the name of l. Exact constants render as their bare name;
// values between constants render as the nearest lower name plus an offset,
// like slog.Level.String. Values below LevelDefault delegate to slog.
//
// Note that entry severities rendered into log output use the Cloud Logging
// spelling (WARNING rather than WARN); String is for configuration and
// debugging.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	if l < LevelDefault {
		return slog.Level(l).String()
	}
	for _, base := range descendingLevels {
		if l > base {
			return fmt.Sprintf("%s%+d", levelNames[base], l-base)
		}
	}
	return slog.Level(l).String()
}

// Severity thresholds beyond the exported constants. DEFAULT sorts above
// EMERGENCY here because Cloud Logging treats it as "no severity assigned"
// rather than a rank of its own.
const (
	internalLevelNotice    = slog.Level(2)
	internalLevelCritical  = slog.Level(12)
	internalLevelAlert     = slog.Level(16)
	internalLevelEmergency = slog.Level(20)
	internalLevelDefault   = slog.Level(30)
)

// severityString maps an slog.Level onto the Cloud Logging severity scale.
// Exact matches yield the bare severity name; intermediate values yield the
// nearest lower severity with a "+n" offset so no information is lost.
func severityString(level slog.Level) string {
	switch {
	case level < slog.LevelInfo:
		return withOffset("DEBUG", level-slog.LevelDebug)
	case level < internalLevelNotice:
		return withOffset("INFO", level-slog.LevelInfo)
	case level < slog.LevelWarn:
		return withOffset("NOTICE", level-internalLevelNotice)
	case level < slog.LevelError:
		return withOffset("WARNING", level-slog.LevelWarn)
	case level < internalLevelCritical:
		return withOffset("ERROR", level-slog.LevelError)
	case level < internalLevelAlert:
		return withOffset("CRITICAL", level-internalLevelCritical)
	case level < internalLevelEmergency:
		return withOffset("ALERT", level-internalLevelAlert)
	case level < internalLevelDefault:
		return withOffset("EMERGENCY", level-internalLevelEmergency)
	default:
		return "DEFAULT"
	}
}

func withOffset(name string, offset slog.Level) string {
	if offset == 0 {
		return name
	}
	return fmt.Sprintf("%s%+d", name, offset)
}

// parseLevelName converts a severity or slog level name into an slog.Level.
// It accepts the Cloud Logging severity names handled by severityString as
// well as the standard slog spellings, case-insensitively.
func parseLevelName(name string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEFAULT":
		return slog.Level(LevelDefault), nil
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "NOTICE":
		return slog.Level(LevelNotice), nil
	case "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	case "CRITICAL":
		return slog.Level(LevelCritical), nil
	case "ALERT":
		return slog.Level(LevelAlert), nil
	case "EMERGENCY":
		return slog.Level(LevelEmergency), nil
	default:
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(name)); err != nil {
			return 0, fmt.Errorf("unrecognized level %q", name)
		}
		return lvl, nil
	}
}
