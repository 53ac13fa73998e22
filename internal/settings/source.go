package settings

import "fmt"

// Source identifies where a setting value came from. Higher sources win over lower ones
// for normal settings; policy settings invert that. SourceOverride always wins.
type Source int

const (
	SourceOverride Source = iota
	SourceBase
	SourceOrg
	SourceEntity
	SourceProject
	SourceUser
	SourceSystem
	SourceWorkspace
	SourceEnv
	SourceSetup
	SourceLogin
	SourceInit
	SourceSettings
	SourceArgs
)

var sourceNames = [...]string{
	"override", "base", "org", "entity", "project", "user", "system",
	"workspace", "env", "setup", "login", "init", "settings", "args",
}

func (s Source) String() string {
	if s < 0 || int(s) >= len(sourceNames) {
		return fmt.Sprintf("source(%d)", int(s))
	}
	return sourceNames[s]
}

// accepts reports whether a property last set from current accepts a value from incoming.
func accepts(policy bool, current, incoming Source) bool {
	if incoming == SourceOverride {
		return true
	}
	if current == SourceOverride {
		return false
	}
	if policy {
		return incoming <= current
	}
	return incoming >= current
}
