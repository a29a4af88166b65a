// internal/studio/state.go
package studio

import "fmt"

// State 提交状态
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSuccess
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:       "idle",
	StateSubmitting: "submitting",
	StateSuccess:    "success",
	StateFailed:     "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText 以小写名称序列化状态
func (s State) MarshalText() ([]byte, error) {
	if _, ok := stateNames[s]; !ok {
		return nil, fmt.Errorf("unknown studio state %d", int(s))
	}
	return []byte(s.String()), nil
}

// Settled 是否已有提交结果
func (s State) Settled() bool {
	return s == StateSuccess || s == StateFailed
}
