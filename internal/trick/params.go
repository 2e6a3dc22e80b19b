package trick

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/tonimelisma/watchmedo-go/internal/supervisor"
)

// decodeParams maps a parameter map onto dst. Keys dst does not declare
// are rejected.
func decodeParams(params map[string]any, dst any) error {
	if len(params) == 0 {
		return nil
	}

	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encoding parameters: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}

	return nil
}

// PatternList accepts either a list of patterns or one string of
// patterns separated by ";".
type PatternList []string

func (p *PatternList) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = SplitPatterns(s)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("patterns: want a string or a list of strings")
	}

	*p = list

	return nil
}

// SplitPatterns splits a ";"-separated pattern spec. An empty spec yields
// no patterns.
func SplitPatterns(spec string) []string {
	if spec == "" {
		return nil
	}

	return strings.Split(spec, ";")
}

// Seconds is a duration written as a number of seconds or as a Go
// duration string.
type Seconds time.Duration

func (s *Seconds) UnmarshalJSON(data []byte) error {
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		if f < 0 {
			return fmt.Errorf("duration must not be negative")
		}

		*s = Seconds(time.Duration(f * float64(time.Second)))

		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("duration: want seconds or a duration string")
	}

	d, err := time.ParseDuration(str)
	if err != nil {
		return fmt.Errorf("duration: %w", err)
	}

	if d < 0 {
		return fmt.Errorf("duration must not be negative")
	}

	*s = Seconds(d)

	return nil
}

func (s Seconds) MarshalYAML() (any, error) {
	return time.Duration(s).Seconds(), nil
}

// SignalSpec is a signal given by name or number.
type SignalSpec string

func (s *SignalSpec) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*s = SignalSpec(strconv.Itoa(n))
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("signal: want a name or a number")
	}

	*s = SignalSpec(str)

	return nil
}

func (s SignalSpec) signal() (syscall.Signal, error) {
	if s == "" {
		return supervisor.DefaultStopSignal, nil
	}

	return supervisor.ParseSignal(string(s))
}
