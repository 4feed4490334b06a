// Package logger provides a leveled, component-tagged logger used across
// the filebridge gateway and relay. Components are short tags ("relay",
// "web", "discord") so one process log can be filtered per subsystem.
package logger

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Level int32

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var (
	level atomic.Int32
	mu    sync.Mutex
	out   = os.Stderr
)

func init() {
	level.Store(int32(INFO))
}

// SetLevel sets the minimum level that will be emitted.
func SetLevel(l Level) {
	level.Store(int32(l))
}

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	}
	return "UNKNOWN"
}

func log(l Level, component, msg string, fields map[string]any) {
	if int32(l) < level.Load() {
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format("2006-01-02 15:04:05"))
	b.WriteString(" [")
	b.WriteString(l.String())
	b.WriteString("] [")
	b.WriteString(component)
	b.WriteString("] ")
	b.WriteString(msg)

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%v", k, fields[k])
		}
	}
	b.WriteByte('\n')

	mu.Lock()
	defer mu.Unlock()
	fmt.Fprint(out, b.String())
}

func DebugC(component, msg string) { log(DEBUG, component, msg, nil) }
func InfoC(component, msg string)  { log(INFO, component, msg, nil) }
func WarnC(component, msg string)  { log(WARN, component, msg, nil) }
func ErrorC(component, msg string) { log(ERROR, component, msg, nil) }

func DebugCF(component, msg string, fields map[string]any) { log(DEBUG, component, msg, fields) }
func InfoCF(component, msg string, fields map[string]any)  { log(INFO, component, msg, fields) }
func WarnCF(component, msg string, fields map[string]any)  { log(WARN, component, msg, fields) }
func ErrorCF(component, msg string, fields map[string]any) { log(ERROR, component, msg, fields) }
