package logger

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

var (
	mu           sync.RWMutex
	currentLevel = INFO
	fileSink     *os.File
)

type entry struct {
	Level     string         `json:"level"`
	Timestamp string         `json:"timestamp"`
	Component string         `json:"component,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
}

func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	currentLevel = level
}

// ParseLevel maps a level name to its Level; unknown names mean INFO.
func ParseLevel(name string) Level {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

func GetLevel() Level {
	mu.RLock()
	defer mu.RUnlock()
	return currentLevel
}

// EnableFileLogging mirrors every entry as a JSON line to the given file,
// in addition to the console output.
func EnableFileLogging(path string) error {
	mu.Lock()
	defer mu.Unlock()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	if fileSink != nil {
		fileSink.Close()
	}
	fileSink = file
	return nil
}

func DisableFileLogging() {
	mu.Lock()
	defer mu.Unlock()
	if fileSink != nil {
		fileSink.Close()
		fileSink = nil
	}
}

func write(level Level, component, message string, fields map[string]any) {
	mu.RLock()
	minLevel := currentLevel
	sink := fileSink
	mu.RUnlock()

	if level < minLevel {
		return
	}
	fields = maskSecrets(fields)

	e := entry{
		Level:     levelNames[level],
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Component: component,
		Message:   message,
		Fields:    fields,
	}

	if sink != nil {
		if data, err := json.Marshal(e); err == nil {
			sink.Write(append(data, '\n'))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s]", e.Timestamp, e.Level)
	if component != "" {
		fmt.Fprintf(&b, " %s:", component)
	}
	b.WriteByte(' ')
	b.WriteString(message)
	if len(fields) > 0 {
		parts := make([]string, 0, len(fields))
		for k, v := range fields {
			parts = append(parts, fmt.Sprintf("%s=%v", k, v))
		}
		fmt.Fprintf(&b, " {%s}", strings.Join(parts, ", "))
	}
	log.Println(b.String())
}

// maskSecrets replaces values of credential-looking field keys so API keys
// never end up in log output.
func maskSecrets(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return fields
	}
	masked := make(map[string]any, len(fields))
	for k, v := range fields {
		lower := strings.ToLower(k)
		if strings.Contains(lower, "key") || strings.Contains(lower, "token") || strings.Contains(lower, "secret") {
			masked[k] = "***"
			continue
		}
		masked[k] = v
	}
	return masked
}

func Debug(message string)                                     { write(DEBUG, "", message, nil) }
func DebugC(component, message string)                         { write(DEBUG, component, message, nil) }
func DebugCF(component, message string, fields map[string]any) { write(DEBUG, component, message, fields) }
func Info(message string)                                      { write(INFO, "", message, nil) }
func InfoC(component, message string)                          { write(INFO, component, message, nil) }
func InfoCF(component, message string, fields map[string]any)  { write(INFO, component, message, fields) }
func Warn(message string)                                      { write(WARN, "", message, nil) }
func WarnC(component, message string)                          { write(WARN, component, message, nil) }
func WarnCF(component, message string, fields map[string]any)  { write(WARN, component, message, fields) }
func Error(message string)                                     { write(ERROR, "", message, nil) }
func ErrorC(component, message string)                         { write(ERROR, component, message, nil) }
func ErrorCF(component, message string, fields map[string]any) { write(ERROR, component, message, fields) }
