package pkg

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"regexp"
	"time"
)

type LogLevel string

const (
	InfoLevel  LogLevel = "INFO"
	ErrorLevel LogLevel = "ERROR"
	DebugLevel LogLevel = "DEBUG"
)

var (
	emailRegex  = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	tokenRegex  = regexp.MustCompile(`eyJ[^\s"]+`)
	secretRegex = regexp.MustCompile(`(?i)\b(password|code)\s*=\s*\S+`)
)

// LogEntry 一行 JSON 日志
type LogEntry struct {
	Time    string   `json:"time"`
	Level   LogLevel `json:"level"`
	Module  string   `json:"module,omitempty"`
	Message string   `json:"message"`
	Error   string   `json:"error,omitempty"`
}

// Logger 结构化日志，输出前脱敏
type Logger struct {
	out   *log.Logger
	debug bool
}

func NewLogger(w io.Writer, debug bool) *Logger {
	if w == nil {
		w = os.Stdout
	}
	return &Logger{out: log.New(w, "", 0), debug: debug}
}

// Anonymize 替换日志中的邮箱、令牌、密码和验证码
func Anonymize(s string) string {
	s = emailRegex.ReplaceAllString(s, "[REDACTED_EMAIL]")
	s = tokenRegex.ReplaceAllString(s, "[REDACTED_TOKEN]")
	s = secretRegex.ReplaceAllString(s, "$1=[REDACTED]")
	return s
}

func (l *Logger) log(module string, level LogLevel, msg string, err error) {
	if l == nil {
		return
	}
	entry := LogEntry{
		Time:    time.Now().Format(time.RFC3339),
		Level:   level,
		Module:  module,
		Message: Anonymize(msg),
	}
	if err != nil {
		entry.Error = Anonymize(err.Error())
	}
	data, _ := json.Marshal(entry)
	l.out.Println(string(data))
}

func (l *Logger) Info(module, msg string) {
	l.log(module, InfoLevel, msg, nil)
}

func (l *Logger) Debug(module, msg string) {
	if l == nil || !l.debug {
		return
	}
	l.log(module, DebugLevel, msg, nil)
}

func (l *Logger) Error(module, msg string, err error) {
	l.log(module, ErrorLevel, msg, err)
}
