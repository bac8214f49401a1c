package logger

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Logger writes leveled, category-tagged lines to stdout and, when
// LOG_FILE is set, mirrors them uncolored into that file.
type Logger struct {
	mu   sync.Mutex
	file *os.File
}

var (
	infoColor  = color.New(color.FgGreen)
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed)
	debugColor = color.New(color.FgCyan)
	fatalColor = color.New(color.FgRed, color.Bold)
)

func NewLogger() *Logger {
	l := &Logger{}
	if path := os.Getenv("LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			l.file = f
		} else {
			fmt.Fprintf(os.Stderr, "logger: cannot open %s: %v\n", path, err)
		}
	}
	return l
}

func (l *Logger) Close() {
	if l.file != nil {
		l.file.Close()
	}
}

func (l *Logger) log(c *color.Color, level, category, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ts := time.Now().Format("2006-01-02 15:04:05.000")
	c.Printf("%s [%s] [%s] %s\n", ts, level, category, msg)
	if l.file != nil {
		fmt.Fprintf(l.file, "%s [%s] [%s] %s\n", ts, level, category, msg)
	}
}

func (l *Logger) Info(category, msg string)  { l.log(infoColor, "INFO", category, msg) }
func (l *Logger) Warn(category, msg string)  { l.log(warnColor, "WARN", category, msg) }
func (l *Logger) Error(category, msg string) { l.log(errorColor, "ERROR", category, msg) }
func (l *Logger) Debug(category, msg string) { l.log(debugColor, "DEBUG", category, msg) }

func (l *Logger) Fatal(category, msg string) {
	l.log(fatalColor, "FATAL", category, msg)
	if l.file != nil {
		l.file.Close()
	}
	os.Exit(1)
}

// LogProcess records a lifecycle step (startup, shutdown, wiring).
func (l *Logger) LogProcess(stage, msg string) {
	l.Info("PROCESS", fmt.Sprintf("[%s] %s", stage, msg))
}

func (l *Logger) LogDatabase(op, table, msg string) {
	l.Info("DATABASE", fmt.Sprintf("[%s] [%s] %s", op, table, msg))
}

func (l *Logger) LogKafka(op, topic, msg string) {
	l.Info("KAFKA", fmt.Sprintf("[%s] [%s] %s", op, topic, msg))
}

func (l *Logger) LogAPI(method, path, status, duration string) {
	l.Info("API", fmt.Sprintf("%s %s - %s (%s)", method, path, status, duration))
}

func (l *Logger) LogPayment(action, id, msg string) {
	l.Info("PAYMENT", fmt.Sprintf("[%s] [%s] %s", action, id, msg))
}

// LogGCCPay records provider traffic for audit. Callers must never pass
// the client secret; the computed signature is the only credential that
// may appear here.
func (l *Logger) LogGCCPay(op, uri, msg string) {
	l.Info("GCCPAY", fmt.Sprintf("[%s] [%s] %s", op, uri, msg))
}

func (l *Logger) LogSecurity(event, msg string) {
	l.Warn("SECURITY", fmt.Sprintf("[%s] %s", event, msg))
}
