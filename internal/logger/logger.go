package logger

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Logger is a small category logger: every line carries a level, a category
// tag (API, DATABASE, PAYMENT, ...) and a message. Console output is colored
// by level; if LOG_FILE is set, plain lines are mirrored to that file.
type Logger struct {
	mu      sync.Mutex
	file    *os.File
	debugOn bool

	debugC *color.Color
	infoC  *color.Color
	warnC  *color.Color
	errorC *color.Color
}

func NewLogger() *Logger {
	l := &Logger{
		debugOn: os.Getenv("LOG_DEBUG") == "true",
		debugC:  color.New(color.FgHiBlack),
		infoC:   color.New(color.FgCyan),
		warnC:   color.New(color.FgYellow),
		errorC:  color.New(color.FgRed, color.Bold),
	}

	if path := os.Getenv("LOG_FILE"); path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err == nil {
			l.file = f
		}
	}

	return l
}

func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}
}

func (l *Logger) write(c *color.Color, level, category, message string) {
	line := fmt.Sprintf("%s [%s] [%s] %s", time.Now().Format("2006-01-02 15:04:05"), level, category, message)

	l.mu.Lock()
	defer l.mu.Unlock()

	c.Fprintln(os.Stdout, line)
	if l.file != nil {
		fmt.Fprintln(l.file, line)
	}
}

func (l *Logger) Debug(category, message string) {
	if !l.debugOn {
		return
	}
	l.write(l.debugC, "DEBUG", category, message)
}

func (l *Logger) Info(category, message string)  { l.write(l.infoC, "INFO", category, message) }
func (l *Logger) Warn(category, message string)  { l.write(l.warnC, "WARN", category, message) }
func (l *Logger) Error(category, message string) { l.write(l.errorC, "ERROR", category, message) }

func (l *Logger) Fatal(category, message string) {
	l.write(l.errorC, "FATAL", category, message)
	l.Close()
	os.Exit(1)
}

// Domain helpers keep the tag vocabulary consistent across packages.

func (l *Logger) LogAPI(method, path, status, duration string) {
	l.Info("API", fmt.Sprintf("%s %s - %s (%s)", method, path, status, duration))
}

func (l *Logger) LogDatabase(operation, table, message string) {
	l.Debug("DATABASE", fmt.Sprintf("[%s:%s] %s", operation, table, message))
}

func (l *Logger) LogKafka(operation, topic, message string) {
	l.Info("KAFKA", fmt.Sprintf("[%s:%s] %s", operation, topic, message))
}

func (l *Logger) LogPayment(operation, paymentID, message string) {
	l.Info("PAYMENT", fmt.Sprintf("[%s:%s] %s", operation, paymentID, message))
}

func (l *Logger) LogBooking(operation, bookingID, message string) {
	l.Info("BOOKING", fmt.Sprintf("[%s:%s] %s", operation, bookingID, message))
}

func (l *Logger) LogSecurity(event, message string) {
	l.Warn("SECURITY", fmt.Sprintf("[%s] %s", event, message))
}

func (l *Logger) LogProcess(stage, message string) {
	l.Info("PROCESS", fmt.Sprintf("[%s] %s", stage, message))
}
