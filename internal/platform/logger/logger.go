package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Fields adalah data tambahan yang ditulis sebagai key=value di akhir baris log.
type Fields map[string]interface{}

var (
	InfoLogger  *log.Logger
	WarnLogger  *log.Logger
	ErrorLogger *log.Logger
)

func init() {
	SetOutput(os.Stdout, os.Stderr)
}

// SetOutput mengganti tujuan log. Dipakai oleh test untuk menangkap output.
func SetOutput(out, errOut io.Writer) {
	InfoLogger = log.New(out, "INFO: ", log.Ldate|log.Ltime|log.Lshortfile)
	WarnLogger = log.New(out, "WARN: ", log.Ldate|log.Ltime|log.Lshortfile)
	ErrorLogger = log.New(errOut, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
}

func Info(msg string, v ...interface{}) {
	InfoLogger.Output(2, format(msg, v...))
}

func Warn(msg string, v ...interface{}) {
	WarnLogger.Output(2, format(msg, v...))
}

// Error mencatat err bersama msg. Argumen tambahan boleh berupa Fields,
// map[string]interface{}, nil, atau argumen format biasa.
func Error(msg string, err error, v ...interface{}) {
	line := format(msg, v...)
	if err != nil {
		line += ": " + err.Error()
	}
	ErrorLogger.Output(2, line)
}

func format(msg string, v ...interface{}) string {
	var args []interface{}
	var fields []string
	for _, a := range v {
		switch f := a.(type) {
		case nil:
		case Fields:
			fields = append(fields, renderFields(f)...)
		case map[string]interface{}:
			fields = append(fields, renderFields(f)...)
		default:
			args = append(args, a)
		}
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	if len(fields) > 0 {
		msg += " " + strings.Join(fields, " ")
	}
	return msg
}

func renderFields(f map[string]interface{}) []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, fmt.Sprintf("%s=%v", k, f[k]))
	}
	return out
}

// GinLogger menggantikan logger bawaan gin supaya semua request tercatat
// lewat logger yang sama dengan service.
func GinLogger(subjectKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}
		if subject, ok := c.Get(subjectKey); ok {
			fields["subject"] = subject
		}
		if c.Writer.Status() >= 500 {
			WarnLogger.Output(2, format("request failed", fields))
			return
		}
		InfoLogger.Output(2, format("request", fields))
	}
}
