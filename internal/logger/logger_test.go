package logger

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestPlainFormatter_FieldOrderingAndSkipping(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	cases := []struct {
		name    string
		data    logrus.Fields
		message string
		want    string
	}{
		{
			name: "component and sorted fields",
			data: logrus.Fields{
				"component":    "chat",
				"caller":       "x.go:1",
				"tool_call_id": "call-1",
				"state":        "approval-requested",
			},
			message: "tool transition",
			want:    "x.go:1 [2025-01-02T03:04:05Z] [INFO] [chat] tool transition state=approval-requested tool_call_id=call-1\n",
		},
		{
			name: "no component",
			data: logrus.Fields{
				"caller": "x.go:1",
				"foo":    "bar",
			},
			message: "hello",
			want:    "x.go:1 [2025-01-02T03:04:05Z] [INFO] hello foo=bar\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entry := &logrus.Entry{
				Logger:  logrus.New(),
				Time:    ts,
				Level:   logrus.InfoLevel,
				Message: tc.message,
				Data:    tc.data,
			}
			out, err := (PlainFormatter{}).Format(entry)
			if err != nil {
				t.Fatalf("Format() error: %v", err)
			}
			if got := string(out); got != tc.want {
				t.Fatalf("unexpected format:\nwant: %q\ngot:  %q", tc.want, got)
			}
		})
	}
}

func TestNamedAttachesComponent(t *testing.T) {
	entry := Named("gallery")
	if entry.Data["component"] != "gallery" {
		t.Fatalf("expected component field, got %+v", entry.Data)
	}
	if entry := Named(""); len(entry.Data) != 0 {
		t.Fatalf("expected no fields for empty component, got %+v", entry.Data)
	}
}
