package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	log := New()
	assert.NotEqual(t, zerolog.Disabled, log.GetLevel())
}

func TestNewWithWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewWithWriter(buf)

	log.Info().Msg("test message")

	assert.Contains(t, buf.String(), "test message")
}

func TestNewFromConfig(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		format   string
		wantErr  bool
		wantJSON bool
		logged   bool
	}{
		{name: "json info", level: "info", format: "json", wantJSON: true, logged: true},
		{name: "defaults", level: "", format: "", logged: true},
		{name: "upper case level", level: "WARN", format: "json", wantJSON: true, logged: false},
		{name: "bad level", level: "loud", format: "json", wantErr: true},
		{name: "bad format", level: "info", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			log, err := NewFromConfig(tt.level, tt.format, buf)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			log.Info().Str("k", "v").Msg("hello")
			if !tt.logged {
				assert.Empty(t, buf.String())
				return
			}
			assert.Contains(t, buf.String(), "hello")
			if tt.wantJSON {
				var line map[string]any
				require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
				assert.Equal(t, "v", line["k"])
			}
		})
	}
}

func TestWithContext(t *testing.T) {
	ctx := WithContext(context.Background(), New())
	assert.NotNil(t, ctx.Value(LoggerKey))
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	retrievedLog := FromContext(ctx)
	retrievedLog.Info().Msg("test")

	assert.NotZero(t, buf.Len())
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())
	assert.NotEqual(t, zerolog.Disabled, log.GetLevel())
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithFields(NewWithWriter(buf), map[string]interface{}{
		"class_code": "A",
		"rows":       12,
	})

	log.Info().Msg("test message")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "A", line["class_code"])
	assert.EqualValues(t, 12, line["rows"])
}

func TestWithBudget(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithBudget(NewWithWriter(buf), "S1", "Estimate", "b1")

	log.Info().Msg("processed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "S1", line["spreadsheet_id"])
	assert.Equal(t, "Estimate", line["sheet_name"])
	assert.Equal(t, "b1", line["budget_id"])

	buf.Reset()
	log = WithBudget(NewWithWriter(buf), "S1", "Estimate", "")
	log.Info().Msg("fetching")
	assert.NotContains(t, buf.String(), "budget_id")
}
